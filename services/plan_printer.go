// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/utils"
)

type PlanPrinter struct {
	out io.Writer
}

func NewPlanPrinter(out io.Writer) *PlanPrinter {
	return &PlanPrinter{out: out}
}

func actionColor(a dtos.Action) text.Color {
	switch a {
	case dtos.ActionCreate:
		return text.FgGreen
	case dtos.ActionTransitionDone:
		return text.FgBlue
	case dtos.ActionTransitionToDo, dtos.ActionReopen:
		return text.FgYellow
	case dtos.ActionNoOp:
		return text.FgHiBlack
	default:
		return text.FgWhite
	}
}

func planIssue(plan dtos.Plan) string {
	for _, d := range plan.Decisions {
		if d.IssueKey != "" {
			return d.IssueKey
		}
	}
	if plan.Primary() == dtos.ActionCreate {
		return "(new)"
	}
	return ""
}

func planDetails(plan dtos.Plan) string {
	details := make([]string, 0, len(plan.Decisions))
	for _, d := range plan.Decisions {
		switch {
		case d.Action == dtos.ActionNoOp:
			details = append(details, d.Reason)
		case d.Action == dtos.ActionLink:
			details = append(details, "link "+d.LinkTo)
		case d.Fields != nil:
			details = append(details, fmt.Sprintf("%s %s", d.Fields.Severity, strings.Join(d.Fields.CVEList, ",")))
		}
	}
	return strings.Join(details, "; ")
}

// PrintPlans renders one row per plan.
func (p *PlanPrinter) PrintPlans(plans []dtos.Plan) {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Component", "Project Version", "Cause", "Issue", "Actions", "Details"})
	tw.AppendRows(utils.Map(plans, func(plan dtos.Plan) table.Row {
		n := plan.Notification
		actions := utils.Map(plan.Actions(), func(a dtos.Action) string {
			return actionColor(a).Sprint(string(a))
		})
		return table.Row{
			n.ComponentName + ":" + n.ComponentVersion,
			n.ProjectName + ":" + n.ProjectVersion,
			n.Cause,
			planIssue(plan),
			strings.Join(actions, " "),
			text.WrapText(planDetails(plan), 60),
		}
	}))
	fmt.Fprintln(p.out, tw.Render())
}

func (p *PlanPrinter) PrintReport(report RunReport) {
	tw := table.NewWriter()
	tw.AppendRows([]table.Row{
		{"Run", report.RunID},
		{"Notifications", report.Notifications},
		{"Scan / Update / Dropped", fmt.Sprintf("%d / %d / %d", report.Scan, report.Update, report.Dropped)},
		{"Processed", report.Processed},
		{"Skipped", report.Skipped},
		{"Conflicts", report.Conflicts},
		{"Malformed", report.Malformed},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Created", report.Actions.Created},
		{"Updated", report.Actions.Updated},
		{"Closed", report.Actions.Closed},
		{"Reopened", report.Actions.Reopened},
		{"Not Applicable", report.Actions.NotApplicable},
		{"Linked", report.Actions.Linked},
	})
	fmt.Fprintln(p.out, tw.Render())
}
