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

package statemachine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/utils"
)

type Stream string

const (
	StreamScan   Stream = "scan"
	StreamUpdate Stream = "update"
)

// Statuses are the tracker status names the reconciler knows about.
type Statuses struct {
	ToDo                   string `mapstructure:"toDo" validate:"required"`
	Done                   string `mapstructure:"done" validate:"required"`
	NotApplicable          string `mapstructure:"notApplicable" validate:"required"`
	Mitigated              string `mapstructure:"mitigated" validate:"required"`
	ComponentNotApplicable string `mapstructure:"componentNotApplicable" validate:"required"`
}

func DefaultStatuses() Statuses {
	return Statuses{
		ToDo:                   "To Do",
		Done:                   "Done",
		NotApplicable:          "Not Applicable",
		Mitigated:              "Mitigated",
		ComponentNotApplicable: "Component Not Applicable",
	}
}

// closed tickets are not touched by deletions
func (s Statuses) isClosed(status string) bool {
	return status == s.Done || status == s.NotApplicable || status == s.Mitigated || status == s.ComponentNotApplicable
}

// reopenable tickets go back to to do once they receive relevant vulnerabilities again
func (s Statuses) isReopenable(status string) bool {
	return status == s.Done || status == s.NotApplicable || status == s.Mitigated
}

type Policy struct {
	Statuses Statuses
	// CloseOnScan lets deletions from the scan stream update and close tickets.
	CloseOnScan bool
}

func DefaultPolicy() Policy {
	return Policy{
		Statuses:    DefaultStatuses(),
		CloseOnScan: true,
	}
}

type ReconcileInput struct {
	Notification dtos.Notification
	Stream       Stream
	// resolved vulnerability records of the run, keyed by vulnerability id
	Records map[string]dtos.VulnerabilityRecord
	// nil if the tracker does not know the component yet
	Ticket *dtos.TicketState
	// keys of tickets for the same component in other projects
	RelatedKeys      []string
	Files            []string
	TrackerComponent string
	Labels           []string
}

// Reconcile decides which tracker mutations one notification requires given
// the current state of its ticket. It never mutates the input.
func Reconcile(in ReconcileInput, policy Policy) (dtos.Plan, error) {
	n := in.Notification
	switch n.Cause {
	case dtos.CauseNew, dtos.CauseDeleted, dtos.CauseUpdated:
	default:
		return dtos.Plan{}, fmt.Errorf("unknown notification cause: %q", n.Cause)
	}

	records := notificationRecords(n, in.Records)
	severity := dtos.SeverityUnknown
	for _, r := range records {
		severity = dtos.MaxSeverity(severity, r.Severity)
	}

	if in.Ticket == nil {
		return reconcileWithoutTicket(in, records, severity), nil
	}

	t := in.Ticket
	if !t.LastUpdate.IsZero() && !t.LastUpdate.Before(n.Timestamp) {
		return dtos.NoOpPlan(n, "stale notification"), nil
	}
	if t.Status == policy.Statuses.ComponentNotApplicable {
		return dtos.NoOpPlan(n, "component not applicable"), nil
	}
	// excluded or unknown ids never touch an existing ticket
	if n.Cause != dtos.CauseDeleted && len(records) == 0 {
		return dtos.NoOpPlan(n, "no resolvable vulnerabilities"), nil
	}
	if severity == dtos.SeverityLow {
		return dtos.NoOpPlan(n, "low severity"), nil
	}

	state := cloneTicketState(*t)
	switch n.Cause {
	case dtos.CauseNew:
		changed := false
		for _, r := range records {
			if slices.Contains(state.CVEList, r.ID) {
				continue
			}
			state.CVEList = append(state.CVEList, r.ID)
			state.CVEDetails[r.ID] = cveDetailFromRecord(r)
			changed = true
		}
		if !changed {
			return dtos.NoOpPlan(n, "no new vulnerabilities"), nil
		}

	case dtos.CauseDeleted:
		if in.Stream == StreamScan && !policy.CloseOnScan {
			return dtos.NoOpPlan(n, "close on scan disabled"), nil
		}
		if policy.Statuses.isClosed(state.Status) {
			return dtos.NoOpPlan(n, "ticket already closed"), nil
		}
		changed := removeVulnerabilities(&state, n.CVEIDs)
		if len(state.CVEList) == 0 {
			fields := updatedFields(n, state, in.Files)
			// an empty, non nil list clears the stored severity
			fields.CVEList = []string{}
			return dtos.Plan{
				Notification: n,
				Decisions: []dtos.Decision{{
					Action:   dtos.ActionTransitionDone,
					IssueKey: state.Key,
					Fields:   fields,
					At:       n.Timestamp,
				}},
			}, nil
		}
		if !changed {
			return dtos.NoOpPlan(n, "no vulnerabilities to remove"), nil
		}

	case dtos.CauseUpdated:
		for _, r := range records {
			if !slices.Contains(state.CVEList, r.ID) {
				state.CVEList = append(state.CVEList, r.ID)
			}
			state.CVEDetails[r.ID] = cveDetailFromRecord(r)
		}
	}

	fields := updatedFields(n, state, in.Files)
	plan := dtos.Plan{
		Notification: n,
		Decisions: []dtos.Decision{{
			Action:   dtos.ActionUpdateFields,
			IssueKey: state.Key,
			Fields:   fields,
			At:       n.Timestamp,
		}},
	}
	if policy.Statuses.isReopenable(state.Status) && fields.Severity > dtos.SeverityLow {
		plan.Decisions = append(plan.Decisions, dtos.Decision{
			Action:   dtos.ActionTransitionToDo,
			IssueKey: state.Key,
			At:       n.Timestamp,
		})
	}
	return plan, nil
}

func reconcileWithoutTicket(in ReconcileInput, records []dtos.VulnerabilityRecord, severity dtos.Severity) dtos.Plan {
	n := in.Notification
	if n.Cause == dtos.CauseDeleted {
		return dtos.NoOpPlan(n, "no ticket to close")
	}
	if len(records) == 0 {
		return dtos.NoOpPlan(n, "no resolvable vulnerabilities")
	}

	cveList := make([]string, 0, len(records))
	details := make(map[string]dtos.CVEDetail, len(records))
	for _, r := range records {
		cveList = append(cveList, r.ID)
		details[r.ID] = cveDetailFromRecord(r)
	}

	plan := dtos.Plan{
		Notification: n,
		Decisions: []dtos.Decision{{
			Action: dtos.ActionCreate,
			Fields: &dtos.TicketFields{
				Summary:          TicketSummary(n),
				Detail:           FormatDetail(n, cveList, details, in.Files),
				Severity:         severity,
				CVEList:          cveList,
				LastUpdate:       n.Timestamp,
				ComponentName:    n.ComponentName,
				ComponentVersion: n.ComponentVersion,
				ProjectName:      n.ProjectName,
				ProjectVersion:   n.ProjectVersion,
				TrackerComponent: in.TrackerComponent,
				Labels:           in.Labels,
			},
			At: n.Timestamp,
		}},
	}

	// low severity tickets are kept for the record but parked
	if severity == dtos.SeverityLow {
		plan.Decisions = append(plan.Decisions, dtos.Decision{
			Action: dtos.ActionTransitionNotApplicable,
			At:     n.Timestamp,
		})
	}
	for _, key := range in.RelatedKeys {
		plan.Decisions = append(plan.Decisions, dtos.Decision{
			Action: dtos.ActionLink,
			LinkTo: key,
			At:     n.Timestamp,
		})
	}
	return plan
}

// notificationRecords returns the resolved records of the notification in
// the order of its ids. Ids without a record are skipped.
func notificationRecords(n dtos.Notification, records map[string]dtos.VulnerabilityRecord) []dtos.VulnerabilityRecord {
	res := make([]dtos.VulnerabilityRecord, 0, len(n.CVEIDs))
	for _, id := range utils.Uniq(n.CVEIDs) {
		if r, ok := records[id]; ok {
			res = append(res, r)
		}
	}
	return res
}

func cveDetailFromRecord(r dtos.VulnerabilityRecord) dtos.CVEDetail {
	return dtos.CVEDetail{
		Severity:  r.Severity,
		Link:      r.Link,
		CrossID:   r.CrossID,
		CrossLink: r.CrossLink,
	}
}

// removeVulnerabilities drops every entry matching one of the ids either by
// its own id or by its cross reference.
func removeVulnerabilities(state *dtos.TicketState, ids []string) bool {
	remove := utils.NewSet[string]()
	for _, id := range ids {
		remove.Append(id)
		for key, d := range state.CVEDetails {
			if d.CrossID == id {
				remove.Append(key)
			}
		}
	}

	before := len(state.CVEList) + len(state.CVEDetails)
	state.CVEList = slices.DeleteFunc(state.CVEList, remove.Contains)
	maps.DeleteFunc(state.CVEDetails, func(key string, _ dtos.CVEDetail) bool {
		return remove.Contains(key)
	})
	return len(state.CVEList)+len(state.CVEDetails) != before
}

func updatedFields(n dtos.Notification, state dtos.TicketState, files []string) *dtos.TicketFields {
	return &dtos.TicketFields{
		Detail:     RebuildDetail(state, files),
		Severity:   RecomputeSeverity(state.CVEDetails),
		CVEList:    state.CVEList,
		LastUpdate: n.Timestamp,
	}
}

func cloneTicketState(t dtos.TicketState) dtos.TicketState {
	t.CVEList = slices.Clone(t.CVEList)
	if t.CVEDetails == nil {
		t.CVEDetails = make(map[string]dtos.CVEDetail)
	} else {
		t.CVEDetails = maps.Clone(t.CVEDetails)
	}
	t.Files = slices.Clone(t.Files)
	return t
}

// TicketStateFromIssue builds the reconciler view of a tracker issue. The
// stored severity is ignored and recomputed from the detail body.
func TicketStateFromIssue(issue dtos.Issue) (dtos.TicketState, error) {
	parsed, err := ParseDetail(issue.Detail)
	if err != nil {
		return dtos.TicketState{}, fmt.Errorf("issue %s: %w", issue.Key, err)
	}

	cveList := utils.ParseCommaSeparatedList(issue.CVEList)
	if len(cveList) == 0 {
		cveList = parsed.CVEList
	}

	return dtos.TicketState{
		Key:         issue.Key,
		Status:      issue.Status,
		CVEList:     cveList,
		CVEDetails:  parsed.CVEDetails,
		Severity:    RecomputeSeverity(parsed.CVEDetails),
		LastUpdate:  issue.LastUpdate,
		Files:       parsed.Files,
		Summary:     parsed.Summary,
		FileSection: parsed.FileSection,
	}, nil
}
