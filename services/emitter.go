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
	"context"
	"fmt"
	"log/slog"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/monitoring"
	"github.com/l3montree-dev/vulnsync/shared"
	"github.com/l3montree-dev/vulnsync/statemachine"
)

type EmitResult struct {
	Created       int
	Updated       int
	Closed        int
	Reopened      int
	NotApplicable int
	Linked        int
	NoOps         int
	// key of the ticket created by the plan, if any
	CreatedKey string
}

func (r *EmitResult) Add(other EmitResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Closed += other.Closed
	r.Reopened += other.Reopened
	r.NotApplicable += other.NotApplicable
	r.Linked += other.Linked
	r.NoOps += other.NoOps
}

// Emitter turns plans into tracker calls, one call per decision.
type Emitter struct {
	tracker  shared.IssueTracker
	project  string
	statuses statemachine.Statuses
}

func NewEmitter(tracker shared.IssueTracker, project string, statuses statemachine.Statuses) *Emitter {
	return &Emitter{
		tracker:  tracker,
		project:  project,
		statuses: statuses,
	}
}

// Apply executes the decisions in order and stops at the first failing call.
// Decisions without an issue key address the ticket created earlier in the plan.
func (e *Emitter) Apply(ctx context.Context, plan dtos.Plan) (EmitResult, error) {
	var result EmitResult
	n := plan.Notification

	keyOf := func(d dtos.Decision) (string, error) {
		if d.IssueKey != "" {
			return d.IssueKey, nil
		}
		if result.CreatedKey != "" {
			return result.CreatedKey, nil
		}
		return "", fmt.Errorf("decision %s has no issue to act on", d.Action)
	}

	for _, d := range plan.Decisions {
		if d.Action == dtos.ActionNoOp {
			slog.Debug("nothing to do", "component", n.ComponentKey(), "project", n.ProjectName, "projectVersion", n.ProjectVersion, "reason", d.Reason)
			result.NoOps++
			continue
		}
		if d.Action == dtos.ActionCreate {
			if d.Fields == nil {
				return result, fmt.Errorf("create decision without fields")
			}
			issue, err := e.tracker.CreateIssue(ctx, e.project, *d.Fields)
			if err != nil {
				return result, fmt.Errorf("could not create ticket for %s: %w", n.ComponentKey(), err)
			}
			slog.Info("created ticket", "issue", issue.Key, "component", n.ComponentKey(), "severity", d.Fields.Severity)
			result.CreatedKey = issue.Key
			result.Created++
			monitoring.TicketCreatedAmount.Inc()
			continue
		}

		key, err := keyOf(d)
		if err != nil {
			return result, err
		}

		switch d.Action {
		case dtos.ActionUpdateFields:
			if d.Fields == nil {
				return result, fmt.Errorf("update decision for %s without fields", key)
			}
			if err := e.tracker.UpdateIssue(ctx, key, *d.Fields); err != nil {
				return result, fmt.Errorf("could not update %s: %w", key, err)
			}
			slog.Info("updated ticket", "issue", key, "vulnerabilities", len(d.Fields.CVEList))
			result.Updated++
			monitoring.TicketUpdatedAmount.Inc()

		case dtos.ActionTransitionDone:
			if err := e.tracker.TransitionIssue(ctx, key, e.statuses.Done, d.At, d.Fields); err != nil {
				return result, fmt.Errorf("could not close %s: %w", key, err)
			}
			slog.Info("closed ticket", "issue", key)
			result.Closed++
			monitoring.TicketClosedAmount.Inc()

		case dtos.ActionTransitionToDo, dtos.ActionReopen:
			if err := e.tracker.TransitionIssue(ctx, key, e.statuses.ToDo, d.At, d.Fields); err != nil {
				return result, fmt.Errorf("could not reopen %s: %w", key, err)
			}
			slog.Info("reopened ticket", "issue", key)
			result.Reopened++
			monitoring.TicketReopenedAmount.Inc()

		case dtos.ActionTransitionNotApplicable:
			if err := e.tracker.TransitionIssue(ctx, key, e.statuses.NotApplicable, d.At, d.Fields); err != nil {
				return result, fmt.Errorf("could not move %s to not applicable: %w", key, err)
			}
			result.NotApplicable++
			monitoring.TicketNotApplicableAmount.Inc()

		case dtos.ActionLink:
			if err := e.tracker.CreateIssueLink(ctx, key, d.LinkTo); err != nil {
				return result, fmt.Errorf("could not link %s to %s: %w", key, d.LinkTo, err)
			}
			result.Linked++
			monitoring.TicketLinkedAmount.Inc()

		default:
			return result, fmt.Errorf("unknown action %q", d.Action)
		}
	}
	return result, nil
}
