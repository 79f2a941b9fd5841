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

package dtos

import "time"

// Issue is the tracker neutral view of a ticket as returned by an IssueTracker.
type Issue struct {
	Key        string
	Status     string
	CVEList    string
	Severity   string
	Detail     string
	LastUpdate time.Time
}

type IssueQuery struct {
	Project          string
	ComponentName    string
	ComponentVersion string
	ProjectName      string
	// empty means any project version
	ProjectVersion string
}

type CVEDetail struct {
	Severity  Severity
	Link      string
	CrossID   string
	CrossLink string
}

type TicketState struct {
	Key        string
	Status     string
	CVEList    []string
	CVEDetails map[string]CVEDetail
	Severity   Severity
	LastUpdate time.Time
	Files      []string

	// first section of the stored detail body, kept verbatim on updates
	Summary string
	// raw third section of the stored detail body
	FileSection string
}

// TicketFields are the values written to the tracker. Zero values are not sent,
// except CVEList which is always written together with a Detail.
type TicketFields struct {
	Summary          string
	Detail           string
	Severity         Severity
	CVEList          []string
	LastUpdate       time.Time
	ComponentName    string
	ComponentVersion string
	ProjectName      string
	ProjectVersion   string
	TrackerComponent string
	Labels           []string
}

type Action string

const (
	ActionNoOp                    Action = "NO_OP"
	ActionCreate                  Action = "CREATE"
	ActionReopen                  Action = "REOPEN"
	ActionUpdateFields            Action = "UPDATE_FIELDS"
	ActionTransitionDone          Action = "TRANSITION_DONE"
	ActionTransitionToDo          Action = "TRANSITION_TO_DO"
	ActionTransitionNotApplicable Action = "TRANSITION_NOT_APPLICABLE"
	ActionLink                    Action = "LINK"
)

type Decision struct {
	Action   Action
	IssueKey string
	Fields   *TicketFields
	LinkTo   string
	At       time.Time
	Reason   string
}

// Plan is the ordered list of decisions computed for one notification.
type Plan struct {
	Notification Notification
	Decisions    []Decision
}

func (p Plan) Actions() []Action {
	actions := make([]Action, len(p.Decisions))
	for i, d := range p.Decisions {
		actions[i] = d.Action
	}
	return actions
}

// Primary returns the first decision's action. An empty plan is a no-op.
func (p Plan) Primary() Action {
	if len(p.Decisions) == 0 {
		return ActionNoOp
	}
	return p.Decisions[0].Action
}

func (p Plan) IsNoOp() bool {
	for _, d := range p.Decisions {
		if d.Action != ActionNoOp {
			return false
		}
	}
	return true
}

func NoOpPlan(n Notification, reason string) Plan {
	return Plan{
		Notification: n,
		Decisions:    []Decision{{Action: ActionNoOp, Reason: reason, At: n.Timestamp}},
	}
}

// IssueRef is an issue on the other end of an issue link.
type IssueRef struct {
	Key       string
	IssueType string
}

type LinkedIssue struct {
	Key       string
	IssueType string
	Links     []IssueRef
}
