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

package jira

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/utils"
)

// the format jira expects for datetime custom fields
const dateTimeFormat = "2006-01-02T15:04:05.000-0700"

var ErrNoTransition = errors.New("no transition into the target status")

// FieldIDs are the ids of the fields a ticket is stored in, like
// customfield_12345. Detail defaults to the description.
type FieldIDs struct {
	CVEList          string `mapstructure:"cveList" validate:"required"`
	Severity         string `mapstructure:"severity" validate:"required"`
	Detail           string `mapstructure:"detail"`
	LastUpdate       string `mapstructure:"lastUpdate" validate:"required"`
	ComponentName    string `mapstructure:"componentName" validate:"required"`
	ComponentVersion string `mapstructure:"componentVersion" validate:"required"`
	ProjectName      string `mapstructure:"projectName" validate:"required"`
	ProjectVersion   string `mapstructure:"projectVersion" validate:"required"`
}

type TrackerOptions struct {
	Fields    FieldIDs
	IssueType string
	LinkType  string
	PageSize  int
}

// Tracker stores tickets as jira issues.
type Tracker struct {
	client *Client
	opts   TrackerOptions
}

func NewTracker(client *Client, opts TrackerOptions) *Tracker {
	if opts.Fields.Detail == "" {
		opts.Fields.Detail = "description"
	}
	if opts.IssueType == "" {
		opts.IssueType = "Bug"
	}
	if opts.LinkType == "" {
		opts.LinkType = "Relates"
	}
	return &Tracker{client: client, opts: opts}
}

// fieldRef turns a custom field id into its jql reference.
func fieldRef(fieldID string) string {
	if n, ok := strings.CutPrefix(fieldID, "customfield_"); ok {
		return "cf[" + n + "]"
	}
	return fieldID
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func (t *Tracker) searchJQL(query dtos.IssueQuery) string {
	f := t.opts.Fields
	clauses := []string{
		"project = " + quote(query.Project),
		fieldRef(f.ComponentName) + " ~ " + quote(query.ComponentName),
		fieldRef(f.ComponentVersion) + " ~ " + quote(query.ComponentVersion),
		fieldRef(f.ProjectName) + " ~ " + quote(query.ProjectName),
	}
	if query.ProjectVersion != "" {
		clauses = append(clauses, fieldRef(f.ProjectVersion)+" ~ "+quote(query.ProjectVersion))
	}
	return strings.Join(clauses, " AND ")
}

func (t *Tracker) SearchIssues(ctx context.Context, query dtos.IssueQuery) ([]dtos.Issue, error) {
	f := t.opts.Fields
	fields := []string{"status", f.CVEList, f.Severity, f.Detail, f.LastUpdate, f.ComponentName, f.ComponentVersion, f.ProjectName, f.ProjectVersion}

	issues, err := t.client.SearchIssues(ctx, t.searchJQL(query), fields, t.opts.PageSize)
	if err != nil {
		return nil, err
	}

	// the contains operator of jql also matches similar values
	issues = utils.Filter(issues, func(i Issue) bool {
		return i.StringField(f.ComponentName) == query.ComponentName &&
			i.StringField(f.ComponentVersion) == query.ComponentVersion &&
			i.StringField(f.ProjectName) == query.ProjectName &&
			(query.ProjectVersion == "" || i.StringField(f.ProjectVersion) == query.ProjectVersion)
	})

	return utils.Map(issues, t.toIssue), nil
}

func (t *Tracker) toIssue(i Issue) dtos.Issue {
	f := t.opts.Fields
	issue := dtos.Issue{
		Key:      i.Key,
		Status:   i.Status(),
		CVEList:  i.StringField(f.CVEList),
		Severity: i.StringField(f.Severity),
		Detail:   i.StringField(f.Detail),
	}
	if raw := i.StringField(f.LastUpdate); raw != "" {
		lastUpdate, err := parseDateTime(raw)
		if err != nil {
			slog.Warn("could not parse last update of issue", "issue", i.Key, "value", raw, "err", err)
		}
		issue.LastUpdate = lastUpdate
	}
	return issue
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{dateTimeFormat, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format: %q", s)
}

// fieldsPayload only contains the set fields. The vulnerability list always
// goes along with the detail since both describe the same set.
func (t *Tracker) fieldsPayload(fields dtos.TicketFields) map[string]any {
	f := t.opts.Fields
	payload := make(map[string]any)

	if fields.Summary != "" {
		payload["summary"] = fields.Summary
	}
	if fields.Detail != "" || fields.CVEList != nil {
		payload[f.CVEList] = strings.Join(fields.CVEList, ",")
	}
	if fields.Detail != "" {
		payload[f.Detail] = fields.Detail
	}
	switch {
	case fields.Severity != dtos.SeverityUnknown:
		payload[f.Severity] = option{Value: fields.Severity.String()}
	case fields.CVEList != nil && len(fields.CVEList) == 0:
		// nothing left to rate
		payload[f.Severity] = nil
	}
	if !fields.LastUpdate.IsZero() {
		payload[f.LastUpdate] = fields.LastUpdate.Format(dateTimeFormat)
	}
	if fields.ComponentName != "" {
		payload[f.ComponentName] = fields.ComponentName
	}
	if fields.ComponentVersion != "" {
		payload[f.ComponentVersion] = fields.ComponentVersion
	}
	if fields.ProjectName != "" {
		payload[f.ProjectName] = fields.ProjectName
	}
	if fields.ProjectVersion != "" {
		payload[f.ProjectVersion] = fields.ProjectVersion
	}
	if fields.TrackerComponent != "" {
		payload["components"] = []map[string]string{{"name": fields.TrackerComponent}}
	}
	if len(fields.Labels) > 0 {
		payload["labels"] = fields.Labels
	}
	return payload
}

func (t *Tracker) CreateIssue(ctx context.Context, project string, fields dtos.TicketFields) (dtos.Issue, error) {
	payload := t.fieldsPayload(fields)
	payload["project"] = map[string]string{"key": project}
	payload["issuetype"] = map[string]string{"name": t.opts.IssueType}

	created, err := t.client.CreateIssue(ctx, payload)
	if err != nil {
		return dtos.Issue{}, err
	}

	return dtos.Issue{
		Key:        created.Key,
		CVEList:    strings.Join(fields.CVEList, ","),
		Severity:   fields.Severity.String(),
		Detail:     fields.Detail,
		LastUpdate: fields.LastUpdate,
	}, nil
}

func (t *Tracker) UpdateIssue(ctx context.Context, key string, fields dtos.TicketFields) error {
	payload := t.fieldsPayload(fields)
	if len(payload) == 0 {
		return nil
	}
	return t.client.EditIssue(ctx, key, payload, true)
}

// transitionInto picks the transition leading into the status. Workflows may
// name the transition itself after the status, so both are checked.
func transitionInto(transitions []Transition, status string) (Transition, error) {
	if transition, ok := utils.Find(transitions, func(tr Transition) bool { return strings.EqualFold(tr.To.Name, status) }); ok {
		return transition, nil
	}
	if transition, ok := utils.Find(transitions, func(tr Transition) bool { return strings.EqualFold(tr.Name, status) }); ok {
		return transition, nil
	}
	return Transition{}, errors.Wrap(ErrNoTransition, status)
}

func (t *Tracker) TransitionIssue(ctx context.Context, key string, targetStatus string, at time.Time, fields *dtos.TicketFields) error {
	transitions, err := t.client.GetTransitions(ctx, key)
	if err != nil {
		return err
	}

	transition, err := transitionInto(transitions, targetStatus)
	if err != nil {
		slog.Error("could not find transition", "issue", key, "status", targetStatus, "err", err)
		return fmt.Errorf("could not transition %s: %w", key, err)
	}

	if err := t.client.TransitionIssue(ctx, key, transition.ID); err != nil {
		return err
	}

	var payload map[string]any
	if fields != nil {
		payload = t.fieldsPayload(*fields)
	} else {
		payload = make(map[string]any)
	}
	if !at.IsZero() {
		payload[t.opts.Fields.LastUpdate] = at.Format(dateTimeFormat)
	}
	if len(payload) == 0 {
		return nil
	}
	return t.client.EditIssue(ctx, key, payload, true)
}

func (t *Tracker) CreateIssueLink(ctx context.Context, keyA, keyB string) error {
	return t.client.CreateIssueLink(ctx, t.opts.LinkType, keyA, keyB)
}

func (t *Tracker) SearchLinkedIssues(ctx context.Context, jql string) ([]dtos.LinkedIssue, error) {
	issues, err := t.client.SearchIssues(ctx, jql, []string{"issuetype", "issuelinks"}, t.opts.PageSize)
	if err != nil {
		return nil, err
	}

	return utils.Map(issues, func(i Issue) dtos.LinkedIssue {
		linked := dtos.LinkedIssue{Key: i.Key, IssueType: i.IssueType()}
		for _, link := range i.IssueLinks() {
			for _, ref := range []*LinkedIssueRef{link.OutwardIssue, link.InwardIssue} {
				if ref != nil {
					linked.Links = append(linked.Links, dtos.IssueRef{Key: ref.Key, IssueType: ref.Fields.IssueType.Name})
				}
			}
		}
		return linked
	}), nil
}

func (t *Tracker) ListProjectsInCategory(ctx context.Context, category string) ([]string, error) {
	projects, err := t.client.FetchAllProjects(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	for _, p := range projects {
		if p.ProjectCategory != nil && p.ProjectCategory.Name == category {
			keys = append(keys, p.Key)
		}
	}
	return keys, nil
}

func (t *Tracker) SetSelectField(ctx context.Context, key string, fieldID string, value string, notify bool) error {
	return t.client.EditIssue(ctx, key, map[string]any{fieldID: option{Value: value}}, notify)
}
