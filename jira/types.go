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
	"encoding/json"
)

//based on https://pkg.go.dev/github.com/andygrunwald/go-jira

// Issue keeps its fields raw since most of the interesting ones are custom
// fields whose ids are only known from the configuration.
type Issue struct {
	ID     string                     `json:"id,omitempty"`
	Key    string                     `json:"key,omitempty"`
	Self   string                     `json:"self,omitempty"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
}

type Status struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name,omitempty"`
	StatusCategory StatusCategory `json:"statusCategory,omitempty"`
}

type StatusCategory struct {
	ID   int    `json:"id,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

type IssueType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Subtask bool   `json:"subtask,omitempty"`
}

type IssueLinkType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
}

// LinkedIssueRef is the reduced issue embedded in an issue link.
type LinkedIssueRef struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
	Fields struct {
		IssueType IssueType `json:"issuetype"`
		Status    *Status   `json:"status,omitempty"`
	} `json:"fields"`
}

type IssueLink struct {
	ID           string          `json:"id,omitempty"`
	Type         IssueLinkType   `json:"type"`
	InwardIssue  *LinkedIssueRef `json:"inwardIssue,omitempty"`
	OutwardIssue *LinkedIssueRef `json:"outwardIssue,omitempty"`
}

type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   Status `json:"to"`
}

type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

type ProjectCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID              string           `json:"id,omitempty"`
	Key             string           `json:"key,omitempty"`
	Name            string           `json:"name,omitempty"`
	ProjectCategory *ProjectCategory `json:"projectCategory,omitempty"`
}

type CreateIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields,omitempty"`
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// option is the payload of single and multi select custom fields
type option struct {
	Value string `json:"value"`
}

func (i Issue) decodeField(id string, v any) bool {
	raw, ok := i.Fields[id]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// StringField reads text fields as well as select fields.
func (i Issue) StringField(id string) string {
	var s string
	if i.decodeField(id, &s) {
		return s
	}
	var o option
	if i.decodeField(id, &o) {
		return o.Value
	}
	return ""
}

func (i Issue) Status() string {
	var s Status
	i.decodeField("status", &s)
	return s.Name
}

func (i Issue) IssueType() string {
	var t IssueType
	i.decodeField("issuetype", &t)
	return t.Name
}

func (i Issue) IssueLinks() []IssueLink {
	var links []IssueLink
	i.decodeField("issuelinks", &links)
	return links
}
