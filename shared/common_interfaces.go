// Copyright (C) 2025 timbastin
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

package shared

import (
	"context"
	"time"

	"github.com/l3montree-dev/vulnsync/dtos"
)

// VulnerabilitySource is the scanner holding components and their vulnerabilities.
type VulnerabilitySource interface {
	ListNotifications(ctx context.Context, filter dtos.NotificationFilter) ([]dtos.RawNotification, error)
	// GetVulnerabilityDetail returns nil without error if the id is unknown.
	GetVulnerabilityDetail(ctx context.Context, id string) (*dtos.VulnerabilityDetail, error)
	// GetMatchedFiles maps component version urls to the file paths they were found in.
	GetMatchedFiles(ctx context.Context, projectVersionURL string) (map[string][]string, error)
	GetProjectVersion(ctx context.Context, projectName, versionName string) (dtos.ProjectVersion, error)
}

type IssueTracker interface {
	SearchIssues(ctx context.Context, query dtos.IssueQuery) ([]dtos.Issue, error)
	CreateIssue(ctx context.Context, project string, fields dtos.TicketFields) (dtos.Issue, error)
	UpdateIssue(ctx context.Context, key string, fields dtos.TicketFields) error
	// TransitionIssue moves the issue into the target status and records the
	// time of the change. Fields are written after the transition if not nil.
	TransitionIssue(ctx context.Context, key string, targetStatus string, at time.Time, fields *dtos.TicketFields) error
	CreateIssueLink(ctx context.Context, keyA, keyB string) error
}

type IssueImpactTracker interface {
	SearchLinkedIssues(ctx context.Context, jql string) ([]dtos.LinkedIssue, error)
	ListProjectsInCategory(ctx context.Context, category string) ([]string, error)
	SetSelectField(ctx context.Context, key string, fieldID string, value string, notify bool) error
}
