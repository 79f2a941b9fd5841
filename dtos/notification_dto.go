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

type NotificationCause string

const (
	CauseNew     NotificationCause = "NEW"
	CauseDeleted NotificationCause = "DELETED"
	CauseUpdated NotificationCause = "UPDATED"
)

type EventSource string

const (
	EventSourceScan       EventSource = "SCAN"
	EventSourceUserAction EventSource = "USER_ACTION"
	EventSourceKBUpdate   EventSource = "KB_UPDATE"
	EventSourceOther      EventSource = "OTHER"
)

// values of vulnerabilityNotificationCause as sent by the scanner
const (
	RawCauseAdded           = "ADDED"
	RawCauseRemoved         = "REMOVED"
	RawCauseSeverityChanged = "SEVERITY_CHANGED"
	RawCauseIgnoreChanged   = "IGNORE_CHANGED"
)

// Notification is a single vulnerability change for one
// (component, version, project, project version) tuple.
type Notification struct {
	ComponentName       string `json:"componentName"`
	ComponentVersion    string `json:"componentVersion"`
	ComponentVersionURL string `json:"componentVersionUrl"`

	ProjectName       string `json:"projectName"`
	ProjectVersion    string `json:"projectVersion"`
	ProjectVersionURL string `json:"projectVersionUrl"`

	CVEIDs    []string          `json:"cveIds"`
	Cause     NotificationCause `json:"cause"`
	Source    EventSource       `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
}

func (n Notification) ComponentKey() string {
	return n.ComponentName + "@" + n.ComponentVersion
}

type NotificationFilter struct {
	ProjectName    string
	ProjectVersion string
	Since          *time.Time
	Until          *time.Time
}

// RawNotification is the scanner's vulnerability notification envelope.
type RawNotification struct {
	Type      string                 `json:"type"`
	CreatedAt string                 `json:"createdAt"`
	Content   RawNotificationContent `json:"content"`
}

type RawNotificationContent struct {
	ComponentName                  string                   `json:"componentName"`
	VersionName                    string                   `json:"versionName"`
	ComponentVersion               string                   `json:"componentVersion"`
	ComponentVersionOriginName     string                   `json:"componentVersionOriginName,omitempty"`
	EventSource                    string                   `json:"eventSource"`
	VulnerabilityNotificationCause string                   `json:"vulnerabilityNotificationCause"`
	NewVulnerabilityIDs            []RawVulnerabilityRef    `json:"newVulnerabilityIds"`
	UpdatedVulnerabilityIDs        []RawVulnerabilityRef    `json:"updatedVulnerabilityIds"`
	DeletedVulnerabilityIDs        []RawVulnerabilityRef    `json:"deletedVulnerabilityIds"`
	AffectedProjectVersions        []AffectedProjectVersion `json:"affectedProjectVersions"`
}

type RawVulnerabilityRef struct {
	VulnerabilityID string `json:"vulnerabilityId"`
	Source          string `json:"source,omitempty"`
	Severity        string `json:"severity,omitempty"`
}

type AffectedProjectVersion struct {
	ProjectName        string `json:"projectName"`
	ProjectVersionName string `json:"projectVersionName"`
	ProjectVersion     string `json:"projectVersion"`
}

func (c RawNotificationContent) AffectsProject(projectName string) bool {
	for _, apv := range c.AffectedProjectVersions {
		if apv.ProjectName == projectName {
			return true
		}
	}
	return false
}

func (c RawNotificationContent) AffectsProjectVersion(versionName string) bool {
	for _, apv := range c.AffectedProjectVersions {
		if apv.ProjectVersionName == versionName {
			return true
		}
	}
	return false
}
