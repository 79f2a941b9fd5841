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

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = []string{
	"UNKNOWN",
	"LOW",
	"MEDIUM",
	"HIGH",
	"CRITICAL",
}

func ParseSeverity(s string) (Severity, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range severityNames {
		if s == name {
			return Severity(i), nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity: %q", s)
}

func (s Severity) String() string {
	if s < SeverityUnknown || s > SeverityCritical {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

// MaxSeverity returns the most severe of the given severities.
func MaxSeverity(severities ...Severity) Severity {
	highest := SeverityUnknown
	for _, s := range severities {
		if s > highest {
			highest = s
		}
	}
	return highest
}

type VulnSource string

const (
	VulnSourceBDSA VulnSource = "BDSA"
	VulnSourceNVD  VulnSource = "NVD"
)

func (s VulnSource) IsKnown() bool {
	return s == VulnSourceBDSA || s == VulnSourceNVD
}

// link relations and labels used by the scanner to cross reference
// vulnerability databases
const (
	LinkRelNist   = "nist"
	LinkLabelBDSA = "BDSA"
	LinkLabelNVD  = "NVD"
)

type VulnerabilityLink struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Label string `json:"label,omitempty"`
}

// VulnerabilityDetail is the scanner's detail payload for one vulnerability id.
type VulnerabilityDetail struct {
	Name        string              `json:"name"`
	Source      string              `json:"source"`
	Severity    *string             `json:"severity"`
	Href        string              `json:"href"`
	Links       []VulnerabilityLink `json:"links"`
	CVSS3Vector string              `json:"cvss3Vector,omitempty"`
	UpdatedDate string              `json:"updatedDate,omitempty"`
}

func (d VulnerabilityDetail) LinkByRel(rel string) string {
	for _, l := range d.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func (d VulnerabilityDetail) LinkByLabel(label string) string {
	for _, l := range d.Links {
		if l.Label == label {
			return l.Href
		}
	}
	return ""
}

// VulnerabilityRecord is the resolved view of a vulnerability id.
// Records never carry an unknown source or a missing severity.
type VulnerabilityRecord struct {
	ID       string     `json:"id"`
	Severity Severity   `json:"severity"`
	Source   VulnSource `json:"source"`
	Link     string     `json:"link"`

	CrossID       string   `json:"crossId,omitempty"`
	CrossLink     string   `json:"crossLink,omitempty"`
	CrossSeverity Severity `json:"crossSeverity,omitempty"`

	Score float64 `json:"score,omitempty"`
}

type ProjectVersion struct {
	VersionName string `json:"versionName"`
	Phase       string `json:"phase"`
	Href        string `json:"href"`
}

func (v ProjectVersion) IsArchived() bool {
	return strings.EqualFold(v.Phase, "ARCHIVED")
}
