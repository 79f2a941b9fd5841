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
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/l3montree-dev/vulnsync/dtos"
)

// DetailAnchor separates the three sections of a stored detail body:
// summary, vulnerability lines and files.
const DetailAnchor = "{anchor}"

const (
	sectionRule = "---------------------------------------"
	filesHeader = "*Files*:"
)

var ErrMalformedDetail = errors.New("malformed ticket detail")

// SEVERITY:[ [ID|link] ] with an optional second [ID|link] pair for the cross reference
var cveLineRegex = regexp.MustCompile(`^([A-Za-z]+):\[ \[([^|\]]+)\|([^\]]*)\](?: \[([^|\]]+)\|([^\]]*)\])? \]$`)

type ParsedDetail struct {
	Summary     string
	CVEList     []string
	CVEDetails  map[string]dtos.CVEDetail
	FileSection string
	Files       []string
}

// TicketSummary is the one line title of a ticket.
func TicketSummary(n dtos.Notification) string {
	return fmt.Sprintf("%s:%s,%s:%s", n.ProjectName, n.ProjectVersion, n.ComponentName, n.ComponentVersion)
}

func formatSummarySection(n dtos.Notification, severity dtos.Severity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Project*:%s\n", n.ProjectName)
	fmt.Fprintf(&b, "*Project Version*:%s\n", n.ProjectVersion)
	b.WriteString(sectionRule + "\n")
	fmt.Fprintf(&b, "*Component*:*%s*\n", n.ComponentName)
	fmt.Fprintf(&b, "*Component Version*:%s\n", n.ComponentVersion)
	fmt.Fprintf(&b, "*Severity Status*:*%s*\n", severity)
	b.WriteString(sectionRule + "\n*Current Vulnerabilities*:\n")
	return b.String()
}

func formatCVELine(id string, d dtos.CVEDetail) string {
	line := fmt.Sprintf("%s:[ [%s|%s]", d.Severity, id, d.Link)
	if d.CrossID != "" {
		line += fmt.Sprintf(" [%s|%s]", d.CrossID, d.CrossLink)
	}
	return line + " ]"
}

// orderedCVEIDs returns the ids in list order followed by detail only ids,
// stable sorted with the most severe first.
func orderedCVEIDs(list []string, details map[string]dtos.CVEDetail) []string {
	ids := make([]string, 0, len(details))
	for _, id := range list {
		if _, ok := details[id]; ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	rest := make([]string, 0)
	for id := range details {
		if !slices.Contains(ids, id) {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	sort.SliceStable(ids, func(i, j int) bool {
		return details[ids[i]].Severity > details[ids[j]].Severity
	})
	return ids
}

func formatCVESection(list []string, details map[string]dtos.CVEDetail) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, id := range orderedCVEIDs(list, details) {
		b.WriteString(formatCVELine(id, details[id]))
		b.WriteString("\n")
	}
	return b.String()
}

func formatFileSection(files []string) string {
	var b strings.Builder
	b.WriteString("\n\n" + sectionRule + "\n" + filesHeader + "\n")
	for _, f := range files {
		b.WriteString(f + "\n")
	}
	return b.String()
}

// FormatDetail renders the detail body of a newly created ticket.
func FormatDetail(n dtos.Notification, cveList []string, details map[string]dtos.CVEDetail, files []string) string {
	return formatSummarySection(n, RecomputeSeverity(details)) +
		DetailAnchor + formatCVESection(cveList, details) +
		DetailAnchor + formatFileSection(files)
}

// ParseDetail splits a stored detail body into its sections. A body that does
// not have exactly three sections or contains an unreadable vulnerability line
// is rejected with ErrMalformedDetail.
func ParseDetail(body string) (ParsedDetail, error) {
	parts := strings.Split(body, DetailAnchor)
	if len(parts) != 3 {
		return ParsedDetail{}, fmt.Errorf("%w: expected 3 sections, got %d", ErrMalformedDetail, len(parts))
	}

	parsed := ParsedDetail{
		Summary:     parts[0],
		CVEDetails:  make(map[string]dtos.CVEDetail),
		FileSection: parts[2],
		Files:       parseFiles(parts[2]),
	}

	for line := range strings.SplitSeq(parts[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := cveLineRegex.FindStringSubmatch(line)
		if m == nil {
			return ParsedDetail{}, fmt.Errorf("%w: could not parse vulnerability line %q", ErrMalformedDetail, line)
		}
		severity, err := dtos.ParseSeverity(m[1])
		if err != nil {
			return ParsedDetail{}, fmt.Errorf("%w: %s", ErrMalformedDetail, err)
		}
		if !slices.Contains(parsed.CVEList, m[2]) {
			parsed.CVEList = append(parsed.CVEList, m[2])
		}
		parsed.CVEDetails[m[2]] = dtos.CVEDetail{
			Severity:  severity,
			Link:      m[3],
			CrossID:   m[4],
			CrossLink: m[5],
		}
	}

	return parsed, nil
}

func parseFiles(section string) []string {
	lines := strings.Split(section, "\n")
	start := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == filesHeader {
			start = i + 1
		}
	}

	files := make([]string, 0)
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line == "" || line == sectionRule || line == filesHeader {
			continue
		}
		files = append(files, line)
	}
	return files
}

// MergeFiles appends every file not yet mentioned in the section. Files are
// never removed.
func MergeFiles(section string, files []string) string {
	for _, f := range files {
		if f == "" || strings.Contains(section, f) {
			continue
		}
		if section != "" && !strings.HasSuffix(section, "\n") {
			section += "\n"
		}
		section += f + "\n"
	}
	return section
}

// RebuildDetail renders the body of an existing ticket. The summary section is
// kept as is, the vulnerability section is rendered from the ticket state and
// the files are merged into the stored file section.
func RebuildDetail(state dtos.TicketState, files []string) string {
	return state.Summary +
		DetailAnchor + formatCVESection(state.CVEList, state.CVEDetails) +
		DetailAnchor + MergeFiles(state.FileSection, files)
}

// RecomputeSeverity derives the ticket severity from its vulnerability details.
func RecomputeSeverity(details map[string]dtos.CVEDetail) dtos.Severity {
	highest := dtos.SeverityUnknown
	for _, d := range details {
		highest = dtos.MaxSeverity(highest, d.Severity)
	}
	return highest
}
