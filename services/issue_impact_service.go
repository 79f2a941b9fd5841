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
	"slices"
	"strings"
	"unicode"

	"github.com/l3montree-dev/vulnsync/config"
	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/shared"
	"github.com/l3montree-dev/vulnsync/utils"
)

type IssueImpactReport struct {
	Projects   int
	Candidates int
	Marked     int
	// keys which would have been marked on a dry run
	Keys []string
}

// IssueImpactService marks issues that are linked to a customer support
// ticket as externally impacting.
type IssueImpactService struct {
	tracker shared.IssueImpactTracker
	cfg     config.IssueImpactConfig
	dryRun  bool
}

func NewIssueImpactService(tracker shared.IssueImpactTracker, cfg config.IssueImpactConfig, dryRun bool) *IssueImpactService {
	return &IssueImpactService{tracker: tracker, cfg: cfg, dryRun: dryRun}
}

type impactTarget struct {
	project    string
	issueTypes []string
	extraJQL   string
}

func (s *IssueImpactService) Run(ctx context.Context) (IssueImpactReport, error) {
	var report IssueImpactReport

	targets := utils.Map(s.cfg.Projects, func(p config.IssueImpactProject) impactTarget {
		return impactTarget{project: p.Key, issueTypes: p.IssueTypes, extraJQL: p.ExtraJQL}
	})
	for _, category := range s.cfg.Categories {
		keys, err := s.tracker.ListProjectsInCategory(ctx, category.Name)
		if err != nil {
			return report, fmt.Errorf("could not list projects of category %s: %w", category.Name, err)
		}
		slog.Debug("found projects in category", "category", category.Name, "projects", keys)
		for _, key := range keys {
			targets = append(targets, impactTarget{project: key, issueTypes: category.IssueTypes, extraJQL: category.ExtraJQL})
		}
	}

	for _, target := range targets {
		report.Projects++
		issues, err := s.tracker.SearchLinkedIssues(ctx, s.impactJQL(target))
		if err != nil {
			return report, fmt.Errorf("could not search issues of %s: %w", target.project, err)
		}
		report.Candidates += len(issues)

		for _, issue := range issues {
			if !s.hasCustomerLink(issue) {
				continue
			}
			report.Keys = append(report.Keys, issue.Key)
			if s.dryRun {
				slog.Info("would mark issue as external", "issue", issue.Key)
				continue
			}
			if err := s.tracker.SetSelectField(ctx, issue.Key, s.cfg.FieldID, s.cfg.Value, false); err != nil {
				return report, fmt.Errorf("could not mark %s: %w", issue.Key, err)
			}
			slog.Info("marked issue as external", "issue", issue.Key)
			report.Marked++
		}
	}
	return report, nil
}

func (s *IssueImpactService) impactJQL(target impactTarget) string {
	types := utils.Map(target.issueTypes, quoteIssueType)
	jql := fmt.Sprintf(`project=%s AND %s is EMPTY AND issueLinkType is not EMPTY AND issuetype in (%s) AND created >= "%s"`,
		target.project, customFieldRef(s.cfg.FieldID), strings.Join(types, ", "), s.cfg.CreatedAfter)
	if target.extraJQL != "" {
		jql += " AND " + target.extraJQL
	}
	return jql
}

func (s *IssueImpactService) hasCustomerLink(issue dtos.LinkedIssue) bool {
	return utils.Any(issue.Links, func(ref dtos.IssueRef) bool {
		return strings.HasPrefix(ref.Key, s.cfg.LinkPrefix) && slices.Contains(s.cfg.LinkIssueTypes, ref.IssueType)
	})
}

func customFieldRef(fieldID string) string {
	if n, ok := strings.CutPrefix(fieldID, "customfield_"); ok {
		return "cf[" + n + "]"
	}
	return fieldID
}

// issue type names with anything besides letters need quotes in jql
func quoteIssueType(name string) string {
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return `"` + name + `"`
		}
	}
	return name
}
