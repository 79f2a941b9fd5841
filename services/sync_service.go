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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/monitoring"
	"github.com/l3montree-dev/vulnsync/notification"
	"github.com/l3montree-dev/vulnsync/shared"
	"github.com/l3montree-dev/vulnsync/statemachine"
	"github.com/l3montree-dev/vulnsync/utils"
	"github.com/l3montree-dev/vulnsync/vulndb"
)

var ErrMultipleIssues = errors.New("more than one issue found")

type SyncOptions struct {
	// tracker project tickets are created in
	TrackerProject string
	Policy         statemachine.Policy
	// maps a scanner project and component to the tracker component
	ComponentMapper func(projectName, componentName string) string
	// DryRun computes every plan without calling the tracker for mutations.
	DryRun bool
}

type RunOptions struct {
	ProjectName    string
	ProjectVersion string
	Since          *time.Time
	Until          *time.Time
}

type RunReport struct {
	RunID         string
	Notifications int
	Scan          int
	Update        int
	Dropped       int
	// notifications a plan was computed for
	Processed int
	// plans without any mutation
	Skipped   int
	Conflicts int
	Malformed int
	Actions   EmitResult
	// computed plans, only kept on dry runs
	Plans []dtos.Plan
}

type SyncService struct {
	source   shared.VulnerabilitySource
	tracker  shared.IssueTracker
	enricher *vulndb.Enricher
	emitter  *Emitter
	opts     SyncOptions

	// matched files per project version url, keyed by component version url
	files map[string]map[string][]string
}

func NewSyncService(source shared.VulnerabilitySource, tracker shared.IssueTracker, enricher *vulndb.Enricher, opts SyncOptions) *SyncService {
	if opts.ComponentMapper == nil {
		opts.ComponentMapper = func(string, string) string { return "" }
	}
	return &SyncService{
		source:   source,
		tracker:  tracker,
		enricher: enricher,
		emitter:  NewEmitter(tracker, opts.TrackerProject, opts.Policy.Statuses),
		opts:     opts,
		files:    make(map[string]map[string][]string),
	}
}

// Run synchronizes all vulnerability notifications of the project in the
// time window into the tracker. Scan notifications are handled before the
// update notifications. Tracker and scanner errors abort the run.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	report := RunReport{RunID: uuid.New().String()}
	logger := slog.With("run", report.RunID)
	start := time.Now()
	defer func() {
		monitoring.SyncRunDuration.Observe(time.Since(start).Seconds())
	}()

	raws, err := s.source.ListNotifications(ctx, dtos.NotificationFilter{
		ProjectName:    opts.ProjectName,
		ProjectVersion: opts.ProjectVersion,
		Since:          opts.Since,
		Until:          opts.Until,
	})
	if err != nil {
		return report, fmt.Errorf("could not list notifications: %w", err)
	}
	report.Notifications = len(raws)

	classified := notification.Classify(raws)
	scan := notification.DeduplicateScan(notification.FilterProject(classified.Scan, opts.ProjectName, opts.ProjectVersion))
	updates := notification.OrderUpdates(notification.FilterProject(classified.Update, opts.ProjectName, opts.ProjectVersion))
	report.Scan = len(scan)
	report.Update = len(updates)
	report.Dropped = classified.Dropped
	logger.Info("classified notifications", "raw", len(raws), "scan", len(scan), "update", len(updates), "dropped", classified.Dropped)

	if opts.ProjectVersion != "" {
		s.logArchived(ctx, logger, opts.ProjectName, opts.ProjectVersion)
	}

	// every id is resolved before the first ticket is touched
	ids := make([]string, 0)
	for _, ns := range [][]dtos.Notification{scan, updates} {
		for _, n := range ns {
			ids = append(ids, n.CVEIDs...)
		}
	}
	records := s.enricher.Resolve(ctx, ids)
	logger.Info("resolved vulnerabilities", "requested", len(utils.Uniq(ids)), "resolved", len(records))

	for _, stream := range []struct {
		name          statemachine.Stream
		notifications []dtos.Notification
	}{
		{statemachine.StreamScan, scan},
		{statemachine.StreamUpdate, updates},
	} {
		for _, n := range stream.notifications {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.process(ctx, n, stream.name, records, &report); err != nil {
				monitoring.NotificationsProcessed.WithLabelValues(string(stream.name), "failed").Inc()
				return report, err
			}
		}
	}

	logger.Info("sync finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"conflicts", report.Conflicts,
		"malformed", report.Malformed,
		"created", report.Actions.Created,
		"updated", report.Actions.Updated,
		"closed", report.Actions.Closed,
		"reopened", report.Actions.Reopened,
	)
	return report, nil
}

func (s *SyncService) logArchived(ctx context.Context, logger *slog.Logger, projectName, versionName string) {
	version, err := s.source.GetProjectVersion(ctx, projectName, versionName)
	if err != nil {
		logger.Warn("could not look up project version", "project", projectName, "version", versionName, "err", err)
		return
	}
	if version.IsArchived() {
		logger.Info("project version is archived", "project", projectName, "version", versionName)
	}
}

func (s *SyncService) process(ctx context.Context, n dtos.Notification, stream statemachine.Stream, records map[string]dtos.VulnerabilityRecord, report *RunReport) error {
	issues, err := s.tracker.SearchIssues(ctx, dtos.IssueQuery{
		Project:          s.opts.TrackerProject,
		ComponentName:    n.ComponentName,
		ComponentVersion: n.ComponentVersion,
		ProjectName:      n.ProjectName,
		ProjectVersion:   n.ProjectVersion,
	})
	if err != nil {
		return fmt.Errorf("could not search tickets of %s: %w", n.ComponentKey(), err)
	}

	if len(issues) > 1 {
		keys := utils.Map(issues, func(i dtos.Issue) string { return i.Key })
		for _, key := range keys {
			slog.Error("skipping notification", "err", ErrMultipleIssues, "issue", key, "component", n.ComponentKey(), "projectVersion", n.ProjectVersion)
		}
		report.Conflicts++
		monitoring.NotificationsProcessed.WithLabelValues(string(stream), "conflict").Inc()
		return nil
	}

	var ticket *dtos.TicketState
	if len(issues) == 1 {
		state, err := statemachine.TicketStateFromIssue(issues[0])
		if err != nil {
			slog.Error("could not read ticket, skipping", "issue", issues[0].Key, "err", err)
			report.Malformed++
			monitoring.NotificationsProcessed.WithLabelValues(string(stream), "malformed").Inc()
			return nil
		}
		ticket = &state
	}

	files, err := s.matchedFiles(ctx, n)
	if err != nil {
		return err
	}

	var related []string
	if ticket == nil && n.Cause != dtos.CauseDeleted {
		if related, err = s.relatedKeys(ctx, n); err != nil {
			return err
		}
	}

	plan, err := statemachine.Reconcile(statemachine.ReconcileInput{
		Notification:     n,
		Stream:           stream,
		Records:          records,
		Ticket:           ticket,
		RelatedKeys:      related,
		Files:            files,
		TrackerComponent: s.opts.ComponentMapper(n.ProjectName, n.ComponentName),
		Labels:           []string{slug.Make(n.ProjectName)},
	}, s.opts.Policy)
	if err != nil {
		return fmt.Errorf("could not reconcile %s: %w", n.ComponentKey(), err)
	}

	report.Processed++
	if plan.IsNoOp() {
		report.Skipped++
		monitoring.NotificationsProcessed.WithLabelValues(string(stream), "skipped").Inc()
	} else {
		monitoring.NotificationsProcessed.WithLabelValues(string(stream), "changed").Inc()
	}

	if s.opts.DryRun {
		report.Plans = append(report.Plans, plan)
		return nil
	}

	result, err := s.emitter.Apply(ctx, plan)
	report.Actions.Add(result)
	return err
}

// matchedFiles returns the files the component was found in. The listing is
// fetched once per project version.
func (s *SyncService) matchedFiles(ctx context.Context, n dtos.Notification) ([]string, error) {
	if n.ProjectVersionURL == "" {
		return nil, nil
	}
	files, ok := s.files[n.ProjectVersionURL]
	if !ok {
		var err error
		files, err = s.source.GetMatchedFiles(ctx, n.ProjectVersionURL)
		if err != nil {
			return nil, fmt.Errorf("could not get matched files of %s %s: %w", n.ProjectName, n.ProjectVersion, err)
		}
		s.files[n.ProjectVersionURL] = files
	}
	return files[n.ComponentVersionURL], nil
}

// relatedKeys finds the tickets of the same component in other versions of the project.
func (s *SyncService) relatedKeys(ctx context.Context, n dtos.Notification) ([]string, error) {
	issues, err := s.tracker.SearchIssues(ctx, dtos.IssueQuery{
		Project:          s.opts.TrackerProject,
		ComponentName:    n.ComponentName,
		ComponentVersion: n.ComponentVersion,
		ProjectName:      n.ProjectName,
	})
	if err != nil {
		return nil, fmt.Errorf("could not search related tickets of %s: %w", n.ComponentKey(), err)
	}
	return utils.Map(issues, func(i dtos.Issue) string { return i.Key }), nil
}
