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

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/l3montree-dev/vulnsync/blackduck"
	"github.com/l3montree-dev/vulnsync/config"
	"github.com/l3montree-dev/vulnsync/jira"
	"github.com/l3montree-dev/vulnsync/monitoring"
	"github.com/l3montree-dev/vulnsync/services"
	"github.com/l3montree-dev/vulnsync/statemachine"
	"github.com/l3montree-dev/vulnsync/vulndb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the vulnerabilities of a project into Jira",
		Long: `Reads the vulnerability notifications of a Black Duck project in the given time
window and creates, updates, closes or reopens one Jira ticket per component version.`,
		Args: cobra.NoArgs,
		RunE: syncCommand,
	}

	cmd.Flags().String("project_name", "", "The Black Duck project to synchronize")
	cmd.Flags().String("version_name", "", "Only synchronize this version of the project")
	cmd.Flags().String("newer_than", "", "Only notifications newer than this date. Accepts RFC3339, '2006-01-02', '2006-01-02 15:04', a duration like '72h' or a number of days like '7d'")
	cmd.Flags().String("older_than", "", "Only notifications older than this date. Same formats as --newer_than")
	cmd.Flags().Bool("dry-run", false, "Compute and print every ticket change without touching Jira")
	cmd.Flags().Bool("close-on-scan", true, "Let vulnerabilities removed by a scan close tickets")
	cmd.Flags().Bool("progress", false, "Show a progress bar while resolving vulnerabilities")
	cmd.MarkFlagRequired("project_name") // nolint: errcheck

	return cmd
}

type syncFlags struct {
	run         services.RunOptions
	dryRun      bool
	closeOnScan bool
	progress    bool
}

func parseSyncFlags(flags *pflag.FlagSet, now time.Time) (syncFlags, error) {
	var res syncFlags
	var err error

	if res.run.ProjectName, err = flags.GetString("project_name"); err != nil {
		return res, err
	}
	if res.run.ProjectName == "" {
		return res, fmt.Errorf("--project_name is required")
	}
	if res.run.ProjectVersion, err = flags.GetString("version_name"); err != nil {
		return res, err
	}

	newerThan, _ := flags.GetString("newer_than")
	if res.run.Since, err = config.ParseDate(newerThan, now); err != nil {
		return res, errors.Wrap(err, "invalid --newer_than")
	}
	olderThan, _ := flags.GetString("older_than")
	if res.run.Until, err = config.ParseDate(olderThan, now); err != nil {
		return res, errors.Wrap(err, "invalid --older_than")
	}
	if res.run.Since != nil && res.run.Until != nil && !res.run.Since.Before(*res.run.Until) {
		return res, fmt.Errorf("--newer_than must be before --older_than")
	}

	if res.dryRun, err = flags.GetBool("dry-run"); err != nil {
		return res, err
	}
	if res.closeOnScan, err = flags.GetBool("close-on-scan"); err != nil {
		return res, err
	}
	if res.progress, err = flags.GetBool("progress"); err != nil {
		return res, err
	}
	return res, nil
}

func syncCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flags, err := parseSyncFlags(cmd.Flags(), time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.ValidateSync(); err != nil {
		return err
	}

	monitoring.InitSentry(cfg.ErrorTrackingDSN, cfg.Environment, version)
	defer monitoring.Flush()

	bdCreds, err := config.LoadBlackDuckCredentials(cfg.CredentialsDir)
	if err != nil {
		return err
	}
	jiraCreds, err := config.LoadJiraCredentials(cfg.CredentialsDir)
	if err != nil {
		return err
	}

	source := blackduck.NewClient(bdCreds.URL, bdCreds.Token, cfg.BlackDuck.ClientOptions())
	jiraClient, err := jira.NewJiraClient(jiraCreds.Token, jiraCreds.URL, jiraCreds.Email)
	if err != nil {
		return errors.Wrap(err, "could not create jira client")
	}
	tracker := jira.NewTracker(jiraClient, cfg.Jira.TrackerOptions())

	enricher := vulndb.NewEnricher(source, vulndb.EnricherOptions{
		ExcludedIDs: cfg.Exclusions.IDs(),
		Workers:     cfg.BlackDuck.Workers,
		Progress:    flags.progress,
	})

	syncService := services.NewSyncService(source, tracker, enricher, services.SyncOptions{
		TrackerProject: cfg.Jira.Project,
		Policy: statemachine.Policy{
			Statuses:    cfg.Jira.Statuses,
			CloseOnScan: flags.closeOnScan,
		},
		ComponentMapper: cfg.TrackerComponent,
		DryRun:          flags.dryRun,
	})

	slog.Info("starting sync", "project", flags.run.ProjectName, "version", flags.run.ProjectVersion, "since", flags.run.Since, "until", flags.run.Until, "dryRun", flags.dryRun)
	report, err := syncService.Run(ctx, flags.run)

	printer := services.NewPlanPrinter(os.Stdout)
	if flags.dryRun {
		printer.PrintPlans(report.Plans)
	}
	printer.PrintReport(report)

	if err != nil {
		monitoring.Alert("sync of "+flags.run.ProjectName+" failed", err)
		return err
	}

	if err := monitoring.PushMetrics(ctx, cfg.Pushgateway, "vulnsync"); err != nil {
		slog.Warn("could not push metrics", "err", err)
	}
	return nil
}
