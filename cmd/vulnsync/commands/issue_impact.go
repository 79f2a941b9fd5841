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
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/vulnsync/config"
	"github.com/l3montree-dev/vulnsync/jira"
	"github.com/l3montree-dev/vulnsync/monitoring"
	"github.com/l3montree-dev/vulnsync/services"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewIssueImpactCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-impact",
		Short: "Mark issues linked to support tickets as externally impacting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return err
			}

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if err := cfg.ValidateIssueImpact(); err != nil {
				return err
			}

			monitoring.InitSentry(cfg.ErrorTrackingDSN, cfg.Environment, version)
			defer monitoring.Flush()

			creds, err := config.LoadJiraCredentials(cfg.CredentialsDir)
			if err != nil {
				return err
			}
			client, err := jira.NewJiraClient(creds.Token, creds.URL, creds.Email)
			if err != nil {
				return errors.Wrap(err, "could not create jira client")
			}
			tracker := jira.NewTracker(client, cfg.Jira.TrackerOptions())

			report, err := services.NewIssueImpactService(tracker, cfg.IssueImpact, dryRun).Run(ctx)
			if err != nil {
				monitoring.Alert("issue impact run failed", err)
				return err
			}

			tw := table.NewWriter()
			tw.AppendRows([]table.Row{
				{"Projects", report.Projects},
				{"Candidates", report.Candidates},
				{"Marked", report.Marked},
				{"Issues", strings.Join(report.Keys, ", ")},
			})
			fmt.Println(tw.Render())
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Only print the issues which would be marked")
	return cmd
}
