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

package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/l3montree-dev/vulnsync/blackduck"
	"github.com/l3montree-dev/vulnsync/jira"
	"github.com/l3montree-dev/vulnsync/shared"
	"github.com/l3montree-dev/vulnsync/statemachine"
)

// UnknownComponent is the tracker component of notifications no mapping rule matches.
const UnknownComponent = "Unknown"

type BlackDuckConfig struct {
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gt=0"`
	CacheSize         int           `mapstructure:"cacheSize" validate:"gt=0"`
	CacheTTL          time.Duration `mapstructure:"cacheTTL"`
	LocalFilePrefix   string        `mapstructure:"localFilePrefix"`
	PageSize          int           `mapstructure:"pageSize" validate:"gt=0,lte=1000"`
	Retries           int           `mapstructure:"retries" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout"`
	// number of vulnerabilities resolved in parallel
	Workers int `mapstructure:"workers" validate:"gt=0"`
}

func (c BlackDuckConfig) ClientOptions() blackduck.ClientOptions {
	return blackduck.ClientOptions{
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		CacheSize:         c.CacheSize,
		CacheTTL:          c.CacheTTL,
		LocalFilePrefix:   c.LocalFilePrefix,
		PageSize:          c.PageSize,
		Retries:           c.Retries,
		Timeout:           c.Timeout,
	}
}

type JiraConfig struct {
	Project   string                `mapstructure:"project" validate:"required"`
	IssueType string                `mapstructure:"issueType"`
	LinkType  string                `mapstructure:"linkType"`
	PageSize  int                   `mapstructure:"pageSize"`
	Fields    jira.FieldIDs         `mapstructure:"fields"`
	Statuses  statemachine.Statuses `mapstructure:"statuses"`
}

func (c JiraConfig) TrackerOptions() jira.TrackerOptions {
	return jira.TrackerOptions{
		Fields:    c.Fields,
		IssueType: c.IssueType,
		LinkType:  c.LinkType,
		PageSize:  c.PageSize,
	}
}

type ExclusionConfig struct {
	CVE  []string `mapstructure:"cve"`
	BDSA []string `mapstructure:"bdsa"`
}

// IDs returns both lists as one. Ids of the two databases never collide.
func (c ExclusionConfig) IDs() []string {
	ids := make([]string, 0, len(c.CVE)+len(c.BDSA))
	ids = append(ids, c.CVE...)
	return append(ids, c.BDSA...)
}

// ComponentRule assigns the tracker component to every scanner component
// whose name contains one of the substrings.
type ComponentRule struct {
	Component  string   `mapstructure:"component" validate:"required"`
	Substrings []string `mapstructure:"substrings" validate:"required,min=1"`
}

type IssueImpactProject struct {
	Key        string   `mapstructure:"key" validate:"required"`
	IssueTypes []string `mapstructure:"issueTypes" validate:"required,min=1"`
	ExtraJQL   string   `mapstructure:"extraJql"`
}

type IssueImpactCategory struct {
	Name       string   `mapstructure:"name" validate:"required"`
	IssueTypes []string `mapstructure:"issueTypes" validate:"required,min=1"`
	ExtraJQL   string   `mapstructure:"extraJql"`
}

type IssueImpactConfig struct {
	FieldID        string                `mapstructure:"fieldId" validate:"required"`
	Value          string                `mapstructure:"value" validate:"required"`
	CreatedAfter   string                `mapstructure:"createdAfter" validate:"required"`
	LinkPrefix     string                `mapstructure:"linkPrefix" validate:"required"`
	LinkIssueTypes []string              `mapstructure:"linkIssueTypes" validate:"required,min=1"`
	Projects       []IssueImpactProject  `mapstructure:"projects" validate:"dive"`
	Categories     []IssueImpactCategory `mapstructure:"categories" validate:"dive"`
}

type Config struct {
	BlackDuck  BlackDuckConfig `mapstructure:"blackduck"`
	Jira       JiraConfig      `mapstructure:"jira" validate:"-"`
	Exclusions ExclusionConfig `mapstructure:"exclusions"`
	// keyed by scanner project name, the first matching rule wins
	ComponentMapping map[string][]ComponentRule `mapstructure:"componentMapping" validate:"dive,dive"`
	IssueImpact      IssueImpactConfig          `mapstructure:"issueImpact" validate:"-"`

	CredentialsDir   string `mapstructure:"credentialsDir"`
	Pushgateway      string `mapstructure:"pushgateway" validate:"omitempty,url"`
	ErrorTrackingDSN string `mapstructure:"errorTrackingDsn"`
	Environment      string `mapstructure:"environment"`
}

func Default() Config {
	bd := blackduck.DefaultClientOptions()
	return Config{
		BlackDuck: BlackDuckConfig{
			RequestsPerSecond: bd.RequestsPerSecond,
			Burst:             bd.Burst,
			CacheSize:         bd.CacheSize,
			CacheTTL:          bd.CacheTTL,
			LocalFilePrefix:   "file:///home/couchbase/workspace/blackduck-detect-scan/src/",
			PageSize:          bd.PageSize,
			Retries:           bd.Retries,
			Timeout:           bd.Timeout,
			Workers:           5,
		},
		Jira: JiraConfig{
			IssueType: "Bug",
			LinkType:  "Relates",
			PageSize:  50,
			Statuses:  statemachine.DefaultStatuses(),
		},
		IssueImpact: IssueImpactConfig{
			FieldID:        "customfield_12659",
			Value:          "external",
			CreatedAfter:   "2020-01-01",
			LinkPrefix:     "CBSE-",
			LinkIssueTypes: []string{"Bug", "Task"},
			Projects: []IssueImpactProject{
				{Key: "MB", IssueTypes: []string{"Bug", "Task", "Improvement"}, ExtraJQL: `(labels is EMPTY OR labels not in ("tracking"))`},
				{Key: "AV", IssueTypes: []string{"Bug", "Bug Sub-Task", "Task", "Improvement", "Epic", "Initiative", "Sub-task"}},
				{Key: "K8S", IssueTypes: []string{"Bug", "Task", "Improvement", "Page", "Epic", "Sub-task"}, ExtraJQL: `summary !~ "Release Ticket"`},
				{Key: "ING", IssueTypes: []string{"Bug", "Bug Sub-Task", "Task", "Improvement", "Epic", "Initiative", "Sub-task"}},
			},
			Categories: []IssueImpactCategory{
				{Name: "Couchbase Client Libraries", IssueTypes: []string{"Bug", "Task", "Improvement", "Epic", "New Feature"}},
				{Name: "Couchbase Mobile", IssueTypes: []string{"Bug", "Task", "Improvement", "Epic", "New Feature"}, ExtraJQL: `(labels is EMPTY OR labels not in ("release"))`},
			},
		},
		CredentialsDir: DefaultCredentialsDir(),
	}
}

// Load decodes the viper configuration on top of the defaults and validates
// the sections every command needs.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	// lists may be given as comma separated strings, e.g. from the environment
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, errors.Wrap(err, "could not decode configuration")
	}
	if cfg.ErrorTrackingDSN == "" {
		cfg.ErrorTrackingDSN = os.Getenv("ERROR_TRACKING_DSN")
	}
	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("ENVIRONMENT")
	}
	if err := shared.V.Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// ValidateSync checks the tracker settings the sync command depends on.
func (c Config) ValidateSync() error {
	return errors.Wrap(shared.V.Struct(c.Jira), "invalid jira configuration")
}

func (c Config) ValidateIssueImpact() error {
	return errors.Wrap(shared.V.Struct(c.IssueImpact), "invalid issue impact configuration")
}

// TrackerComponent maps a scanner component of the project to the tracker component.
func (c Config) TrackerComponent(projectName, componentName string) string {
	rules, ok := c.ComponentMapping[projectName]
	if !ok {
		// viper lowercases map keys
		rules = c.ComponentMapping[strings.ToLower(projectName)]
	}

	name := strings.ToLower(componentName)
	for _, rule := range rules {
		for _, sub := range rule.Substrings {
			if sub != "" && strings.Contains(name, strings.ToLower(sub)) {
				return rule.Component
			}
		}
	}
	return UnknownComponent
}
