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
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/vulnsync/shared"
)

const (
	blackDuckCredentialsFile = "blackduck-creds.json"
	jiraCredentialsFile      = "jira-creds.json"
)

var ErrCredentialsMissing = errors.New("credentials missing")

type BlackDuckCredentials struct {
	URL   string `json:"url" validate:"required,url"`
	Token string `json:"token" validate:"required"`
}

type JiraCredentials struct {
	URL   string `json:"url" validate:"required,url"`
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

func DefaultCredentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("could not determine home directory", "err", err)
		return ".ssh"
	}
	return filepath.Join(home, ".ssh")
}

// expandHome resolves a leading ~ the way a shell would.
func expandHome(dir string) string {
	rest, ok := strings.CutPrefix(dir, "~")
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, rest)
}

func readCredentials(path string, out any) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(ErrCredentialsMissing, "unable to locate %s", path)
	} else if err != nil {
		return errors.Wrapf(err, "could not read %s", path)
	}

	if err := json.Unmarshal(content, out); err != nil {
		return errors.Wrapf(err, "could not parse %s", path)
	}
	if err := shared.V.Struct(out); err != nil {
		return errors.Wrapf(ErrCredentialsMissing, "%s is incomplete: %s", path, err)
	}
	return nil
}

func LoadBlackDuckCredentials(dir string) (BlackDuckCredentials, error) {
	var creds BlackDuckCredentials
	err := readCredentials(filepath.Join(expandHome(dir), blackDuckCredentialsFile), &creds)
	return creds, err
}

func LoadJiraCredentials(dir string) (JiraCredentials, error) {
	var creds JiraCredentials
	err := readCredentials(filepath.Join(expandHome(dir), jiraCredentialsFile), &creds)
	return creds, err
}
