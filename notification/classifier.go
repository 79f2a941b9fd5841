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

package notification

import (
	"log/slog"
	"time"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/utils"
)

// Classified holds the two notification streams of a run. Every raw
// notification contributed to exactly one of them or was dropped.
type Classified struct {
	Scan   []dtos.Notification
	Update []dtos.Notification

	ScanInputs   int
	UpdateInputs int
	Dropped      int
}

func (c Classified) Total() int {
	return c.ScanInputs + c.UpdateInputs + c.Dropped
}

func eventSource(raw string) dtos.EventSource {
	switch dtos.EventSource(raw) {
	case dtos.EventSourceScan, dtos.EventSourceUserAction, dtos.EventSourceKBUpdate:
		return dtos.EventSource(raw)
	default:
		return dtos.EventSourceOther
	}
}

// Classify flattens raw vulnerability notifications into one notification per
// affected project version and routes them into the scan or update stream.
//
// A full rescan removes and re-adds every vulnerability, which also produces
// USER_ACTION removals. Those belong to the scan stream. Bare severity
// changes outside of a scan have no ticket action and are dropped.
func Classify(raws []dtos.RawNotification) Classified {
	var res Classified
	for _, raw := range raws {
		ts, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			slog.Warn("could not parse notification timestamp, dropping it", "createdAt", raw.CreatedAt, "component", raw.Content.ComponentName, "err", err)
			res.Dropped++
			continue
		}

		c := raw.Content
		var produced []dtos.Notification
		var scan bool
		switch {
		case c.EventSource == string(dtos.EventSourceScan):
			scan = true
			produced = append(produced, flatten(c, ts, dtos.CauseNew, c.NewVulnerabilityIDs)...)
			produced = append(produced, flatten(c, ts, dtos.CauseDeleted, c.DeletedVulnerabilityIDs)...)
		case c.EventSource == string(dtos.EventSourceUserAction) && c.VulnerabilityNotificationCause == dtos.RawCauseRemoved:
			scan = true
			produced = flatten(c, ts, dtos.CauseDeleted, c.DeletedVulnerabilityIDs)
		case c.VulnerabilityNotificationCause != dtos.RawCauseSeverityChanged:
			produced = append(produced, flatten(c, ts, dtos.CauseNew, c.NewVulnerabilityIDs)...)
			produced = append(produced, flatten(c, ts, dtos.CauseDeleted, c.DeletedVulnerabilityIDs)...)
			produced = append(produced, flatten(c, ts, dtos.CauseUpdated, c.UpdatedVulnerabilityIDs)...)
		}

		switch {
		case len(produced) == 0:
			res.Dropped++
		case scan:
			res.ScanInputs++
			res.Scan = append(res.Scan, produced...)
		default:
			res.UpdateInputs++
			res.Update = append(res.Update, produced...)
		}
	}
	return res
}

func flatten(c dtos.RawNotificationContent, ts time.Time, cause dtos.NotificationCause, refs []dtos.RawVulnerabilityRef) []dtos.Notification {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.VulnerabilityID != "" {
			ids = append(ids, ref.VulnerabilityID)
		}
	}
	ids = utils.Uniq(ids)
	if len(ids) == 0 {
		return nil
	}

	res := make([]dtos.Notification, 0, len(c.AffectedProjectVersions))
	for _, apv := range c.AffectedProjectVersions {
		res = append(res, dtos.Notification{
			ComponentName:       c.ComponentName,
			ComponentVersion:    c.VersionName,
			ComponentVersionURL: c.ComponentVersion,
			ProjectName:         apv.ProjectName,
			ProjectVersion:      apv.ProjectVersionName,
			ProjectVersionURL:   apv.ProjectVersion,
			CVEIDs:              ids,
			Cause:               cause,
			Source:              eventSource(c.EventSource),
			Timestamp:           ts,
		})
	}
	return res
}

// FilterProject drops notifications of other affected projects. An empty
// version keeps every version of the project.
func FilterProject(ns []dtos.Notification, projectName, projectVersion string) []dtos.Notification {
	return utils.Filter(ns, func(n dtos.Notification) bool {
		if n.ProjectName != projectName {
			return false
		}
		return projectVersion == "" || n.ProjectVersion == projectVersion
	})
}
