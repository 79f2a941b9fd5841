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
	"testing"
	"time"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs(ids ...string) []dtos.RawVulnerabilityRef {
	res := make([]dtos.RawVulnerabilityRef, 0, len(ids))
	for _, id := range ids {
		res = append(res, dtos.RawVulnerabilityRef{VulnerabilityID: id})
	}
	return res
}

func raw(source, cause string, newIDs, deletedIDs, updatedIDs []dtos.RawVulnerabilityRef, versions ...string) dtos.RawNotification {
	apvs := make([]dtos.AffectedProjectVersion, 0, len(versions))
	for _, v := range versions {
		apvs = append(apvs, dtos.AffectedProjectVersion{
			ProjectName:        "couchbase-server",
			ProjectVersionName: v,
			ProjectVersion:     "https://hub/api/projects/1/versions/" + v,
		})
	}
	return dtos.RawNotification{
		Type:      "VULNERABILITY",
		CreatedAt: "2026-02-01T10:00:00.123Z",
		Content: dtos.RawNotificationContent{
			ComponentName:                  "openssl",
			VersionName:                    "1.1.1k",
			ComponentVersion:               "https://hub/api/components/1/versions/2",
			EventSource:                    source,
			VulnerabilityNotificationCause: cause,
			NewVulnerabilityIDs:            newIDs,
			DeletedVulnerabilityIDs:        deletedIDs,
			UpdatedVulnerabilityIDs:        updatedIDs,
			AffectedProjectVersions:        apvs,
		},
	}
}

func TestClassify(t *testing.T) {
	t.Run("should route scan notifications into the scan stream", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("SCAN", "ADDED", refs("CVE-1"), refs("CVE-2"), refs("CVE-3"), "7.6.0"),
		})

		require.Len(t, res.Scan, 2)
		assert.Empty(t, res.Update)
		assert.Equal(t, dtos.CauseNew, res.Scan[0].Cause)
		assert.Equal(t, []string{"CVE-1"}, res.Scan[0].CVEIDs)
		assert.Equal(t, dtos.CauseDeleted, res.Scan[1].Cause)
		assert.Equal(t, []string{"CVE-2"}, res.Scan[1].CVEIDs)
		assert.Equal(t, dtos.EventSourceScan, res.Scan[0].Source)
	})

	t.Run("should flatten one notification per affected project version", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("SCAN", "ADDED", refs("CVE-1"), nil, nil, "7.6.0", "7.2.4"),
		})

		require.Len(t, res.Scan, 2)
		assert.Equal(t, "7.6.0", res.Scan[0].ProjectVersion)
		assert.Equal(t, "7.2.4", res.Scan[1].ProjectVersion)
		assert.Equal(t, "https://hub/api/projects/1/versions/7.2.4", res.Scan[1].ProjectVersionURL)
		assert.Equal(t, "1.1.1k", res.Scan[1].ComponentVersion)
		assert.Equal(t, "https://hub/api/components/1/versions/2", res.Scan[1].ComponentVersionURL)
		assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 123000000, time.UTC), res.Scan[0].Timestamp.UTC())
	})

	t.Run("should treat user removals as scan deletions", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("USER_ACTION", "REMOVED", refs("CVE-1"), refs("CVE-2"), nil, "7.6.0"),
		})

		require.Len(t, res.Scan, 1)
		assert.Equal(t, dtos.CauseDeleted, res.Scan[0].Cause)
		assert.Equal(t, dtos.EventSourceUserAction, res.Scan[0].Source)
	})

	t.Run("should route every other change into the update stream", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("KB_UPDATE", "ADDED", refs("CVE-1"), refs("CVE-2"), refs("CVE-3"), "7.6.0"),
			raw("USER_ACTION_REMEDIATION", "IGNORE_CHANGED", nil, nil, refs("CVE-4"), "7.6.0"),
		})

		require.Len(t, res.Update, 4)
		assert.Equal(t, []dtos.NotificationCause{dtos.CauseNew, dtos.CauseDeleted, dtos.CauseUpdated, dtos.CauseUpdated},
			[]dtos.NotificationCause{res.Update[0].Cause, res.Update[1].Cause, res.Update[2].Cause, res.Update[3].Cause})
		assert.Equal(t, dtos.EventSourceKBUpdate, res.Update[0].Source)
		assert.Equal(t, dtos.EventSourceOther, res.Update[3].Source)
	})

	t.Run("should drop bare severity changes", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("KB_UPDATE", "SEVERITY_CHANGED", nil, nil, refs("CVE-1"), "7.6.0"),
		})

		assert.Empty(t, res.Scan)
		assert.Empty(t, res.Update)
		assert.Equal(t, 1, res.Dropped)
	})

	t.Run("should keep severity changes coming from a scan", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("SCAN", "SEVERITY_CHANGED", refs("CVE-1"), nil, nil, "7.6.0"),
		})

		assert.Len(t, res.Scan, 1)
	})

	t.Run("should drop notifications with an unparsable timestamp", func(t *testing.T) {
		n := raw("SCAN", "ADDED", refs("CVE-1"), nil, nil, "7.6.0")
		n.CreatedAt = "yesterday"

		res := Classify([]dtos.RawNotification{n})
		assert.Empty(t, res.Scan)
		assert.Equal(t, 1, res.Dropped)
	})

	t.Run("should put every input into exactly one bucket", func(t *testing.T) {
		raws := []dtos.RawNotification{
			raw("SCAN", "ADDED", refs("CVE-1"), nil, nil, "7.6.0", "7.2.4"),
			raw("SCAN", "REMOVED", nil, nil, nil, "7.6.0"),
			raw("USER_ACTION", "REMOVED", nil, refs("CVE-2"), nil, "7.6.0"),
			raw("USER_ACTION", "ADDED", refs("CVE-3"), nil, nil, "7.6.0"),
			raw("KB_UPDATE", "SEVERITY_CHANGED", nil, nil, refs("CVE-4"), "7.6.0"),
			raw("KB_UPDATE", "ADDED", refs("CVE-5"), nil, nil),
		}

		res := Classify(raws)
		assert.Equal(t, len(raws), res.Total())
		assert.Equal(t, 2, res.ScanInputs)
		assert.Equal(t, 1, res.UpdateInputs)
		assert.Equal(t, 3, res.Dropped)
	})

	t.Run("should drop empty and duplicate ids", func(t *testing.T) {
		res := Classify([]dtos.RawNotification{
			raw("SCAN", "ADDED", refs("CVE-1", "", "CVE-1", "BDSA-1"), nil, nil, "7.6.0"),
		})

		require.Len(t, res.Scan, 1)
		assert.Equal(t, []string{"CVE-1", "BDSA-1"}, res.Scan[0].CVEIDs)
	})
}

func TestFilterProject(t *testing.T) {
	ns := []dtos.Notification{
		{ProjectName: "couchbase-server", ProjectVersion: "7.6.0"},
		{ProjectName: "couchbase-server", ProjectVersion: "7.2.4"},
		{ProjectName: "sync-gateway", ProjectVersion: "3.1.0"},
	}

	t.Run("should keep every version of the project if no version is given", func(t *testing.T) {
		assert.Len(t, FilterProject(ns, "couchbase-server", ""), 2)
	})

	t.Run("should keep only the requested version", func(t *testing.T) {
		res := FilterProject(ns, "couchbase-server", "7.2.4")
		require.Len(t, res, 1)
		assert.Equal(t, "7.2.4", res[0].ProjectVersion)
	})
}
