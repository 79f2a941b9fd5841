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

var base = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func scanNotification(component, version string, hours int, cause dtos.NotificationCause) dtos.Notification {
	return dtos.Notification{
		ComponentName:    component,
		ComponentVersion: version,
		Cause:            cause,
		CVEIDs:           []string{"CVE-1"},
		Timestamp:        base.Add(time.Duration(hours) * time.Hour),
	}
}

func TestDeduplicateScan(t *testing.T) {
	t.Run("should keep exactly the latest notification per component version", func(t *testing.T) {
		ns := []dtos.Notification{
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseNew),
			scanNotification("openssl", "1.1.1k", 5, dtos.CauseDeleted),
			scanNotification("openssl", "1.1.1k", 3, dtos.CauseNew),
			scanNotification("openssl", "3.0.0", 2, dtos.CauseNew),
			scanNotification("zlib", "1.2.11", 4, dtos.CauseNew),
			scanNotification("zlib", "1.2.11", 0, dtos.CauseDeleted),
		}

		res := DeduplicateScan(ns)
		require.Len(t, res, 3)

		latest := make(map[string]dtos.Notification)
		for _, n := range res {
			_, dup := latest[n.ComponentKey()]
			assert.False(t, dup, n.ComponentKey())
			latest[n.ComponentKey()] = n
		}
		assert.Equal(t, base.Add(5*time.Hour), latest["openssl@1.1.1k"].Timestamp)
		assert.Equal(t, dtos.CauseDeleted, latest["openssl@1.1.1k"].Cause)
		assert.Equal(t, base.Add(2*time.Hour), latest["openssl@3.0.0"].Timestamp)
		assert.Equal(t, base.Add(4*time.Hour), latest["zlib@1.2.11"].Timestamp)
	})

	t.Run("should order the result by timestamp", func(t *testing.T) {
		res := DeduplicateScan([]dtos.Notification{
			scanNotification("zlib", "1.2.11", 4, dtos.CauseNew),
			scanNotification("openssl", "1.1.1k", 5, dtos.CauseNew),
			scanNotification("openssl", "3.0.0", 2, dtos.CauseNew),
		})

		require.Len(t, res, 3)
		assert.Equal(t, "openssl@3.0.0", res[0].ComponentKey())
		assert.Equal(t, "zlib@1.2.11", res[1].ComponentKey())
		assert.Equal(t, "openssl@1.1.1k", res[2].ComponentKey())
	})

	t.Run("should let the later input win on equal timestamps", func(t *testing.T) {
		res := DeduplicateScan([]dtos.Notification{
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseNew),
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseDeleted),
		})

		require.Len(t, res, 1)
		assert.Equal(t, dtos.CauseDeleted, res[0].Cause)
	})

	t.Run("should return an empty result for no input", func(t *testing.T) {
		assert.Empty(t, DeduplicateScan(nil))
	})
}

func TestOrderUpdates(t *testing.T) {
	t.Run("should keep every notification and sort ascending", func(t *testing.T) {
		ns := []dtos.Notification{
			scanNotification("openssl", "1.1.1k", 3, dtos.CauseUpdated),
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseNew),
			scanNotification("openssl", "1.1.1k", 2, dtos.CauseDeleted),
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseUpdated),
		}

		res := OrderUpdates(ns)
		require.Len(t, res, len(ns))
		for i := 1; i < len(res); i++ {
			assert.False(t, res[i].Timestamp.Before(res[i-1].Timestamp))
		}
		// stable for equal timestamps
		assert.Equal(t, dtos.CauseNew, res[0].Cause)
		assert.Equal(t, dtos.CauseUpdated, res[1].Cause)
	})

	t.Run("should not reorder the input slice", func(t *testing.T) {
		ns := []dtos.Notification{
			scanNotification("openssl", "1.1.1k", 3, dtos.CauseUpdated),
			scanNotification("openssl", "1.1.1k", 1, dtos.CauseNew),
		}
		OrderUpdates(ns)
		assert.Equal(t, dtos.CauseUpdated, ns[0].Cause)
	})
}
