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
	"slices"
	"sort"

	"github.com/l3montree-dev/vulnsync/dtos"
)

type componentKey struct {
	name    string
	version string
}

// DeduplicateScan keeps the latest scan notification per component version.
// On equal timestamps the later input wins. The result is ordered by
// timestamp, then component name and version.
func DeduplicateScan(ns []dtos.Notification) []dtos.Notification {
	latest := make(map[componentKey]dtos.Notification, len(ns))
	for _, n := range ns {
		key := componentKey{name: n.ComponentName, version: n.ComponentVersion}
		if current, ok := latest[key]; ok && current.Timestamp.After(n.Timestamp) {
			continue
		}
		latest[key] = n
	}

	res := make([]dtos.Notification, 0, len(latest))
	for _, n := range latest {
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Timestamp.Equal(res[j].Timestamp) {
			return res[i].Timestamp.Before(res[j].Timestamp)
		}
		if res[i].ComponentName != res[j].ComponentName {
			return res[i].ComponentName < res[j].ComponentName
		}
		return res[i].ComponentVersion < res[j].ComponentVersion
	})
	return res
}

// OrderUpdates sorts update notifications by timestamp. Nothing is dropped,
// every update may carry a distinct partial change.
func OrderUpdates(ns []dtos.Notification) []dtos.Notification {
	res := slices.Clone(ns)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Timestamp.Before(res[j].Timestamp)
	})
	return res
}
