// Copyright (C) 2024 Tim Bastin, l3montree GmbH
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

package utils

import (
	"path"
	"slices"
	"strings"
)

func Ptr[T any](t T) *T {
	return &t
}

// LastPathSegment returns the last segment of an url or path, "" for an empty input.
func LastPathSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

// ParseCommaSeparatedList splits a stored list like "CVE-1, CVE-2" into its
// trimmed, non empty elements, keeping their order and dropping duplicates.
func ParseCommaSeparatedList(s string) []string {
	var res []string
	for el := range strings.SplitSeq(s, ",") {
		el = strings.TrimSpace(el)
		if el == "" || slices.Contains(res, el) {
			continue
		}
		res = append(res, el)
	}
	return res
}
