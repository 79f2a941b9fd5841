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

package vulndb

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	"github.com/schollz/progressbar/v3"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/shared"
	"github.com/l3montree-dev/vulnsync/utils"
)

type EnricherOptions struct {
	// ExcludedIDs are never fetched. CVE and BDSA ids may be mixed.
	ExcludedIDs []string
	Workers     int
	Progress    bool
}

// Enricher resolves vulnerability ids into records. Resolved records are kept
// for the lifetime of the enricher, which is one run.
type Enricher struct {
	source   shared.VulnerabilitySource
	excluded utils.Set[string]
	workers  int
	progress bool

	mut     sync.Mutex
	records map[string]dtos.VulnerabilityRecord
	// ids which were looked up but yielded no record
	misses utils.Set[string]
}

func NewEnricher(source shared.VulnerabilitySource, opts EnricherOptions) *Enricher {
	workers := opts.Workers
	if workers <= 0 {
		workers = 5
	}
	return &Enricher{
		source:   source,
		excluded: utils.NewSet(opts.ExcludedIDs...),
		workers:  workers,
		progress: opts.Progress,
		records:  make(map[string]dtos.VulnerabilityRecord),
		misses:   utils.NewSet[string](),
	}
}

func (e *Enricher) IsExcluded(id string) bool {
	return e.excluded.Contains(id)
}

// Resolve returns the records of all resolvable ids. A failure for one id is
// logged and only excludes that id.
func (e *Enricher) Resolve(ctx context.Context, ids []string) map[string]dtos.VulnerabilityRecord {
	todo := make([]string, 0, len(ids))
	e.mut.Lock()
	for _, id := range utils.Uniq(ids) {
		if e.excluded.Contains(id) {
			slog.Debug("vulnerability is excluded, skipping", "id", id)
			continue
		}
		if _, ok := e.records[id]; ok || e.misses.Contains(id) {
			continue
		}
		todo = append(todo, id)
	}
	e.mut.Unlock()

	var bar *progressbar.ProgressBar
	if e.progress && len(todo) > 0 {
		bar = progressbar.Default(int64(len(todo)), "resolving vulnerabilities")
	}

	group := utils.ErrGroup[any](e.workers)
	for _, id := range todo {
		group.Go(func() (any, error) {
			record, ok := e.resolveOne(ctx, id)

			e.mut.Lock()
			if ok {
				e.records[id] = record
			} else {
				e.misses.Append(id)
			}
			e.mut.Unlock()

			if bar != nil {
				bar.Add(1) // nolint
			}
			return nil, nil
		})
	}
	// the functions never fail
	group.WaitAndCollect() // nolint:errcheck

	e.mut.Lock()
	defer e.mut.Unlock()
	res := make(map[string]dtos.VulnerabilityRecord, len(ids))
	for _, id := range ids {
		if r, ok := e.records[id]; ok {
			res[id] = r
		}
	}
	return res
}

func (e *Enricher) resolveOne(ctx context.Context, id string) (dtos.VulnerabilityRecord, bool) {
	detail, err := e.source.GetVulnerabilityDetail(ctx, id)
	if err != nil {
		slog.Error("could not fetch vulnerability detail", "id", id, "err", err)
		return dtos.VulnerabilityRecord{}, false
	}
	if detail == nil {
		slog.Warn("vulnerability not found, skipping", "id", id)
		return dtos.VulnerabilityRecord{}, false
	}
	if detail.Severity == nil {
		slog.Warn("vulnerability has null severity, skipping", "id", id)
		return dtos.VulnerabilityRecord{}, false
	}
	severity, err := dtos.ParseSeverity(*detail.Severity)
	if err != nil {
		slog.Warn("vulnerability has an unknown severity, skipping", "id", id, "err", err)
		return dtos.VulnerabilityRecord{}, false
	}
	source := dtos.VulnSource(detail.Source)
	if !source.IsKnown() {
		slog.Warn("vulnerability has an unknown source, skipping", "id", id, "source", detail.Source)
		return dtos.VulnerabilityRecord{}, false
	}

	record := dtos.VulnerabilityRecord{
		ID:       id,
		Severity: severity,
		Source:   source,
		Score:    baseScore(detail.CVSS3Vector),
	}

	switch source {
	case dtos.VulnSourceNVD:
		record.Link = detail.LinkByRel(dtos.LinkRelNist)
		if record.Link == "" {
			record.Link = detail.Href
		}
		bdsaHref := detail.LinkByLabel(dtos.LinkLabelBDSA)
		if bdsaHref == "" {
			break
		}
		record.CrossID = utils.LastPathSegment(bdsaHref)
		record.CrossLink = bdsaHref
		bdsa, ok := e.crossDetail(ctx, id, record.CrossID)
		if !ok {
			break
		}
		if bdsa.Href != "" {
			record.CrossLink = bdsa.Href
		}
		// the BDSA rating wins over the NVD one
		record.CrossSeverity = bdsa.severity
		if bdsa.severity != dtos.SeverityUnknown {
			record.Severity = bdsa.severity
		}

	case dtos.VulnSourceBDSA:
		record.Link = detail.Href
		nvdHref := detail.LinkByLabel(dtos.LinkLabelNVD)
		if nvdHref == "" {
			break
		}
		record.CrossID = utils.LastPathSegment(nvdHref)
		record.CrossLink = nvdHref
		nvd, ok := e.crossDetail(ctx, id, record.CrossID)
		if !ok {
			break
		}
		if nist := nvd.LinkByRel(dtos.LinkRelNist); nist != "" {
			record.CrossLink = nist
			record.CrossID = utils.LastPathSegment(nist)
		}
		record.CrossSeverity = nvd.severity
	}

	return record, true
}

type crossReference struct {
	dtos.VulnerabilityDetail
	severity dtos.Severity
}

// crossDetail fetches the paired record of the other database. Failures only
// cost the additional information.
func (e *Enricher) crossDetail(ctx context.Context, id, crossID string) (crossReference, bool) {
	detail, err := e.source.GetVulnerabilityDetail(ctx, crossID)
	if err != nil {
		slog.Warn("could not fetch cross referenced vulnerability", "id", id, "crossId", crossID, "err", err)
		return crossReference{}, false
	}
	if detail == nil {
		slog.Warn("cross referenced vulnerability not found", "id", id, "crossId", crossID)
		return crossReference{}, false
	}
	ref := crossReference{VulnerabilityDetail: *detail}
	if detail.Severity != nil {
		if severity, err := dtos.ParseSeverity(*detail.Severity); err == nil {
			ref.severity = severity
		}
	}
	return ref, true
}

type baseScorer interface {
	BaseScore() float64
}

// baseScore returns the CVSS v3 base score of the vector or 0.
func baseScore(vector string) float64 {
	var cvss baseScorer
	var err error
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0"):
		cvss, err = gocvss30.ParseVector(vector)
	case strings.HasPrefix(vector, "CVSS:3.1"):
		cvss, err = gocvss31.ParseVector(vector)
	default:
		return 0
	}
	if err != nil {
		slog.Debug("could not parse cvss vector", "vector", vector, "err", err)
		return 0
	}
	return cvss.BaseScore()
}
