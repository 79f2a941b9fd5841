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
	"errors"
	"testing"

	"github.com/l3montree-dev/vulnsync/dtos"
	"github.com/l3montree-dev/vulnsync/mocks"
	"github.com/l3montree-dev/vulnsync/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func nvdDetail(id, severity string, links ...dtos.VulnerabilityLink) *dtos.VulnerabilityDetail {
	return &dtos.VulnerabilityDetail{
		Name:     id,
		Source:   "NVD",
		Severity: utils.Ptr(severity),
		Href:     "https://hub.example.com/api/vulnerabilities/" + id,
		Links: append([]dtos.VulnerabilityLink{
			{Rel: dtos.LinkRelNist, Href: "https://nvd.nist.gov/vuln/detail/" + id},
		}, links...),
	}
}

func bdsaDetail(id, severity string, links ...dtos.VulnerabilityLink) *dtos.VulnerabilityDetail {
	return &dtos.VulnerabilityDetail{
		Name:     id,
		Source:   "BDSA",
		Severity: utils.Ptr(severity),
		Href:     "https://hub.example.com/api/vulnerabilities/" + id,
		Links:    links,
	}
}

func TestEnricherResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("should override the NVD severity with the BDSA severity", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2021-1").Return(nvdDetail("CVE-2021-1", "MEDIUM", dtos.VulnerabilityLink{
			Rel:   "related-vulnerability",
			Label: dtos.LinkLabelBDSA,
			Href:  "https://hub.example.com/api/vulnerabilities/BDSA-2021-9",
		}), nil)
		source.On("GetVulnerabilityDetail", mock.Anything, "BDSA-2021-9").Return(bdsaDetail("BDSA-2021-9", "CRITICAL"), nil)

		records := NewEnricher(source, EnricherOptions{}).Resolve(ctx, []string{"CVE-2021-1"})

		require.Contains(t, records, "CVE-2021-1")
		r := records["CVE-2021-1"]
		assert.Equal(t, dtos.SeverityCritical, r.Severity)
		assert.Equal(t, dtos.VulnSourceNVD, r.Source)
		assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2021-1", r.Link)
		assert.Equal(t, "BDSA-2021-9", r.CrossID)
		assert.Equal(t, "https://hub.example.com/api/vulnerabilities/BDSA-2021-9", r.CrossLink)
		assert.Equal(t, dtos.SeverityCritical, r.CrossSeverity)
	})

	t.Run("should keep the BDSA severity and resolve the NVD id for display", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "BDSA-2022-2").Return(bdsaDetail("BDSA-2022-2", "HIGH", dtos.VulnerabilityLink{
			Rel:   "related-vulnerability",
			Label: dtos.LinkLabelNVD,
			Href:  "https://hub.example.com/api/vulnerabilities/CVE-2022-2",
		}), nil)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2022-2").Return(nvdDetail("CVE-2022-2", "LOW"), nil)

		records := NewEnricher(source, EnricherOptions{}).Resolve(ctx, []string{"BDSA-2022-2"})

		r := records["BDSA-2022-2"]
		assert.Equal(t, dtos.SeverityHigh, r.Severity)
		assert.Equal(t, "https://hub.example.com/api/vulnerabilities/BDSA-2022-2", r.Link)
		assert.Equal(t, "CVE-2022-2", r.CrossID)
		assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2022-2", r.CrossLink)
		assert.Equal(t, dtos.SeverityLow, r.CrossSeverity)
	})

	t.Run("should keep the NVD severity if the BDSA record cannot be fetched", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2021-1").Return(nvdDetail("CVE-2021-1", "MEDIUM", dtos.VulnerabilityLink{
			Label: dtos.LinkLabelBDSA,
			Href:  "https://hub.example.com/api/vulnerabilities/BDSA-2021-9",
		}), nil)
		source.On("GetVulnerabilityDetail", mock.Anything, "BDSA-2021-9").Return(nil, errors.New("timeout"))

		records := NewEnricher(source, EnricherOptions{}).Resolve(ctx, []string{"CVE-2021-1"})

		assert.Equal(t, dtos.SeverityMedium, records["CVE-2021-1"].Severity)
		assert.Equal(t, "BDSA-2021-9", records["CVE-2021-1"].CrossID)
	})

	t.Run("should never fetch excluded ids", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-3").Return(nvdDetail("CVE-3", "HIGH"), nil)

		enricher := NewEnricher(source, EnricherOptions{ExcludedIDs: []string{"CVE-1", "BDSA-2"}})
		records := enricher.Resolve(ctx, []string{"CVE-1", "BDSA-2", "CVE-3"})

		assert.Len(t, records, 1)
		assert.True(t, enricher.IsExcluded("BDSA-2"))
		assert.False(t, enricher.IsExcluded("CVE-3"))
		source.AssertNumberOfCalls(t, "GetVulnerabilityDetail", 1)
	})

	t.Run("should skip records with null severity or an unknown source", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-1").Return(&dtos.VulnerabilityDetail{Name: "CVE-1", Source: "NVD"}, nil)
		source.On("GetVulnerabilityDetail", mock.Anything, "GHSA-1").Return(&dtos.VulnerabilityDetail{Name: "GHSA-1", Source: "GHSA", Severity: utils.Ptr("HIGH")}, nil)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-404").Return(nil, nil)

		records := NewEnricher(source, EnricherOptions{}).Resolve(ctx, []string{"CVE-1", "GHSA-1", "CVE-404"})
		assert.Empty(t, records)
	})

	t.Run("should not let one failing id block the others", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-1").Return(nil, errors.New("connection reset"))
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2").Return(nvdDetail("CVE-2", "HIGH"), nil)

		records := NewEnricher(source, EnricherOptions{Workers: 1}).Resolve(ctx, []string{"CVE-1", "CVE-2"})

		assert.NotContains(t, records, "CVE-1")
		assert.Contains(t, records, "CVE-2")
	})

	t.Run("should resolve every id only once per run", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2").Return(nvdDetail("CVE-2", "HIGH"), nil).Once()
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-9").Return(nil, nil).Once()

		enricher := NewEnricher(source, EnricherOptions{})
		first := enricher.Resolve(ctx, []string{"CVE-2", "CVE-2", "CVE-9"})
		second := enricher.Resolve(ctx, []string{"CVE-2", "CVE-9"})

		assert.Equal(t, first, second)
		assert.Len(t, second, 1)
	})

	t.Run("should compute the cvss base score", func(t *testing.T) {
		source := mocks.NewVulnerabilitySource(t)
		detail := nvdDetail("CVE-2021-44228", "CRITICAL")
		detail.CVSS3Vector = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H"
		source.On("GetVulnerabilityDetail", mock.Anything, "CVE-2021-44228").Return(detail, nil)

		records := NewEnricher(source, EnricherOptions{}).Resolve(ctx, []string{"CVE-2021-44228"})
		assert.InDelta(t, 10.0, records["CVE-2021-44228"].Score, 0.01)
	})
}

func TestBaseScore(t *testing.T) {
	assert.InDelta(t, 9.8, baseScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"), 0.01)
	assert.InDelta(t, 9.8, baseScore("CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"), 0.01)
	assert.Equal(t, 0.0, baseScore("AV:N/AC:L/Au:N/C:P/I:P/A:P"))
	assert.Equal(t, 0.0, baseScore("CVSS:3.1/garbage"))
}
