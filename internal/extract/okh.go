// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// knownLicenses is the set of license identifiers extraction recognizes.
// Unknown identifiers are kept but lower the license field confidence.
var knownLicenses = map[string]bool{
	"CERN-OHL-S-2.0": true,
	"CERN-OHL-W-2.0": true,
	"CERN-OHL-P-2.0": true,
	"TAPR-OHL-1.0":   true,
	"CC-BY-4.0":      true,
	"CC-BY-SA-4.0":   true,
	"CC0-1.0":        true,
	"MIT":            true,
	"GPL-3.0-only":   true,
	"GPL-3.0-or-later": true,
	"Apache-2.0":     true,
	"Unlicense":      true,
}

// OKHExtractor is the extraction pipeline for Open Know-How manifests.
type OKHExtractor struct{}

// InitialParse decodes manifest bytes from YAML or JSON.
func (OKHExtractor) InitialParse(data []byte, meta *types.ExtractionMetadata) (types.OKHManifest, error) {
	var manifest types.OKHManifest
	format, err := decodeDocument(data, &manifest)
	if err != nil {
		return manifest, err
	}
	meta.Logf("parsed %s manifest", format)
	return manifest, nil
}

// DetailedExtract normalizes process, material, and tool names, collapses
// duplicates, and parses the dimension envelope into numeric parameters.
func (OKHExtractor) DetailedExtract(m *types.OKHManifest, meta *types.ExtractionMetadata) error {
	m.Processes = normalizeUnique(m.Processes, CanonicalProcess, meta, "processes")

	for i := range m.BOM {
		if m.BOM[i].MaterialID == "" {
			m.BOM[i].MaterialID = CanonicalMaterial(m.BOM[i].Name)
		} else {
			m.BOM[i].MaterialID = CanonicalMaterial(m.BOM[i].MaterialID)
		}
	}

	m.Tools = normalizeUnique(m.Tools, NormalizeName, meta, "tools")

	if m.Dimensions != "" {
		w, d, h, ok := ParseDimensions(m.Dimensions)
		if ok {
			if m.Parameters == nil {
				m.Parameters = make(map[string]string)
			}
			m.Parameters["width_mm"] = FormatMM(w)
			m.Parameters["depth_mm"] = FormatMM(d)
			m.Parameters["height_mm"] = FormatMM(h)
			meta.UpdateConfidence("dimensions", 1.0)
			meta.Logf("parsed dimensions %q", m.Dimensions)
		} else {
			meta.AddFlag("unparseable dimensions")
			meta.UpdateConfidence("dimensions", 0.2)
			meta.Logf("could not parse dimensions %q", m.Dimensions)
		}
	}

	return nil
}

// ValidateAndRefine checks required manifest fields and assigns per-field
// confidence. Missing fields are flagged, never fatal; quality
// classification decides what the caller does with the result.
func (OKHExtractor) ValidateAndRefine(m *types.OKHManifest, meta *types.ExtractionMetadata) error {
	if strings.TrimSpace(m.Title) == "" {
		meta.AddFlag("missing title")
		meta.UpdateConfidence("title", 0)
	} else {
		meta.UpdateConfidence("title", 1.0)
	}

	switch {
	case strings.TrimSpace(m.License) == "":
		meta.AddFlag("missing license")
		meta.UpdateConfidence("license", 0)
	case knownLicenses[m.License]:
		meta.UpdateConfidence("license", 1.0)
	default:
		meta.AddFlag(fmt.Sprintf("unrecognized license %q", m.License))
		meta.UpdateConfidence("license", 0.6)
	}

	if len(m.Processes) == 0 {
		meta.AddFlag("no manufacturing processes")
		meta.UpdateConfidence("processes", 0)
	} else {
		meta.UpdateConfidence("processes", 1.0)
	}

	if len(m.BOM) == 0 {
		meta.AddFlag("empty bill of materials")
		meta.UpdateConfidence("bom", 0.5)
	} else {
		meta.UpdateConfidence("bom", 1.0)
	}

	if m.Description == "" {
		meta.UpdateConfidence("description", 0.3)
	} else {
		meta.UpdateConfidence("description", 1.0)
	}

	return nil
}

// CriticalFields names the fields a usable manifest cannot lack.
func (OKHExtractor) CriticalFields() []string {
	return []string{"title", "license", "processes"}
}

// normalizeUnique normalizes each value and drops duplicates, flagging the
// collapse in metadata.
func normalizeUnique(values []string, normalize func(string) string, meta *types.ExtractionMetadata, field string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if seen[n] {
			meta.AddFlag(fmt.Sprintf("duplicate %s entry %q", field, n))
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
