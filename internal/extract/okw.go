// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// OKWExtractor is the extraction pipeline for Open Know-Where facility records.
type OKWExtractor struct{}

// InitialParse decodes record bytes from YAML or JSON.
func (OKWExtractor) InitialParse(data []byte, meta *types.ExtractionMetadata) (types.OKWFacility, error) {
	var facility types.OKWFacility
	format, err := decodeDocument(data, &facility)
	if err != nil {
		return facility, err
	}
	meta.Logf("parsed %s facility record", format)
	return facility, nil
}

// DetailedExtract normalizes equipment processes, facility process and
// material lists, and checks numeric equipment parameters.
func (OKWExtractor) DetailedExtract(f *types.OKWFacility, meta *types.ExtractionMetadata) error {
	for i := range f.Equipment {
		eq := &f.Equipment[i]
		if eq.Process == "" {
			// Fall back to inferring the process from the equipment name.
			eq.Process = CanonicalProcess(eq.Name)
			meta.AddFlag(fmt.Sprintf("equipment %q has no process, inferred %q", eq.Name, eq.Process))
		} else {
			eq.Process = CanonicalProcess(eq.Process)
		}

		for key, value := range eq.Parameters {
			if !looksNumericKey(key) {
				continue
			}
			if _, err := ParseNumeric(value); err != nil {
				meta.AddFlag(fmt.Sprintf("equipment %q: unparseable %s %q", eq.Name, key, value))
				delete(eq.Parameters, key)
			}
		}
	}

	f.Processes = normalizeUnique(f.Processes, CanonicalProcess, meta, "processes")
	f.Materials = normalizeUnique(f.Materials, CanonicalMaterial, meta, "materials")

	if f.BatchSizeMin > 0 && f.BatchSizeMax > 0 && f.BatchSizeMin > f.BatchSizeMax {
		meta.AddFlag("batch size bounds inverted, swapped")
		f.BatchSizeMin, f.BatchSizeMax = f.BatchSizeMax, f.BatchSizeMin
	}

	return nil
}

// ValidateAndRefine checks required facility fields and assigns per-field
// confidence.
func (OKWExtractor) ValidateAndRefine(f *types.OKWFacility, meta *types.ExtractionMetadata) error {
	if strings.TrimSpace(f.Name) == "" {
		meta.AddFlag("missing facility name")
		meta.UpdateConfidence("name", 0)
	} else {
		meta.UpdateConfidence("name", 1.0)
	}

	if len(f.Equipment) == 0 && len(f.Processes) == 0 {
		meta.AddFlag("no equipment or processes")
		meta.UpdateConfidence("capabilities", 0)
	} else {
		meta.UpdateConfidence("capabilities", 1.0)
	}

	if f.Location.Country == "" && f.Location.City == "" {
		meta.UpdateConfidence("location", 0.3)
	} else {
		meta.UpdateConfidence("location", 1.0)
	}

	if len(f.Materials) == 0 {
		meta.UpdateConfidence("materials", 0.5)
	} else {
		meta.UpdateConfidence("materials", 1.0)
	}

	if f.Contact == "" {
		meta.UpdateConfidence("contact", 0.4)
	} else {
		meta.UpdateConfidence("contact", 1.0)
	}

	return nil
}

// CriticalFields names the fields a usable facility record cannot lack.
func (OKWExtractor) CriticalFields() []string {
	return []string{"name", "capabilities"}
}

// looksNumericKey reports whether a parameter key names a numeric quantity
// by unit suffix convention.
func looksNumericKey(key string) bool {
	for _, suffix := range []string{"_mm", "_g", "_kg", "_w", "_rpm", "_um"} {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
