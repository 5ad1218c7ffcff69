// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// ExtractionQuality classifies how complete an extraction run was.
type ExtractionQuality string

const (
	QualityComplete     ExtractionQuality = "complete"
	QualityPartial      ExtractionQuality = "partial"
	QualityInsufficient ExtractionQuality = "insufficient"
	QualityFailed       ExtractionQuality = "failed"
)

// LowConfidenceThreshold is the per-field confidence below which a field
// counts as low-confidence when classifying extraction quality.
const LowConfidenceThreshold = 0.7

// ExtractionMetadata is the audit trail of one extraction run: when it ran,
// how complete it was, which fields were uncertain, and what each stage did.
type ExtractionMetadata struct {
	// Timestamp records when the extraction started.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Quality classifies the run. Recomputed from field confidences after
	// the final stage; set to failed if any stage returns an error.
	Quality ExtractionQuality `json:"quality" yaml:"quality"`

	// Flags lists conditions worth surfacing: defaulted fields, skipped
	// values, duplicates collapsed.
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`

	// Confidence maps field names to extraction certainty in [0,1].
	Confidence map[string]float64 `json:"confidence" yaml:"confidence"`

	// Logs records one line per notable stage action.
	Logs []string `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// NewExtractionMetadata returns metadata with the timestamp set and an
// empty confidence map.
func NewExtractionMetadata() ExtractionMetadata {
	return ExtractionMetadata{
		Timestamp:  time.Now().UTC(),
		Confidence: make(map[string]float64),
	}
}

// UpdateConfidence records a field confidence, clamping the value to [0,1].
// Values are clamped only here, not wherever they are produced.
func (m *ExtractionMetadata) UpdateConfidence(field string, v float64) {
	if m.Confidence == nil {
		m.Confidence = make(map[string]float64)
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.Confidence[field] = v
}

// AddFlag appends a flag, skipping exact duplicates.
func (m *ExtractionMetadata) AddFlag(flag string) {
	for _, f := range m.Flags {
		if f == flag {
			return
		}
	}
	m.Flags = append(m.Flags, flag)
}

// Logf appends a formatted line to the stage log.
func (m *ExtractionMetadata) Logf(format string, args ...any) {
	m.Logs = append(m.Logs, fmt.Sprintf(format, args...))
}

// RecomputeQuality reclassifies the run from field confidences: complete if
// no critical field is low-confidence, partial if fewer than half of all
// fields are low-confidence, insufficient otherwise. A failed quality is
// never upgraded.
func (m *ExtractionMetadata) RecomputeQuality(critical []string) {
	if m.Quality == QualityFailed {
		return
	}

	low := 0
	for _, v := range m.Confidence {
		if v < LowConfidenceThreshold {
			low++
		}
	}

	criticalLow := false
	for _, field := range critical {
		if v, ok := m.Confidence[field]; !ok || v < LowConfidenceThreshold {
			criticalLow = true
			break
		}
	}

	switch {
	case !criticalLow:
		m.Quality = QualityComplete
	case len(m.Confidence) > 0 && low*2 < len(m.Confidence):
		m.Quality = QualityPartial
	default:
		m.Quality = QualityInsufficient
	}
}

// OKHExtraction is the output of extracting one OKH manifest.
type OKHExtraction struct {
	// SourcePath is the file the manifest was read from.
	SourcePath string `json:"source_path,omitempty" yaml:"source_path,omitempty"`

	// Manifest is the parsed, normalized manifest.
	Manifest OKHManifest `json:"manifest" yaml:"manifest"`

	// Metadata is the run's audit trail.
	Metadata ExtractionMetadata `json:"metadata" yaml:"metadata"`
}

// OKWExtraction is the output of extracting one OKW facility record.
type OKWExtraction struct {
	// SourcePath is the file the record was read from.
	SourcePath string `json:"source_path,omitempty" yaml:"source_path,omitempty"`

	// Facility is the parsed, normalized facility record.
	Facility OKWFacility `json:"facility" yaml:"facility"`

	// Metadata is the run's audit trail.
	Metadata ExtractionMetadata `json:"metadata" yaml:"metadata"`
}
