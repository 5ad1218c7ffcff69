// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "testing"

func TestUpdateConfidenceClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative clamps to zero", -0.5, 0},
		{"above one clamps to one", 1.7, 1},
		{"in range unchanged", 0.85, 0.85},
		{"zero stays zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewExtractionMetadata()
			m.UpdateConfidence("field", tt.in)
			if got := m.Confidence["field"]; got != tt.want {
				t.Errorf("Confidence[field] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateConfidenceNilMap(t *testing.T) {
	var m ExtractionMetadata
	m.UpdateConfidence("title", 0.9)
	if m.Confidence["title"] != 0.9 {
		t.Errorf("Confidence[title] = %v, want 0.9", m.Confidence["title"])
	}
}

func TestAddFlagDeduplicates(t *testing.T) {
	var m ExtractionMetadata
	m.AddFlag("duplicate process collapsed")
	m.AddFlag("missing license")
	m.AddFlag("duplicate process collapsed")

	if len(m.Flags) != 2 {
		t.Errorf("Flags = %v, want 2 entries", m.Flags)
	}
}

func TestRecomputeQuality(t *testing.T) {
	critical := []string{"title", "license"}

	tests := []struct {
		name       string
		confidence map[string]float64
		want       ExtractionQuality
	}{
		{
			name:       "all critical fields confident",
			confidence: map[string]float64{"title": 1, "license": 0.8, "description": 0.2},
			want:       QualityComplete,
		},
		{
			name:       "critical field low but most fields fine",
			confidence: map[string]float64{"title": 1, "license": 0.5, "description": 0.9, "processes": 0.8},
			want:       QualityPartial,
		},
		{
			name:       "critical field missing entirely",
			confidence: map[string]float64{"title": 1, "description": 0.9, "processes": 0.8},
			want:       QualityPartial,
		},
		{
			name:       "half or more fields low",
			confidence: map[string]float64{"title": 0.3, "license": 0.4, "description": 0.9, "processes": 0.2},
			want:       QualityInsufficient,
		},
		{
			name:       "no fields at all",
			confidence: map[string]float64{},
			want:       QualityInsufficient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ExtractionMetadata{Confidence: tt.confidence}
			m.RecomputeQuality(critical)
			if m.Quality != tt.want {
				t.Errorf("Quality = %q, want %q", m.Quality, tt.want)
			}
		})
	}
}

func TestRecomputeQualityNeverUpgradesFailed(t *testing.T) {
	m := ExtractionMetadata{
		Quality:    QualityFailed,
		Confidence: map[string]float64{"title": 1, "license": 1},
	}
	m.RecomputeQuality([]string{"title"})
	if m.Quality != QualityFailed {
		t.Errorf("Quality = %q, want failed", m.Quality)
	}
}
