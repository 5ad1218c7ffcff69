// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// --- test helpers ---

const sampleManifestYAML = `
title: Parametric Enclosure
version: "1.2"
license: CERN-OHL-S-2.0
description: A parametric electronics enclosure.
manufacturing-processes:
  - 3D Printing
  - Laser Cutting
bom:
  - name: PLA Filament
    quantity: 250 g
  - name: Plexiglass
    quantity: 1 sheet
tool-list:
  - Soldering Iron
dimensions: 220x110x50 mm
`

const sampleFacilityYAML = `
id: makerspace-01
name: Riverside Makerspace
location:
  city: Rotterdam
  country: NL
equipment:
  - name: Prusa MK4
    process: FDM
    parameters:
      build_width_mm: "250"
      build_depth_mm: "210"
      build_height_mm: "220"
  - name: Epilog Laser
    parameters:
      power_w: "60"
processes:
  - CNC
materials:
  - Polylactic Acid
  - Plywood
contact: hello@riverside.example
`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- pipeline tests ---

func TestExtractManifest(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "enclosure.yaml", sampleManifestYAML)

	result, err := ExtractManifest(path)
	if err != nil {
		t.Fatalf("ExtractManifest: %v", err)
	}

	m := result.Manifest
	if m.Title != "Parametric Enclosure" {
		t.Errorf("Title = %q", m.Title)
	}
	if len(m.Processes) != 2 || m.Processes[0] != "fdm" || m.Processes[1] != "laser-cutting" {
		t.Errorf("Processes = %v, want [fdm laser-cutting]", m.Processes)
	}
	if len(m.BOM) != 2 {
		t.Fatalf("BOM = %v, want 2 entries", m.BOM)
	}
	if m.BOM[0].MaterialID != "pla" {
		t.Errorf("BOM[0].MaterialID = %q, want pla", m.BOM[0].MaterialID)
	}
	if m.BOM[1].MaterialID != "pmma" {
		t.Errorf("BOM[1].MaterialID = %q, want pmma", m.BOM[1].MaterialID)
	}
	if m.Tools[0] != "soldering-iron" {
		t.Errorf("Tools = %v", m.Tools)
	}
	if m.Parameters["width_mm"] != "220" || m.Parameters["height_mm"] != "50" {
		t.Errorf("Parameters = %v, want parsed envelope", m.Parameters)
	}

	if result.Metadata.Quality != types.QualityComplete {
		t.Errorf("Quality = %q, want complete; flags: %v",
			result.Metadata.Quality, result.Metadata.Flags)
	}
}

func TestExtractManifestJSON(t *testing.T) {
	content := `{"title": "Bracket", "license": "MIT", "manufacturing_processes": ["CNC"]}`
	path := writeDoc(t, t.TempDir(), "bracket.json", content)

	result, err := ExtractManifest(path)
	if err != nil {
		t.Fatalf("ExtractManifest: %v", err)
	}
	if result.Manifest.Title != "Bracket" {
		t.Errorf("Title = %q", result.Manifest.Title)
	}
	if len(result.Manifest.Processes) != 1 || result.Manifest.Processes[0] != "cnc-milling" {
		t.Errorf("Processes = %v, want [cnc-milling]", result.Manifest.Processes)
	}

	found := false
	for _, line := range result.Metadata.Logs {
		if strings.Contains(line, "json") {
			found = true
		}
	}
	if !found {
		t.Errorf("logs should record the detected format: %v", result.Metadata.Logs)
	}
}

func TestExtractManifestQuality(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    types.ExtractionQuality
	}{
		{
			name: "unknown license is partial",
			content: `
title: Widget
license: my-own-license
manufacturing-processes: [FDM]
bom:
  - name: PLA
description: A widget.
`,
			want: types.QualityPartial,
		},
		{
			name:    "missing almost everything is insufficient",
			content: "description: just a description\n",
			want:    types.QualityInsufficient,
		},
		{
			name: "missing license alone is partial",
			content: `
title: Widget
manufacturing-processes: [FDM]
bom:
  - name: PLA
description: A widget.
`,
			want: types.QualityPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDoc(t, t.TempDir(), "doc.yaml", tt.content)
			result, err := ExtractManifest(path)
			if err != nil {
				t.Fatalf("ExtractManifest: %v", err)
			}
			if result.Metadata.Quality != tt.want {
				t.Errorf("Quality = %q, want %q; confidence: %v",
					result.Metadata.Quality, tt.want, result.Metadata.Confidence)
			}
		})
	}
}

func TestExtractManifestParseFailure(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "broken.yaml", "title: [unclosed\n")

	result, err := ExtractManifest(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if result == nil {
		t.Fatal("partial result expected even on failure")
	}
	if result.Metadata.Quality != types.QualityFailed {
		t.Errorf("Quality = %q, want failed", result.Metadata.Quality)
	}
}

func TestExtractManifestDuplicateProcessFlagged(t *testing.T) {
	content := `
title: Widget
license: MIT
manufacturing-processes: [CNC, cnc-machining, Milling]
`
	path := writeDoc(t, t.TempDir(), "dup.yaml", content)

	result, err := ExtractManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	// All three aliases collapse to cnc-milling.
	if len(result.Manifest.Processes) != 1 {
		t.Errorf("Processes = %v, want 1 entry", result.Manifest.Processes)
	}
	found := false
	for _, f := range result.Metadata.Flags {
		if strings.Contains(f, "duplicate processes") {
			found = true
		}
	}
	if !found {
		t.Errorf("flags should record the collapse: %v", result.Metadata.Flags)
	}
}

func TestExtractFacility(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "makerspace-01.yaml", sampleFacilityYAML)

	result, err := ExtractFacility(path)
	if err != nil {
		t.Fatalf("ExtractFacility: %v", err)
	}

	f := result.Facility
	if f.ID != "makerspace-01" {
		t.Errorf("ID = %q", f.ID)
	}
	if f.Equipment[0].Process != "fdm" {
		t.Errorf("Equipment[0].Process = %q, want fdm", f.Equipment[0].Process)
	}
	// The laser has no process declared; it is inferred from the name.
	if f.Equipment[1].Process == "" {
		t.Error("Equipment[1].Process should have been inferred")
	}
	if len(f.Processes) != 1 || f.Processes[0] != "cnc-milling" {
		t.Errorf("Processes = %v, want [cnc-milling]", f.Processes)
	}
	if f.Materials[0] != "pla" {
		t.Errorf("Materials = %v", f.Materials)
	}
	if result.Metadata.Quality != types.QualityComplete {
		t.Errorf("Quality = %q, want complete; flags: %v",
			result.Metadata.Quality, result.Metadata.Flags)
	}
}

func TestExtractFacilityIDDefaultsToFilename(t *testing.T) {
	content := `
name: Anonymous Shop
equipment:
  - name: Bandsaw
`
	path := writeDoc(t, t.TempDir(), "shop-17.yaml", content)

	result, err := ExtractFacility(path)
	if err != nil {
		t.Fatal(err)
	}
	if result.Facility.ID != "shop-17" {
		t.Errorf("ID = %q, want shop-17", result.Facility.ID)
	}
}

func TestExtractFacilityDropsUnparseableNumericParams(t *testing.T) {
	content := `
name: Flaky Shop
equipment:
  - name: Mill
    process: CNC
    parameters:
      travel_x_mm: "not a number"
      spindle_rpm: "8000"
`
	path := writeDoc(t, t.TempDir(), "flaky.yaml", content)

	result, err := ExtractFacility(path)
	if err != nil {
		t.Fatal(err)
	}

	params := result.Facility.Equipment[0].Parameters
	if _, exists := params["travel_x_mm"]; exists {
		t.Error("unparseable numeric parameter should be dropped")
	}
	if params["spindle_rpm"] != "8000" {
		t.Errorf("valid parameter lost: %v", params)
	}
	found := false
	for _, f := range result.Metadata.Flags {
		if strings.Contains(f, "travel_x_mm") {
			found = true
		}
	}
	if !found {
		t.Errorf("dropped parameter should be flagged: %v", result.Metadata.Flags)
	}
}

func TestExtractFacilitySwapsInvertedBatchBounds(t *testing.T) {
	content := `
name: Batch Shop
processes: [FDM]
batch_size_min: 500
batch_size_max: 10
`
	path := writeDoc(t, t.TempDir(), "batch.yaml", content)

	result, err := ExtractFacility(path)
	if err != nil {
		t.Fatal(err)
	}
	f := result.Facility
	if f.BatchSizeMin != 10 || f.BatchSizeMax != 500 {
		t.Errorf("batch bounds = [%d, %d], want [10, 500]", f.BatchSizeMin, f.BatchSizeMax)
	}
}

// --- batch tests ---

func TestExtractAll(t *testing.T) {
	baseDir := t.TempDir()
	rawPath := filepath.Join(baseDir, rawDir)
	if err := os.MkdirAll(rawPath, 0o755); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, rawPath, "good.yaml", sampleManifestYAML)
	writeDoc(t, rawPath, "broken.yaml", "title: [unclosed\n")
	writeDoc(t, rawPath, "notes.txt", "not a manifest")

	var buf strings.Builder
	summary, err := ExtractAll(context.Background(), KindOKH, baseDir, &buf)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if summary.Extracted != 1 {
		t.Errorf("Extracted = %d, want 1", summary.Extracted)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Total() != 2 {
		t.Errorf("Total() = %d, want 2 (txt file ignored)", summary.Total())
	}

	outPath := filepath.Join(baseDir, extractedDir, "good-extracted.yaml")
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("extraction output missing: %v", err)
	}
}

func TestExtractAllSkipsUnchanged(t *testing.T) {
	baseDir := t.TempDir()
	rawPath := filepath.Join(baseDir, rawDir)
	if err := os.MkdirAll(rawPath, 0o755); err != nil {
		t.Fatal(err)
	}
	inPath := writeDoc(t, rawPath, "good.yaml", sampleManifestYAML)

	var buf strings.Builder
	if _, err := ExtractAll(context.Background(), KindOKH, baseDir, &buf); err != nil {
		t.Fatal(err)
	}

	// Second run without touching the input.
	buf.Reset()
	summary, err := ExtractAll(context.Background(), KindOKH, baseDir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Extracted != 0 {
		t.Errorf("second run = %+v, want 1 skipped", summary)
	}

	// Touch the input into the future; it should be re-extracted.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(inPath, future, future); err != nil {
		t.Fatal(err)
	}
	summary, err = ExtractAll(context.Background(), KindOKH, baseDir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Extracted != 1 {
		t.Errorf("after touch = %+v, want 1 extracted", summary)
	}
}

func TestExtractAllOKW(t *testing.T) {
	baseDir := t.TempDir()
	recPath := filepath.Join(baseDir, recordsDir)
	if err := os.MkdirAll(recPath, 0o755); err != nil {
		t.Fatal(err)
	}
	writeDoc(t, recPath, "makerspace-01.yaml", sampleFacilityYAML)

	var buf strings.Builder
	summary, err := ExtractAll(context.Background(), KindOKW, baseDir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Extracted != 1 {
		t.Errorf("Extracted = %d, want 1", summary.Extracted)
	}
}

func TestExtractFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeDoc(t, dir, "splitter.yaml", sampleManifestYAML)
	broken := writeDoc(t, dir, "broken.yaml", "title: [unclosed\n")

	var buf strings.Builder
	summary, err := ExtractFiles(context.Background(), KindOKH, []string{good, broken}, &buf)
	if err != nil {
		t.Fatalf("ExtractFiles: %v", err)
	}

	if summary.Extracted != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 extracted, 1 failed", summary)
	}
	if _, err := os.Stat(filepath.Join(dir, "splitter-extracted.yaml")); err != nil {
		t.Errorf("output missing beside source: %v", err)
	}
}
