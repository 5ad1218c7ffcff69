// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw OKH manifests and OKW facility records into
// normalized documents with confidence-tracked extraction metadata, and
// derives the requirement and capability records the matcher consumes.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const (
	rawDir       = "raw"
	recordsDir   = "records"
	extractedDir = "extracted"
)

// Pipeline is the three-stage extraction contract. InitialParse decodes the
// raw bytes into a document, DetailedExtract normalizes names and derives
// numeric parameters, and ValidateAndRefine checks required fields and
// assigns per-field confidence. Stages report through the shared metadata.
type Pipeline[T any] interface {
	InitialParse(data []byte, meta *types.ExtractionMetadata) (T, error)
	DetailedExtract(doc *T, meta *types.ExtractionMetadata) error
	ValidateAndRefine(doc *T, meta *types.ExtractionMetadata) error

	// CriticalFields names the confidence fields that must not be
	// low-confidence for the extraction to classify as complete.
	CriticalFields() []string
}

// Run drives a pipeline over one document. A stage error marks the run
// failed and returns the partial document alongside the error; callers get
// whatever was extracted up to the failing stage.
func Run[T any](p Pipeline[T], data []byte) (T, types.ExtractionMetadata, error) {
	meta := types.NewExtractionMetadata()

	doc, err := p.InitialParse(data, &meta)
	if err != nil {
		meta.Quality = types.QualityFailed
		meta.Logf("initial parse failed: %v", err)
		return doc, meta, fmt.Errorf("initial parse: %w", err)
	}

	if err := p.DetailedExtract(&doc, &meta); err != nil {
		meta.Quality = types.QualityFailed
		meta.Logf("detailed extract failed: %v", err)
		return doc, meta, fmt.Errorf("detailed extract: %w", err)
	}

	if err := p.ValidateAndRefine(&doc, &meta); err != nil {
		meta.Quality = types.QualityFailed
		meta.Logf("validate failed: %v", err)
		return doc, meta, fmt.Errorf("validate and refine: %w", err)
	}

	meta.RecomputeQuality(p.CriticalFields())
	return doc, meta, nil
}

// decodeDocument unmarshals YAML or JSON into v, sniffing the format from
// the first non-space byte. Returns the detected format name.
func decodeDocument(data []byte, v any) (string, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(data, v); err != nil {
			return "json", fmt.Errorf("parsing JSON: %w", err)
		}
		return "json", nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return "yaml", fmt.Errorf("parsing YAML: %w", err)
	}
	return "yaml", nil
}

// ExtractManifest runs the OKH pipeline over one manifest file.
func ExtractManifest(path string) (*types.OKHExtraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	manifest, meta, err := Run[types.OKHManifest](OKHExtractor{}, data)
	result := &types.OKHExtraction{
		SourcePath: path,
		Manifest:   manifest,
		Metadata:   meta,
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// ExtractFacility runs the OKW pipeline over one facility record file. The
// facility ID defaults to the record filename when the record carries none.
func ExtractFacility(path string) (*types.OKWExtraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading facility record %s: %w", path, err)
	}

	facility, meta, err := Run[types.OKWFacility](OKWExtractor{}, data)
	result := &types.OKWExtraction{
		SourcePath: path,
		Facility:   facility,
		Metadata:   meta,
	}
	if err != nil {
		return result, err
	}
	if result.Facility.ID == "" {
		result.Facility.ID = docID(path)
	}
	return result, nil
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any documents failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// DocumentKind selects which pipeline a batch run uses.
type DocumentKind string

const (
	KindOKH DocumentKind = "okh"
	KindOKW DocumentKind = "okw"
)

// ExtractAll processes every manifest or record under baseDir's input
// directory (raw/ for OKH, records/ for OKW) and writes results to
// baseDir/extracted/. Unchanged inputs are skipped by modification time.
func ExtractAll(ctx context.Context, kind DocumentKind, baseDir string, w io.Writer) (BatchSummary, error) {
	inDir := filepath.Join(baseDir, rawDir)
	if kind == KindOKW {
		inDir = filepath.Join(baseDir, recordsDir)
	}
	outDir := filepath.Join(baseDir, extractedDir)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading input directory %s: %w", inDir, err)
	}

	var summary BatchSummary

	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		id := docID(entry.Name())
		inPath := filepath.Join(inDir, entry.Name())
		outPath := filepath.Join(outDir, id+"-extracted.yaml")

		changed, err := hasChanged(inPath, outPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", id)
			summary.Skipped++
			continue
		}

		var out any
		var quality types.ExtractionQuality
		switch kind {
		case KindOKH:
			result, err := ExtractManifest(inPath)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
				continue
			}
			out, quality = result, result.Metadata.Quality
		case KindOKW:
			result, err := ExtractFacility(inPath)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
				continue
			}
			out, quality = result, result.Metadata.Quality
		default:
			return summary, fmt.Errorf("unknown document kind %q", kind)
		}

		if err := writeExtraction(outPath, out); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", id, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%s)\n", id, quality)
		summary.Extracted++
	}

	fmt.Fprintf(w, "\nextracted: %d, skipped: %d, failed: %d\n",
		summary.Extracted, summary.Skipped, summary.Failed)

	return summary, nil
}

// ExtractFiles processes the named documents, writing each result as
// <id>-extracted.yaml beside its source. Unlike ExtractAll there is no
// change detection; explicitly named files are always re-extracted.
func ExtractFiles(ctx context.Context, kind DocumentKind, paths []string, w io.Writer) (BatchSummary, error) {
	var summary BatchSummary

	for _, inPath := range paths {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		id := docID(inPath)
		outPath := filepath.Join(filepath.Dir(inPath), id+"-extracted.yaml")

		var out any
		var quality types.ExtractionQuality
		switch kind {
		case KindOKH:
			result, err := ExtractManifest(inPath)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
				continue
			}
			out, quality = result, result.Metadata.Quality
		case KindOKW:
			result, err := ExtractFacility(inPath)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
				continue
			}
			out, quality = result, result.Metadata.Quality
		default:
			return summary, fmt.Errorf("unknown document kind %q", kind)
		}

		if err := writeExtraction(outPath, out); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", id, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%s)\n", id, quality)
		summary.Extracted++
	}

	return summary, nil
}

// isDocumentFile reports whether the filename looks like a manifest or record.
func isDocumentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// docID derives a document ID from a filename or path.
func docID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// hasChanged reports whether the input file is newer than the output file.
// Returns true if the output does not exist.
func hasChanged(inPath, outPath string) (bool, error) {
	inInfo, err := os.Stat(inPath)
	if err != nil {
		return false, fmt.Errorf("stat input %s: %w", inPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}

	return inInfo.ModTime().After(outInfo.ModTime()), nil
}

// writeExtraction marshals an extraction result to a YAML file.
func writeExtraction(path string, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
