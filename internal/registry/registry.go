// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry acquires OKW facility records into the local records
// directory and loads them back as facilities with derived capabilities.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/helpfulengineering/matching-engine/internal/extract"
	"github.com/helpfulengineering/matching-engine/internal/httputil"
	"github.com/helpfulengineering/matching-engine/internal/match"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const (
	recordsDir  = "records"
	metadataDir = "metadata"
)

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Facilities []*types.OKWFacility
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AcquireRecord resolves a single identifier, fetches or copies the OKW
// record into the records directory, and extracts it to verify it parses.
// If the record already exists on disk, the fetch is skipped. The skipped
// return value indicates whether the download was skipped.
func AcquireRecord(ctx context.Context, client *http.Client, identifier string, cfg types.RegistryConfig, w io.Writer) (facility *types.OKWFacility, skipped bool, err error) {
	idType, normalized := Classify(identifier)
	if idType == TypeUnknown {
		return nil, false, fmt.Errorf("unrecognized identifier: %q is neither a URL nor an existing file", identifier)
	}

	slug := Slug(idType, normalized)
	recordPath := filepath.Join(cfg.FacilitiesDir, recordsDir, slug+".yaml")

	if _, err := os.Stat(recordPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", slug)
		result, exErr := extract.ExtractFacility(recordPath)
		if exErr != nil {
			return nil, true, fmt.Errorf("existing record %s: %w", slug, exErr)
		}
		return &result.Facility, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.FacilitiesDir, recordsDir),
		filepath.Join(cfg.FacilitiesDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "fetching: %s (%s)\n", slug, idType)

	switch idType {
	case TypeURL:
		if err := fetchRecord(ctx, client, normalized, recordPath, cfg); err != nil {
			return nil, false, fmt.Errorf("fetching %s: %w", slug, err)
		}
	case TypePath:
		if err := copyRecord(normalized, recordPath); err != nil {
			return nil, false, fmt.Errorf("copying %s: %w", slug, err)
		}
	}

	result, err := extract.ExtractFacility(recordPath)
	if err != nil {
		return nil, false, fmt.Errorf("extracting %s: %w", slug, err)
	}
	if idType == TypeURL {
		result.Facility.SourceURL = normalized
	}

	// Keep the extraction next to the record for inspection.
	metaPath := filepath.Join(cfg.FacilitiesDir, metadataDir, slug+".yaml")
	if err := writeFacilityMeta(result, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}

	return &result.Facility, false, nil
}

// AcquireBatch processes multiple identifiers, printing per-item status and
// returning a summary. It continues after individual failures and applies a
// delay between consecutive downloads.
func AcquireBatch(ctx context.Context, client *http.Client, identifiers []string, cfg types.RegistryConfig, w io.Writer) BatchResult {
	var result BatchResult
	for i, id := range identifiers {
		if i > 0 && cfg.DownloadDelay > 0 {
			time.Sleep(cfg.DownloadDelay)
		}
		facility, wasSkipped, err := AcquireRecord(ctx, client, id, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Facilities = append(result.Facilities, facility)
	}
	fmt.Fprintf(w, "\nBatch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// fetchRecord downloads a record URL to destPath using a temporary file.
// Rate-limited registries are retried with backoff.
func fetchRecord(ctx context.Context, client *http.Client, url, destPath string, cfg types.RegistryConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/yaml, application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// copyRecord copies a local record file into the records directory.
func copyRecord(srcPath, destPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}
	return os.WriteFile(destPath, data, 0o644)
}

// writeFacilityMeta writes the extraction result (facility plus metadata)
// to a YAML file.
func writeFacilityMeta(result *types.OKWExtraction, path string) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFacilities reads every record under facilitiesDir/records/ and
// returns facilities paired with their derived capabilities, ready for
// matching. Records that fail extraction produce a warning on w and are
// skipped.
func LoadFacilities(facilitiesDir string, w io.Writer) ([]match.FacilityInput, error) {
	dir := filepath.Join(facilitiesDir, recordsDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading records directory %s: %w", dir, err)
	}

	var inputs []match.FacilityInput
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		result, err := extract.ExtractFacility(path)
		if err != nil {
			fmt.Fprintf(w, "warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}
		if result.Metadata.Quality == types.QualityInsufficient {
			fmt.Fprintf(w, "warning: skipping %s: insufficient extraction quality\n", entry.Name())
			continue
		}

		inputs = append(inputs, match.FacilityInput{
			Facility:     result.Facility,
			Capabilities: extract.Capabilities(&result.Facility),
			RecordPath:   path,
		})
	}

	return inputs, nil
}

// isRecordFile reports whether the filename looks like a facility record.
func isRecordFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
