// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const sampleRecordYAML = `
name: Riverside Makerspace
location:
  city: Rotterdam
  country: NL
equipment:
  - name: Prusa MK4
    process: FDM
processes:
  - Laser Cutting
materials:
  - PLA
contact: hello@riverside.example
`

// --- identifier tests ---

func TestClassify(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "record.yaml")
	if err := os.WriteFile(tmpFile, []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   string
		want IdentifierType
	}{
		{"https://registry.example/records/shop.yaml", TypeURL},
		{"http://registry.example/shop", TypeURL},
		{tmpFile, TypePath},
		{"ftp://registry.example/shop", TypeUnknown},
		{"/nonexistent/path.yaml", TypeUnknown},
	}

	for _, tt := range tests {
		got, _ := Classify(tt.in)
		if got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		idType IdentifierType
		in     string
		want   string
	}{
		{TypeURL, "https://registry.example/records/makerspace-01.yaml", "makerspace-01"},
		{TypePath, "/data/records/shop 7.json", "shop 7"},
	}

	for _, tt := range tests {
		if got := Slug(tt.idType, tt.in); got != tt.want {
			t.Errorf("Slug(%v, %q) = %q, want %q", tt.idType, tt.in, got, tt.want)
		}
	}
}

func TestSlugFallsBackToHash(t *testing.T) {
	got := Slug(TypeURL, "https://registry.example/")
	if !strings.HasPrefix(got, "url-") {
		t.Errorf("Slug = %q, want url-<hash> fallback", got)
	}
}

// --- acquisition tests ---

func testConfig(dir string) types.RegistryConfig {
	return types.RegistryConfig{
		HTTPConfig:    types.HTTPConfig{UserAgent: "ome-test/0.1"},
		FacilitiesDir: dir,
	}
}

func TestAcquireRecordFromURL(t *testing.T) {
	var gotUserAgent, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(sampleRecordYAML))
	}))
	defer ts.Close()

	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.APIKey = "rk_test"

	var buf strings.Builder
	facility, skipped, err := AcquireRecord(context.Background(), ts.Client(), ts.URL+"/makerspace-01.yaml", cfg, &buf)
	if err != nil {
		t.Fatalf("AcquireRecord: %v", err)
	}
	if skipped {
		t.Error("first acquisition should not be skipped")
	}
	if facility.Name != "Riverside Makerspace" {
		t.Errorf("Name = %q", facility.Name)
	}
	if facility.SourceURL == "" {
		t.Error("SourceURL should be set for URL acquisitions")
	}
	if gotUserAgent != "ome-test/0.1" {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}
	if gotAuth != "Bearer rk_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	if _, err := os.Stat(filepath.Join(dir, recordsDir, "makerspace-01.yaml")); err != nil {
		t.Errorf("record not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, metadataDir, "makerspace-01.yaml")); err != nil {
		t.Errorf("metadata not written: %v", err)
	}
}

func TestAcquireRecordSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, recordsDir), 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(dir, recordsDir, "makerspace-01.yaml")
	if err := os.WriteFile(existing, []byte(sampleRecordYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	_, skipped, err := AcquireRecord(context.Background(), http.DefaultClient,
		"https://registry.example/makerspace-01.yaml", testConfig(dir), &buf)
	if err != nil {
		t.Fatalf("AcquireRecord: %v", err)
	}
	if !skipped {
		t.Error("existing record should be skipped without a fetch")
	}
}

func TestAcquireRecordFromLocalPath(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "local-shop.yaml")
	if err := os.WriteFile(src, []byte(sampleRecordYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	var buf strings.Builder
	facility, _, err := AcquireRecord(context.Background(), http.DefaultClient, src, testConfig(dir), &buf)
	if err != nil {
		t.Fatalf("AcquireRecord: %v", err)
	}
	if facility.SourceURL != "" {
		t.Error("local records should not get a SourceURL")
	}
	if _, err := os.Stat(filepath.Join(dir, recordsDir, "local-shop.yaml")); err != nil {
		t.Errorf("record not copied: %v", err)
	}
}

func TestAcquireRecordHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dir := t.TempDir()
	var buf strings.Builder
	_, _, err := AcquireRecord(context.Background(), ts.Client(), ts.URL+"/missing.yaml", testConfig(dir), &buf)
	if err == nil {
		t.Fatal("expected error for HTTP 404")
	}
	// The failed download must not leave a record behind.
	if _, statErr := os.Stat(filepath.Join(dir, recordsDir, "missing.yaml")); statErr == nil {
		t.Error("failed fetch left a record file")
	}
}

func TestAcquireBatchContinuesAfterFailure(t *testing.T) {
	srcDir := t.TempDir()
	good := filepath.Join(srcDir, "good.yaml")
	if err := os.WriteFile(good, []byte(sampleRecordYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	result := AcquireBatch(context.Background(), http.DefaultClient,
		[]string{good, "ftp://bad-scheme.example/x"}, testConfig(t.TempDir()), &buf)

	if result.Downloaded != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 downloaded, 1 failed", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures() should be true")
	}
	if result.Total() != 2 {
		t.Errorf("Total() = %d, want 2", result.Total())
	}
}

// --- loading tests ---

func TestLoadFacilities(t *testing.T) {
	dir := t.TempDir()
	recDir := filepath.Join(dir, recordsDir)
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(recDir, "makerspace-01.yaml"), []byte(sampleRecordYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	// A record that extracts at insufficient quality is skipped.
	if err := os.WriteFile(filepath.Join(recDir, "hollow.yaml"), []byte("contact: nobody\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	inputs, err := LoadFacilities(dir, &buf)
	if err != nil {
		t.Fatalf("LoadFacilities: %v", err)
	}

	if len(inputs) != 1 {
		t.Fatalf("got %d facilities, want 1; warnings: %s", len(inputs), buf.String())
	}
	in := inputs[0]
	if in.Facility.ID != "makerspace-01" {
		t.Errorf("ID = %q", in.Facility.ID)
	}
	if in.RecordPath == "" {
		t.Error("RecordPath should be set")
	}
	if len(in.Capabilities) == 0 {
		t.Error("capabilities should be derived from the record")
	}
	if !strings.Contains(buf.String(), "hollow") {
		t.Errorf("skipped record should be warned about: %q", buf.String())
	}
}

func TestLoadFacilitiesMissingDir(t *testing.T) {
	var buf strings.Builder
	if _, err := LoadFacilities(filepath.Join(t.TempDir(), "nope"), &buf); err == nil {
		t.Fatal("expected error for missing records directory")
	}
}
