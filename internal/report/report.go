// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders match rankings into reviewable report files and
// loads them back.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/helpfulengineering/matching-engine/internal/match"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// Report is the on-disk representation of one matching run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `yaml:"run_id"`

	// Timestamp records when the run finished.
	Timestamp time.Time `yaml:"timestamp"`

	// ManifestTitle and ManifestPath identify the matched design.
	ManifestTitle string `yaml:"manifest_title"`
	ManifestPath  string `yaml:"manifest_path,omitempty"`

	// Requirements is the requirement set that was matched.
	Requirements []types.Requirement `yaml:"requirements"`

	// Ranking is the ranked facility outcome.
	Ranking match.Ranking `yaml:"ranking"`
}

// New assembles a report for a completed run with a fresh run ID.
func New(manifest *types.OKHManifest, manifestPath string, reqs []types.Requirement, ranking match.Ranking) *Report {
	return &Report{
		RunID:         uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		ManifestTitle: manifest.Title,
		ManifestPath:  manifestPath,
		Requirements:  reqs,
		Ranking:       ranking,
	}
}

// Write saves the report as YAML and Markdown under outputDir, named by
// run ID. It returns the YAML path.
func (r *Report) Write(outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	yamlPath := filepath.Join(outputDir, r.RunID+".yaml")
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", yamlPath, err)
	}

	mdPath := filepath.Join(outputDir, r.RunID+".md")
	if err := os.WriteFile(mdPath, []byte(r.Markdown()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", mdPath, err)
	}

	return yamlPath, nil
}

// Load reads a previously written YAML report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}

// Markdown renders the report as a human-readable document: the ranked
// facilities, then per-facility matched, substituted, and missing
// requirements.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Match report: %s\n\n", r.ManifestTitle)
	fmt.Fprintf(&b, "Run `%s` at %s: %d requirements, %d facilities evaluated.\n\n",
		r.RunID, r.Timestamp.Format(time.RFC3339), len(r.Requirements), len(r.Ranking.Results))

	if len(r.Ranking.Results) == 0 {
		b.WriteString("No facilities matched.\n")
		return b.String()
	}

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Facility | Confidence | Matched | Missing | Substitutions |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i, res := range r.Ranking.Results {
		name := res.FacilityName
		if name == "" {
			name = res.FacilityID
		}
		fmt.Fprintf(&b, "| %d | %s | %.2f | %d | %d | %d |\n",
			i+1, name, res.Confidence, len(res.Matched), len(res.Missing), len(res.Substitutions))
	}
	fmt.Fprintf(&b, "\nConfidence across facilities: mean %.2f, median %.2f, p90 %.2f.\n",
		r.Ranking.Stats.Mean, r.Ranking.Stats.Median, r.Ranking.Stats.P90)

	for i, res := range r.Ranking.Results {
		name := res.FacilityName
		if name == "" {
			name = res.FacilityID
		}
		fmt.Fprintf(&b, "\n## %d. %s (%.2f)\n\n", i+1, name, res.Confidence)

		if len(res.Matched) > 0 {
			b.WriteString("| Requirement | Capability | Score | Via |\n")
			b.WriteString("|---|---|---|---|\n")
			for _, pair := range sortedPairs(res) {
				via := "direct"
				if pair.Substituted {
					via = "substitution"
				}
				fmt.Fprintf(&b, "| %s | %s | %.2f | %s |\n",
					pair.Requirement.Key(), pair.Capability.Name, pair.Score, via)
			}
		}

		for _, sub := range res.Substitutions {
			fmt.Fprintf(&b, "\n- substituted %s with %s (%.2f)", sub.Original, sub.Substitute, sub.Confidence)
			if sub.Notes != "" {
				fmt.Fprintf(&b, ": %s", sub.Notes)
			}
		}
		if len(res.Substitutions) > 0 {
			b.WriteString("\n")
		}

		if len(res.Missing) > 0 {
			b.WriteString("\nMissing:\n")
			for _, req := range res.Missing {
				marker := "optional"
				if req.IsRequired {
					marker = "required"
				}
				fmt.Fprintf(&b, "- %s (%s)\n", req.Key(), marker)
			}
		}
	}

	if len(r.Ranking.FacilityErrors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, e := range r.Ranking.FacilityErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}

// sortedPairs returns a result's matched pairs ordered by requirement key.
func sortedPairs(res *types.MatchResult) []types.MatchedPair {
	pairs := make([]types.MatchedPair, 0, len(res.Matched))
	for _, p := range res.Matched {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Requirement.Key().String() < pairs[j].Requirement.Key().String()
	})
	return pairs
}
