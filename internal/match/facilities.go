// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// FacilityInput pairs a facility record with its derived capabilities.
type FacilityInput struct {
	Facility     types.OKWFacility
	Capabilities []types.Capability

	// RecordPath is the on-disk record the facility was loaded from, when
	// known.
	RecordPath string
}

// ConfidenceStats summarizes the confidence distribution across facilities.
type ConfidenceStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P90    float64 `json:"p90" yaml:"p90"`
}

// Ranking is the ranked outcome of matching one requirement set across
// many facilities.
type Ranking struct {
	Results []*types.MatchResult `json:"results" yaml:"results"`
	Stats   ConfidenceStats      `json:"stats" yaml:"stats"`

	// FacilityErrors records facilities that could not be evaluated.
	FacilityErrors []string `json:"facility_errors,omitempty" yaml:"facility_errors,omitempty"`
}

// MatchFacilities matches the requirements against every facility
// concurrently, ranks results by confidence, and caps them at the
// configured maximum. A facility that fails to evaluate produces a warning
// on w and an entry in FacilityErrors, not a run failure.
func (m *Matcher) MatchFacilities(ctx context.Context, reqs []types.Requirement, facilities []FacilityInput, w io.Writer) (Ranking, error) {
	if len(facilities) == 0 {
		return Ranking{}, fmt.Errorf("no facilities to match against")
	}

	type facilityResult struct {
		result *types.MatchResult
		err    error
		id     string
	}

	ch := make(chan facilityResult, len(facilities))
	var wg sync.WaitGroup

	for _, f := range facilities {
		wg.Add(1)
		go func(f FacilityInput) {
			defer wg.Done()
			result, err := m.Match(ctx, reqs, f.Capabilities)
			if err == nil {
				result.FacilityID = f.Facility.ID
				result.FacilityName = f.Facility.Name
			}
			ch <- facilityResult{result: result, err: err, id: f.Facility.ID}
		}(f)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var ranking Ranking
	for fr := range ch {
		if fr.err != nil {
			msg := fmt.Sprintf("%s: %v", fr.id, fr.err)
			ranking.FacilityErrors = append(ranking.FacilityErrors, msg)
			fmt.Fprintf(w, "warning: facility %s failed: %v\n", fr.id, fr.err)
			continue
		}
		ranking.Results = append(ranking.Results, fr.result)
	}

	sort.SliceStable(ranking.Results, func(i, j int) bool {
		if ranking.Results[i].Confidence != ranking.Results[j].Confidence {
			return ranking.Results[i].Confidence > ranking.Results[j].Confidence
		}
		return ranking.Results[i].FacilityID < ranking.Results[j].FacilityID
	})
	sort.Strings(ranking.FacilityErrors)

	ranking.Stats = confidenceStats(ranking.Results)

	if m.cfg.MaxResults > 0 && len(ranking.Results) > m.cfg.MaxResults {
		ranking.Results = ranking.Results[:m.cfg.MaxResults]
	}

	return ranking, nil
}

// confidenceStats computes the confidence distribution before the top-N cut.
func confidenceStats(results []*types.MatchResult) ConfidenceStats {
	if len(results) == 0 {
		return ConfidenceStats{}
	}

	values := make(stats.Float64Data, len(results))
	for i, r := range results {
		values[i] = r.Confidence
	}

	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	p90, _ := stats.Percentile(values, 90)

	return ConfidenceStats{Mean: mean, Median: median, P90: p90}
}

// FormatTable writes the ranking as a human-readable table to w.
func FormatTable(ranking Ranking, w io.Writer) {
	if len(ranking.Results) == 0 {
		fmt.Fprintln(w, "No facilities matched.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-24s  %-10s  %-8s  %-8s  %s\n",
		"Rank", "Facility", "Confidence", "Matched", "Missing", "Substitutions")
	fmt.Fprintln(w, strings.Repeat("-", 78))

	for i, r := range ranking.Results {
		name := r.FacilityName
		if name == "" {
			name = r.FacilityID
		}
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-24s  %-10.2f  %-8d  %-8d  %d\n",
			i+1, name, r.Confidence, len(r.Matched), len(r.Missing), len(r.Substitutions))
	}

	fmt.Fprintf(w, "\n%d facilities (mean confidence %.2f, median %.2f)\n",
		len(ranking.Results), ranking.Stats.Mean, ranking.Stats.Median)
}

// FormatJSON writes the ranking as indented JSON to w.
func FormatJSON(ranking Ranking, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ranking)
}
