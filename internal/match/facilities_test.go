// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"strings"
	"testing"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

func facilityInput(id string, processes ...string) FacilityInput {
	var caps []types.Capability
	for _, p := range processes {
		caps = append(caps, types.Capability{
			Name: p, Type: types.ResourceProcess, FacilityID: id,
		})
	}
	return FacilityInput{
		Facility:     types.OKWFacility{ID: id, Name: "Facility " + id},
		Capabilities: caps,
	}
}

func TestMatchFacilitiesRanksByConfidence(t *testing.T) {
	m := newTestMatcher(nil)
	reqs := []types.Requirement{procReq("fdm"), procReq("laser-cutting")}

	facilities := []FacilityInput{
		facilityInput("partial", "fdm"),
		facilityInput("full", "fdm", "laser-cutting"),
		facilityInput("empty"),
	}

	var buf strings.Builder
	ranking, err := m.MatchFacilities(context.Background(), reqs, facilities, &buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(ranking.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(ranking.Results))
	}
	if ranking.Results[0].FacilityID != "full" {
		t.Errorf("top facility = %s, want full", ranking.Results[0].FacilityID)
	}
	if ranking.Results[0].Confidence != 1.0 {
		t.Errorf("top confidence = %v, want 1.0", ranking.Results[0].Confidence)
	}
	if ranking.Results[2].FacilityID != "empty" {
		t.Errorf("bottom facility = %s, want empty", ranking.Results[2].FacilityID)
	}
}

func TestMatchFacilitiesTieBreaksOnID(t *testing.T) {
	m := newTestMatcher(nil)
	reqs := []types.Requirement{procReq("fdm")}

	facilities := []FacilityInput{
		facilityInput("zeta", "fdm"),
		facilityInput("alpha", "fdm"),
	}

	var buf strings.Builder
	ranking, err := m.MatchFacilities(context.Background(), reqs, facilities, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if ranking.Results[0].FacilityID != "alpha" {
		t.Errorf("tie should break on facility ID: %s first", ranking.Results[0].FacilityID)
	}
}

func TestMatchFacilitiesCapsResults(t *testing.T) {
	m := NewMatcher(&RuleProvider{}, types.MatchConfig{MaxResults: 2})
	reqs := []types.Requirement{procReq("fdm")}

	facilities := []FacilityInput{
		facilityInput("a", "fdm"),
		facilityInput("b", "fdm"),
		facilityInput("c", "fdm"),
	}

	var buf strings.Builder
	ranking, err := m.MatchFacilities(context.Background(), reqs, facilities, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking.Results) != 2 {
		t.Errorf("got %d results, want 2", len(ranking.Results))
	}
	// Stats cover all facilities, not just the returned page.
	if ranking.Stats.Mean != 1.0 {
		t.Errorf("Stats.Mean = %v, want 1.0", ranking.Stats.Mean)
	}
}

func TestMatchFacilitiesStats(t *testing.T) {
	m := newTestMatcher(nil)
	reqs := []types.Requirement{procReq("fdm"), procReq("welding")}

	facilities := []FacilityInput{
		facilityInput("both", "fdm", "welding"), // confidence 1.0
		facilityInput("one", "fdm"),             // confidence 0.5
	}

	var buf strings.Builder
	ranking, err := m.MatchFacilities(context.Background(), reqs, facilities, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(ranking.Stats.Mean, 0.75) {
		t.Errorf("Stats.Mean = %v, want 0.75", ranking.Stats.Mean)
	}
	if !almostEqual(ranking.Stats.Median, 0.75) {
		t.Errorf("Stats.Median = %v, want 0.75", ranking.Stats.Median)
	}
}

func TestMatchFacilitiesNoFacilities(t *testing.T) {
	m := newTestMatcher(nil)
	var buf strings.Builder
	if _, err := m.MatchFacilities(context.Background(), []types.Requirement{procReq("fdm")}, nil, &buf); err == nil {
		t.Fatal("expected error with no facilities")
	}
}

func TestMatchFacilitiesRecordsPerFacilityErrors(t *testing.T) {
	m := newTestMatcher(failingRules{})
	// The requirement misses everywhere, forcing the substitution path and
	// its failing rule source for every facility.
	reqs := []types.Requirement{procReq("fdm")}

	facilities := []FacilityInput{facilityInput("broken", "sla")}

	var buf strings.Builder
	ranking, err := m.MatchFacilities(context.Background(), reqs, facilities, &buf)
	if err != nil {
		t.Fatalf("per-facility failures must not fail the run: %v", err)
	}
	if len(ranking.FacilityErrors) != 1 {
		t.Errorf("FacilityErrors = %v, want 1", ranking.FacilityErrors)
	}
	if !strings.Contains(buf.String(), "warning") {
		t.Errorf("expected warning output, got %q", buf.String())
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf strings.Builder
	FormatTable(Ranking{}, &buf)
	if !strings.Contains(buf.String(), "No facilities matched") {
		t.Errorf("output = %q", buf.String())
	}
}
