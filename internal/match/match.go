// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

const (
	defaultMinScore              = 0.5
	defaultSubstitutionThreshold = 0.6

	// requiredWeight and optionalWeight set how much each requirement
	// contributes to the overall match confidence.
	requiredWeight = 1.0
	optionalWeight = 0.25
)

// Matcher matches requirement sets against capability sets using a
// knowledge provider for scoring and substitution discovery.
type Matcher struct {
	provider KnowledgeProvider
	cfg      types.MatchConfig
}

// NewMatcher returns a matcher with config defaults applied.
func NewMatcher(provider KnowledgeProvider, cfg types.MatchConfig) *Matcher {
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	if cfg.SubstitutionThreshold <= 0 {
		cfg.SubstitutionThreshold = defaultSubstitutionThreshold
	}
	return &Matcher{provider: provider, cfg: cfg}
}

// scoredPair is one candidate assignment during matching.
type scoredPair struct {
	reqIdx int
	capIdx int
	score  float64
}

// Match matches requirements against capabilities. Direct matches are
// assigned greedily by descending score; requirements left below MinScore
// go through substitution discovery; whatever remains is missing. The
// inputs are never mutated. An empty requirement set yields an empty
// result with zero confidence, not an error.
func (m *Matcher) Match(ctx context.Context, reqs []types.Requirement, caps []types.Capability) (*types.MatchResult, error) {
	result := &types.MatchResult{
		Matched: make(map[types.ResourceKey]types.MatchedPair),
	}

	reqs = dedupeRequirements(reqs)
	if len(reqs) == 0 {
		return result, nil
	}

	// Score every pair once.
	var pairs []scoredPair
	for ri, req := range reqs {
		for ci, cap := range caps {
			if s := m.provider.Score(req, cap); s >= m.cfg.MinScore {
				pairs = append(pairs, scoredPair{reqIdx: ri, capIdx: ci, score: s})
			}
		}
	}

	// Highest score first; ties break on requirement key then capability
	// name so results are deterministic.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		ki := reqs[pairs[i].reqIdx].Key().String()
		kj := reqs[pairs[j].reqIdx].Key().String()
		if ki != kj {
			return ki < kj
		}
		return caps[pairs[i].capIdx].Name < caps[pairs[j].capIdx].Name
	})

	assigned := make(map[int]bool, len(reqs))
	used := make(map[int]int, len(caps)) // capability index → assignments

	for _, p := range pairs {
		if assigned[p.reqIdx] {
			continue
		}
		if !capabilityAvailable(caps[p.capIdx], used[p.capIdx]) {
			continue
		}
		assigned[p.reqIdx] = true
		used[p.capIdx]++
		req := reqs[p.reqIdx]
		result.Matched[req.Key()] = types.MatchedPair{
			Requirement: req,
			Capability:  caps[p.capIdx],
			Score:       p.score,
		}
	}

	// Substitution pass for whatever direct matching left unassigned.
	for ri, req := range reqs {
		if assigned[ri] {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sub, pair, capIdx, err := m.trySubstitution(ctx, req, caps, used)
		if err != nil {
			return nil, fmt.Errorf("proposing substitutions for %s: %w", req.Key(), err)
		}
		if capIdx < 0 {
			result.Missing = append(result.Missing, req)
			continue
		}

		assigned[ri] = true
		used[capIdx]++
		result.Matched[req.Key()] = pair
		result.Substitutions = append(result.Substitutions, sub)
	}

	result.Confidence = combineConfidence(reqs, result.Matched)
	return result, nil
}

// trySubstitution asks the provider for substitutions and accepts the best
// one whose clamped confidence clears the threshold and whose substitute
// capability does not contradict the requirement's constraints. Returns a
// capability index of -1 when nothing is acceptable.
func (m *Matcher) trySubstitution(ctx context.Context, req types.Requirement, caps []types.Capability, used map[int]int) (types.Substitution, types.MatchedPair, int, error) {
	subs, err := m.provider.ProposeSubstitutions(ctx, req, caps)
	if err != nil {
		return types.Substitution{}, types.MatchedPair{}, -1, err
	}

	for _, sub := range subs {
		confidence := clamp01(sub.Confidence)
		if confidence < m.cfg.SubstitutionThreshold {
			// Proposals are ordered by clamped confidence, so the rest
			// are below the threshold too.
			break
		}

		for ci, cap := range caps {
			if cap.Type != req.Type || cap.Name != sub.Substitute {
				continue
			}
			if !capabilityAvailable(cap, used[ci]) {
				continue
			}
			// The substitute must still satisfy the requirement's
			// parameters and constraints.
			if parameterScore(req, cap) == 0 || constraintScore(req, cap) == 0 {
				continue
			}

			accepted := sub
			accepted.Confidence = confidence
			pair := types.MatchedPair{
				Requirement: req,
				Capability:  cap,
				Score:       confidence,
				Substituted: true,
			}
			return accepted, pair, ci, nil
		}
	}

	return types.Substitution{}, types.MatchedPair{}, -1, nil
}

// capabilityAvailable reports whether a capability can take another
// assignment. A capability limited to exclusive use serves one requirement.
func capabilityAvailable(cap types.Capability, uses int) bool {
	if cap.Limitations["exclusive"] == "true" {
		return uses == 0
	}
	return true
}

// dedupeRequirements collapses requirements sharing a key, first wins.
func dedupeRequirements(reqs []types.Requirement) []types.Requirement {
	seen := make(map[types.ResourceKey]bool, len(reqs))
	var out []types.Requirement
	for _, r := range reqs {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}

// combineConfidence derives the overall match confidence: the weighted mean
// of per-requirement scores, required requirements at full weight, optional
// ones at a quarter weight. Unmatched requirements contribute zero.
func combineConfidence(reqs []types.Requirement, matched map[types.ResourceKey]types.MatchedPair) float64 {
	var sum, total float64
	for _, r := range reqs {
		weight := optionalWeight
		if r.IsRequired {
			weight = requiredWeight
		}
		total += weight
		if pair, ok := matched[r.Key()]; ok {
			sum += weight * pair.Score
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}
