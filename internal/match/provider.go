// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores requirement/capability compatibility and matches an
// OKH manifest's requirement set against OKW facility capability sets.
package match

import (
	"context"
	"sort"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// KnowledgeProvider scores requirement/capability pairs and proposes
// substitutions for requirements no capability satisfies directly.
type KnowledgeProvider interface {
	// Score returns pair compatibility in [0,1]. Zero means the capability
	// cannot serve the requirement at all.
	Score(req types.Requirement, cap types.Capability) float64

	// ProposeSubstitutions returns substitution candidates for req, drawn
	// from rule knowledge, restricted to substitutes present among the
	// candidate capabilities. Ordered by descending confidence.
	ProposeSubstitutions(ctx context.Context, req types.Requirement, candidates []types.Capability) ([]types.Substitution, error)
}

// RuleSource supplies stored substitution rules for a resource. The
// knowledge base's store implements this; a nil source leaves only the
// built-in rules.
type RuleSource interface {
	RulesFor(ctx context.Context, kind types.ResourceType, original string) ([]types.SubstitutionRule, error)
}

// builtinRules are substitutions the engine knows without a knowledge base.
// Stored rules with the same substitute take precedence.
var builtinRules = []types.SubstitutionRule{
	{Kind: types.ResourceProcess, Original: "fdm", Substitute: "sla", Confidence: 0.75,
		Notes: "resin parts are isotropic but more brittle than FDM thermoplastics"},
	{Kind: types.ResourceProcess, Original: "sla", Substitute: "fdm", Confidence: 0.6,
		Constraints: map[string]string{"min_feature_mm": "0.8"},
		Notes: "FDM cannot reproduce fine SLA features"},
	{Kind: types.ResourceProcess, Original: "fdm", Substitute: "sls", Confidence: 0.8,
		Notes: "SLS needs no supports and matches FDM strength"},
	{Kind: types.ResourceProcess, Original: "laser-cutting", Substitute: "waterjet-cutting", Confidence: 0.85,
		Notes: "waterjet handles the same sheet profiles without heat-affected edges"},
	{Kind: types.ResourceProcess, Original: "waterjet-cutting", Substitute: "laser-cutting", Confidence: 0.7,
		Constraints: map[string]string{"max_thickness_mm": "10"},
		Notes: "laser cutting limited to thin stock"},
	{Kind: types.ResourceProcess, Original: "injection-molding", Substitute: "fdm", Confidence: 0.55,
		Constraints: map[string]string{"max_batch": "100"},
		Notes: "printing replaces molding only for prototype volumes"},
	{Kind: types.ResourceProcess, Original: "cnc-milling", Substitute: "cnc-turning", Confidence: 0.4,
		Notes: "only for parts with rotational symmetry"},
	{Kind: types.ResourceMaterial, Original: "abs", Substitute: "petg", Confidence: 0.85,
		Notes: "similar strength, easier to print"},
	{Kind: types.ResourceMaterial, Original: "abs", Substitute: "asa", Confidence: 0.8,
		Notes: "ASA adds UV stability"},
	{Kind: types.ResourceMaterial, Original: "pla", Substitute: "petg", Confidence: 0.8,
		Notes: "PETG tolerates higher temperatures"},
	{Kind: types.ResourceMaterial, Original: "aluminum-6061", Substitute: "aluminum-7075", Confidence: 0.75,
		Notes: "7075 is stronger but harder to weld"},
	{Kind: types.ResourceMaterial, Original: "aluminum", Substitute: "aluminum-6061", Confidence: 0.9,
		Notes: "6061 is the default general-purpose alloy"},
	{Kind: types.ResourceMaterial, Original: "pmma", Substitute: "pc", Confidence: 0.7,
		Notes: "polycarbonate is tougher but scratches more easily"},
	{Kind: types.ResourceMaterial, Original: "plywood", Substitute: "mdf", Confidence: 0.65,
		Notes: "MDF lacks plywood's screw-holding strength"},
}

// RuleProvider is the rule-backed knowledge provider: stored rules first,
// built-in rules as fallback.
type RuleProvider struct {
	// Source supplies stored rules. Nil leaves built-in rules only.
	Source RuleSource
}

// ProposeSubstitutions gathers rules for the requirement, keeps those whose
// substitute exists among the candidate capabilities, and orders them by
// clamped confidence. Rules proposing the requirement itself are dropped.
func (p *RuleProvider) ProposeSubstitutions(ctx context.Context, req types.Requirement, candidates []types.Capability) ([]types.Substitution, error) {
	available := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.Type == req.Type {
			available[c.Name] = true
		}
	}

	var rules []types.SubstitutionRule
	if p.Source != nil {
		stored, err := p.Source.RulesFor(ctx, req.Type, req.Name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, stored...)
	}
	for _, r := range builtinRules {
		if r.Kind == req.Type && r.Original == req.Name {
			rules = append(rules, r)
		}
	}

	var subs []types.Substitution
	proposed := make(map[string]bool)
	for _, rule := range rules {
		if rule.Substitute == req.Name || proposed[rule.Substitute] {
			continue
		}
		if !available[rule.Substitute] {
			continue
		}
		proposed[rule.Substitute] = true
		subs = append(subs, types.Substitution{
			Original:    req.Name,
			Substitute:  rule.Substitute,
			Confidence:  rule.Confidence,
			Constraints: rule.Constraints,
			Notes:       rule.Notes,
			RuleID:      rule.ID,
		})
	}

	sort.SliceStable(subs, func(i, j int) bool {
		ci, cj := clamp01(subs[i].Confidence), clamp01(subs[j].Confidence)
		if ci != cj {
			return ci > cj
		}
		return subs[i].Substitute < subs[j].Substitute
	})

	return subs, nil
}

// Score implements KnowledgeProvider for direct pairs.
func (p *RuleProvider) Score(req types.Requirement, cap types.Capability) float64 {
	return ScorePair(req, cap)
}

// DirectProvider scores direct pairs but never proposes substitutions.
type DirectProvider struct{}

func (DirectProvider) Score(req types.Requirement, cap types.Capability) float64 {
	return ScorePair(req, cap)
}

func (DirectProvider) ProposeSubstitutions(context.Context, types.Requirement, []types.Capability) ([]types.Substitution, error) {
	return nil, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
