// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the matching-engine
// pipeline: OKH manifests, OKW facility records, the requirement and
// capability records derived from them, extraction metadata, and the
// configuration structs consumed by every stage.
package types

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ResourceType categorizes a requirement or capability. Requirements only
// ever match capabilities of the same type.
type ResourceType string

const (
	ResourceProcess   ResourceType = "process"
	ResourceMaterial  ResourceType = "material"
	ResourceEquipment ResourceType = "equipment"
	ResourceSkill     ResourceType = "skill"
)

// ResourceKey is the identity of a requirement or capability: its type and
// normalized name. Two requirements with the same key describe the same need.
type ResourceKey struct {
	Type ResourceType
	Name string
}

// String renders the key as "type/name".
func (k ResourceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.Name)
}

// MarshalText renders the key for use as a JSON or YAML map key.
func (k ResourceKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a "type/name" key.
func (k *ResourceKey) UnmarshalText(text []byte) error {
	typ, name, ok := strings.Cut(string(text), "/")
	if !ok {
		return fmt.Errorf("invalid resource key %q", text)
	}
	k.Type = ResourceType(typ)
	k.Name = name
	return nil
}

// MarshalYAML renders the key as a "type/name" scalar.
func (k ResourceKey) MarshalYAML() (any, error) {
	return k.String(), nil
}

// UnmarshalYAML parses a "type/name" scalar.
func (k *ResourceKey) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}

// Requirement is a named need derived from an OKH manifest: a manufacturing
// process, a material, a piece of equipment, or an operator skill.
type Requirement struct {
	// Name is the normalized requirement name (e.g. "cnc-milling", "pla").
	Name string `json:"name" yaml:"name"`

	// Type categorizes the requirement.
	Type ResourceType `json:"type" yaml:"type"`

	// Parameters hold typed values the requirement needs from a capability,
	// such as "width_mm" or "tolerance_mm". Numeric values are stored as
	// decimal strings.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Constraints hold hard conditions a capability must not contradict,
	// such as "food_safe: true".
	Constraints map[string]string `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// IsRequired distinguishes hard requirements from nice-to-haves. Optional
	// requirements carry reduced weight in the overall match confidence.
	IsRequired bool `json:"is_required" yaml:"is_required"`
}

// Key returns the requirement's identity.
func (r Requirement) Key() ResourceKey {
	return ResourceKey{Type: r.Type, Name: r.Name}
}

// Capability is an offered resource from an OKW facility record that can
// satisfy requirements of the same type.
type Capability struct {
	// Name is the normalized capability name.
	Name string `json:"name" yaml:"name"`

	// Type categorizes the capability.
	Type ResourceType `json:"type" yaml:"type"`

	// Parameters hold what the capability offers, such as build volume or
	// achievable tolerance. Numeric values are stored as decimal strings.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Limitations hold hard limits, such as "max_width_mm" or
	// "exclusive: true" for equipment that can serve only one requirement
	// per job.
	Limitations map[string]string `json:"limitations,omitempty" yaml:"limitations,omitempty"`

	// FacilityID identifies the facility that offers this capability.
	FacilityID string `json:"facility_id,omitempty" yaml:"facility_id,omitempty"`
}

// Key returns the capability's identity.
func (c Capability) Key() ResourceKey {
	return ResourceKey{Type: c.Type, Name: c.Name}
}

// Substitution proposes a capability standing in for a requirement it does
// not match directly, at some confidence. Confidence is stored as proposed;
// the knowledge provider clamps it to [0,1] when deciding acceptance.
type Substitution struct {
	// Original is the requirement name the substitution replaces.
	Original string `json:"original" yaml:"original"`

	// Substitute is the capability name standing in for the original.
	Substitute string `json:"substitute" yaml:"substitute"`

	// Confidence indicates how well the substitute covers the original.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Constraints are conditions under which the substitution holds
	// (e.g. "min_wall_mm: 1.2" when substituting FDM for injection molding).
	Constraints map[string]string `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// Notes is free-form guidance for the person reviewing the match.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// RuleID references the knowledge-base rule that proposed the
	// substitution, for feedback. Empty for built-in family proposals.
	RuleID string `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
}

// MatchedPair records one requirement satisfied by one capability.
type MatchedPair struct {
	Requirement Requirement `json:"requirement" yaml:"requirement"`
	Capability  Capability  `json:"capability" yaml:"capability"`

	// Score is the pair's compatibility score in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Substituted is true when the pair was formed through a substitution
	// rather than a direct match.
	Substituted bool `json:"substituted,omitempty" yaml:"substituted,omitempty"`
}

// MatchResult is the outcome of matching one requirement set against one
// facility's capability set.
type MatchResult struct {
	// FacilityID and FacilityName identify the facility that was evaluated.
	FacilityID   string `json:"facility_id" yaml:"facility_id"`
	FacilityName string `json:"facility_name,omitempty" yaml:"facility_name,omitempty"`

	// Confidence is the overall match confidence in [0,1]: the weighted mean
	// of per-requirement scores, with required requirements at full weight,
	// optional ones at a quarter weight, and missing required ones at zero.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Matched maps each satisfied requirement's key to the pair that
	// satisfied it.
	Matched map[ResourceKey]MatchedPair `json:"matched" yaml:"matched"`

	// Missing lists requirements no capability or substitution covered.
	Missing []Requirement `json:"missing,omitempty" yaml:"missing,omitempty"`

	// Substitutions lists the substitutions used to form matched pairs.
	Substitutions []Substitution `json:"substitutions,omitempty" yaml:"substitutions,omitempty"`
}

// MissingRequired reports whether any required requirement went unmatched.
func (m *MatchResult) MissingRequired() bool {
	for _, r := range m.Missing {
		if r.IsRequired {
			return true
		}
	}
	return false
}

// SubstitutionRule is a stored knowledge-base rule proposing that one
// resource can stand in for another. Rules evolve: accept/reject feedback
// shifts the confidence over time.
type SubstitutionRule struct {
	// ID is a stable identifier derived from kind, original, and substitute.
	ID string `json:"id" yaml:"id"`

	// Kind is the resource type the rule applies to.
	Kind ResourceType `json:"kind" yaml:"kind"`

	// Original is the normalized name of the resource being replaced.
	Original string `json:"original" yaml:"original"`

	// Substitute is the normalized name of the stand-in resource.
	Substitute string `json:"substitute" yaml:"substitute"`

	// Confidence is the rule's current confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Constraints are carried onto substitutions the rule proposes.
	Constraints map[string]string `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// Notes documents why the substitution works and when it does not.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Accepted and Rejected count feedback events against this rule.
	Accepted int `json:"accepted" yaml:"accepted"`
	Rejected int `json:"rejected" yaml:"rejected"`
}
