// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"strings"

	"github.com/helpfulengineering/matching-engine/internal/extract"
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// Penalty factors applied per unknown dimension of compatibility. A
// capability that says nothing about a requirement parameter is probably
// fine; one that says nothing about a hard constraint is riskier.
const (
	unknownParameterPenalty  = 0.95
	unknownConstraintPenalty = 0.9
	exceededParameterPenalty = 0.6
)

// ScorePair computes the compatibility of one requirement/capability pair:
// a type gate, a name match, a parameter check against the capability's
// limits, and a constraint check against its limitations, multiplied and
// clamped to [0,1]. Near-name matches are not scored here; they arrive as
// substitutions.
func ScorePair(req types.Requirement, cap types.Capability) float64 {
	if req.Type != cap.Type {
		return 0
	}
	if req.Name != cap.Name {
		return 0
	}

	score := parameterScore(req, cap)
	if score == 0 {
		return 0
	}

	cons := constraintScore(req, cap)
	if cons == 0 {
		return 0
	}

	return clamp01(score * cons)
}

// parameterScore checks each numeric requirement parameter against the
// capability. A "max_<param>" limitation is a hard limit: exceeding it
// zeroes the pair. A same-named capability parameter is treated as the
// offered maximum: exceeding it is penalized but not fatal, since offered
// values are often nominal. Parameters the capability says nothing about
// take a small penalty each.
func parameterScore(req types.Requirement, cap types.Capability) float64 {
	score := 1.0

	for key, raw := range req.Parameters {
		reqVal, err := extract.ParseNumeric(raw)
		if err != nil {
			continue
		}

		if limRaw, ok := cap.Limitations["max_"+key]; ok {
			if limit, err := extract.ParseNumeric(limRaw); err == nil {
				if reqVal > limit {
					return 0
				}
				continue
			}
		}

		if offRaw, ok := cap.Parameters[key]; ok {
			if offered, err := extract.ParseNumeric(offRaw); err == nil {
				if reqVal > offered {
					score *= exceededParameterPenalty
				}
				continue
			}
		}

		score *= unknownParameterPenalty
	}

	return score
}

// constraintScore checks each requirement constraint. A limitation with the
// same key and a different value is a contradiction and zeroes the pair; a
// matching parameter or limitation satisfies the constraint; silence takes
// a penalty.
func constraintScore(req types.Requirement, cap types.Capability) float64 {
	score := 1.0

	for key, want := range req.Constraints {
		if have, ok := cap.Limitations[key]; ok {
			if !constraintValueEqual(want, have) {
				return 0
			}
			continue
		}
		if have, ok := cap.Parameters[key]; ok {
			if constraintValueEqual(want, have) {
				continue
			}
		}
		score *= unknownConstraintPenalty
	}

	return score
}

// constraintValueEqual compares constraint values case-insensitively, with
// numeric comparison when both sides parse.
func constraintValueEqual(want, have string) bool {
	if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
		return true
	}
	wv, werr := extract.ParseNumeric(want)
	hv, herr := extract.ParseNumeric(have)
	return werr == nil && herr == nil && wv == hv
}
