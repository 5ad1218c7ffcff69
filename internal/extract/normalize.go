// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// processAliases maps common manufacturing process spellings to canonical
// names. Canonical names are lowercase-hyphenated; aliases are matched after
// normalization.
var processAliases = map[string]string{
	"3d-printing":                "fdm",
	"fused-deposition-modeling":  "fdm",
	"fused-filament-fabrication": "fdm",
	"fff":                        "fdm",
	"stereolithography":          "sla",
	"resin-printing":             "sla",
	"selective-laser-sintering":  "sls",
	"cnc":                        "cnc-milling",
	"cnc-machining":              "cnc-milling",
	"milling":                    "cnc-milling",
	"machining":                  "cnc-milling",
	"turning":                    "cnc-turning",
	"lathe":                      "cnc-turning",
	"laser-cutting":              "laser-cutting",
	"laser-engraving":            "laser-cutting",
	"water-jet-cutting":          "waterjet-cutting",
	"waterjet":                   "waterjet-cutting",
	"injection-moulding":         "injection-molding",
	"sheet-metal-bending":        "sheet-metal-forming",
	"pcb-fabrication":            "pcb-manufacturing",
	"pcb-assembly":               "smt-assembly",
	"soldering":                  "hand-soldering",
	"welding":                    "welding",
	"tig-welding":                "welding",
	"mig-welding":                "welding",
}

// materialAliases maps common material spellings to canonical names.
var materialAliases = map[string]string{
	"polylactic-acid":      "pla",
	"pla-filament":         "pla",
	"abs-plastic":          "abs",
	"petg-filament":        "petg",
	"acrylic":              "pmma",
	"plexiglass":           "pmma",
	"aluminium":            "aluminum",
	"aluminium-6061":       "aluminum-6061",
	"stainless":            "stainless-steel",
	"ss304":                "stainless-steel-304",
	"mild-steel":           "steel",
	"plywood-sheet":        "plywood",
	"mdf-board":            "mdf",
	"polycarbonate":        "pc",
	"nylon-filament":       "nylon",
	"silicone-rubber":      "silicone",
	"fr4":                  "fr4",
	"copper-clad-laminate": "fr4",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName lowercases a name and collapses every run of
// non-alphanumeric characters into a single hyphen.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CanonicalProcess normalizes a process name and resolves known aliases.
func CanonicalProcess(s string) string {
	n := NormalizeName(s)
	if canonical, ok := processAliases[n]; ok {
		return canonical
	}
	return n
}

// CanonicalMaterial normalizes a material name and resolves known aliases.
func CanonicalMaterial(s string) string {
	n := NormalizeName(s)
	if canonical, ok := materialAliases[n]; ok {
		return canonical
	}
	return n
}

// dimensionPattern matches envelopes like "220x110x50 mm" or "22 × 11 × 5 cm".
var dimensionPattern = regexp.MustCompile(
	`(?i)^\s*(\d+(?:\.\d+)?)\s*[x×]\s*(\d+(?:\.\d+)?)\s*[x×]\s*(\d+(?:\.\d+)?)\s*(mm|cm|m|in)?\s*$`)

// unitToMM converts a supported length unit to millimeters.
var unitToMM = map[string]float64{
	"":   1, // bare numbers are taken as millimeters
	"mm": 1,
	"cm": 10,
	"m":  1000,
	"in": 25.4,
}

// ParseDimensions parses a WxDxH envelope string into millimeter values.
// The boolean is false when the string does not look like an envelope.
func ParseDimensions(s string) (width, depth, height float64, ok bool) {
	m := dimensionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}

	unit := strings.ToLower(m[4])
	factor, known := unitToMM[unit]
	if !known {
		return 0, 0, 0, false
	}

	parse := func(v string) float64 {
		f, _ := strconv.ParseFloat(v, 64)
		return f * factor
	}
	return parse(m[1]), parse(m[2]), parse(m[3]), true
}

// FormatMM renders a millimeter value as a decimal string parameter,
// trimming a trailing ".0".
func FormatMM(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// ParseNumeric extracts the leading numeric value from a parameter string
// such as "250", "0.1 mm", or "40W".
func ParseNumeric(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	i := 0
	for i < len(trimmed) {
		c := trimmed[i]
		if (c >= '0' && c <= '9') || c == '.' || (i == 0 && c == '-') {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("no numeric prefix in %q", s)
	}
	return strconv.ParseFloat(trimmed[:i], 64)
}
