// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BOMEntry is one bill-of-materials line from an OKH manifest.
type BOMEntry struct {
	// Name is the material or part name as written in the manifest.
	Name string `json:"name" yaml:"name"`

	// MaterialID is the normalized material identifier (e.g. "pla",
	// "aluminum-6061"). Filled during extraction.
	MaterialID string `json:"material_id,omitempty" yaml:"material_id,omitempty"`

	// Quantity is the amount as written in the manifest (e.g. "4", "250 g").
	Quantity string `json:"quantity,omitempty" yaml:"quantity,omitempty"`

	// Notes carries any per-line remarks from the manifest.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// OKHManifest holds the fields of an Open Know-How manifest that matter for
// matching: what the project is, and what making it takes.
type OKHManifest struct {
	// Title is the project title.
	Title string `json:"title" yaml:"title"`

	// Version is the design version string.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// License is the hardware license identifier (e.g. "CERN-OHL-S-2.0").
	License string `json:"license" yaml:"license"`

	// Licensor names the rights holder.
	Licensor string `json:"licensor,omitempty" yaml:"licensor,omitempty"`

	// Description is a short summary of the project.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// DocumentationHome is the canonical URL for the project documentation.
	DocumentationHome string `json:"documentation_home,omitempty" yaml:"documentation-home,omitempty"`

	// Processes lists the manufacturing processes the design calls for,
	// normalized during extraction (e.g. "cnc-milling", "fdm").
	Processes []string `json:"manufacturing_processes" yaml:"manufacturing-processes"`

	// BOM lists the materials and parts the design consumes.
	BOM []BOMEntry `json:"bom,omitempty" yaml:"bom,omitempty"`

	// Tools lists equipment the build instructions assume (e.g.
	// "soldering-iron"). Tools become optional equipment requirements.
	Tools []string `json:"tool_list,omitempty" yaml:"tool-list,omitempty"`

	// Dimensions is the overall part envelope as written in the manifest
	// (e.g. "220x110x50 mm"). Parsed into numeric parameters during
	// extraction.
	Dimensions string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`

	// Parameters holds numeric values derived during extraction, such as
	// "width_mm", "depth_mm", "height_mm".
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}
