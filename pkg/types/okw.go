// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Location is a facility's physical location.
type Location struct {
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Equipment is one machine or workstation in an OKW facility record.
type Equipment struct {
	// Name is the equipment name as written in the record (e.g.
	// "Prusa MK4", "Haas VF-2").
	Name string `json:"name" yaml:"name"`

	// Process is the normalized manufacturing process the equipment
	// performs (e.g. "fdm", "cnc-milling"). Filled during extraction.
	Process string `json:"process,omitempty" yaml:"process,omitempty"`

	// Parameters hold what the equipment offers: build volume, spindle
	// speed, achievable tolerance. Numeric values as decimal strings.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Limitations hold hard limits such as "max_width_mm" or material
	// restrictions.
	Limitations map[string]string `json:"limitations,omitempty" yaml:"limitations,omitempty"`
}

// OKWFacility holds the fields of an Open Know-Where record that matter for
// matching: what a facility can make, with what, and at what scale.
type OKWFacility struct {
	// ID is a slug identifying the facility, derived from the record
	// filename when the record does not carry one.
	ID string `json:"id" yaml:"id"`

	// Name is the facility name.
	Name string `json:"name" yaml:"name"`

	// Location is where the facility operates.
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`

	// Equipment lists the facility's machines and workstations.
	Equipment []Equipment `json:"equipment,omitempty" yaml:"equipment,omitempty"`

	// Processes lists manufacturing processes the facility offers beyond
	// what its equipment list implies, normalized during extraction.
	Processes []string `json:"processes,omitempty" yaml:"processes,omitempty"`

	// Materials lists materials the facility stocks or works with,
	// normalized during extraction.
	Materials []string `json:"materials,omitempty" yaml:"materials,omitempty"`

	// BatchSizeMin and BatchSizeMax bound the production runs the facility
	// accepts. Zero means unbounded.
	BatchSizeMin int `json:"batch_size_min,omitempty" yaml:"batch_size_min,omitempty"`
	BatchSizeMax int `json:"batch_size_max,omitempty" yaml:"batch_size_max,omitempty"`

	// Contact is how to reach the facility.
	Contact string `json:"contact,omitempty" yaml:"contact,omitempty"`

	// SourceURL is the URL the record was fetched from, when remote.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}
