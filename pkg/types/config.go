package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "matching-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	// ManifestsDir is the base directory for OKH manifests (contains raw/,
	// extracted/).
	ManifestsDir string `json:"manifests_dir" yaml:"manifests_dir"`

	// FacilitiesDir is the base directory for OKW records (contains
	// records/, extracted/).
	FacilitiesDir string `json:"facilities_dir" yaml:"facilities_dir"`
}

// MatchConfig holds settings for the matching stage.
type MatchConfig struct {
	// MinScore is the pair score below which a direct match is not accepted
	// and substitutions are consulted (default 0.5).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// SubstitutionThreshold is the minimum clamped substitution confidence
	// for a substitution to be accepted (default 0.6).
	SubstitutionThreshold float64 `json:"substitution_threshold" yaml:"substitution_threshold"`

	// MaxResults caps the number of ranked facility results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// RegistryConfig holds settings for acquiring facility records and manifests.
type RegistryConfig struct {
	HTTPConfig `yaml:",inline"`

	// FacilitiesDir is the base directory for facility records (contains
	// records/, metadata/).
	FacilitiesDir string `json:"facilities_dir" yaml:"facilities_dir"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// APIKey is an optional key for authenticated registries.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// KnowledgeBaseConfig holds settings for the knowledge base stage.
type KnowledgeBaseConfig struct {
	// KnowledgeDir is the base directory for knowledge (contains rules/, index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReportConfig holds settings for match report generation.
type ReportConfig struct {
	// OutputDir is the directory for written reports (e.g. "output/reports/").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Extraction    ExtractionConfig    `json:"extraction" yaml:"extraction"`
	Match         MatchConfig         `json:"match" yaml:"match"`
	Registry      RegistryConfig      `json:"registry" yaml:"registry"`
	KnowledgeBase KnowledgeBaseConfig `json:"knowledge_base" yaml:"knowledge_base"`
	Report        ReportConfig        `json:"report" yaml:"report"`
}
