package domain

import (
	"context"
)

// VariantExtractor parses raw variant-file text into a pharmacogene-filtered
// variant set. Parsing is best-effort: malformed lines are recorded, never
// fatal.
type VariantExtractor interface {
	Extract(text string) (*VariantSet, error)
}

// SessionStore is the keyed store holding parsed variant sets between upload
// and analysis. Get returns ErrSessionNotFound for unknown or expired IDs.
type SessionStore interface {
	Put(ctx context.Context, sessionID string, set *VariantSet) error
	Get(ctx context.Context, sessionID string) (*VariantSet, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Explainer produces the narrative companion to a risk verdict from
// structured facts. Implementations must never fail the report: on any error
// the caller substitutes the deterministic template.
type Explainer interface {
	Explain(ctx context.Context, facts ExplanationFacts) (*Explanation, error)
}

// ExplanationFacts are the structured inputs to narrative generation.
// Equal facts must yield byte-identical template output.
type ExplanationFacts struct {
	Drug             string    `json:"drug"`
	Gene             Gene      `json:"gene"`
	Diplotype        string    `json:"diplotype"`
	Phenotype        Phenotype `json:"phenotype"`
	RiskLabel        RiskLabel `json:"risk_label"`
	Action           string    `json:"action"`
	Guideline        string    `json:"guideline,omitempty"`
	DetectedVariants []string  `json:"detected_variants,omitempty"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetSessionConfig() *SessionConfig
	GetDatabaseConfig() *DatabaseConfig
	GetExplainConfig() *ExplainConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
