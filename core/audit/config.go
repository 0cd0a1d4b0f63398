package audit

import "fmt"

// Config selects and tunes the journal backend.
type Config struct {
	// Backend is one of "none", "jsonl" or "sqlite".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "data/audit.jsonl"
		case "sqlite":
			c.Path = "data/audit.db"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "none", "jsonl", "sqlite":
		return nil
	default:
		return fmt.Errorf("audit: unknown backend %q", c.Backend)
	}
}

// New builds the journal described by cfg.
func New(cfg Config) (Journal, error) {
	switch cfg.Backend {
	case "jsonl":
		return NewRotatingJSONLJournal(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteJournal(cfg.Path)
	case "none", "":
		return NopJournal{}, nil
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", cfg.Backend)
	}
}
