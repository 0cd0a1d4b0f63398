package config

import "fmt"

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// StoreConfig selects the record store.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// DSN is the SQLite path or the PostgreSQL connection URL.
	DSN string `json:"dsn"`
	// Seed is an optional JSON dataset imported at startup. Entities that
	// already exist are skipped.
	Seed string `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = StoreMemory
	}
	if c.Backend == StoreSQLite && c.DSN == "" {
		c.DSN = "hydroalert.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case StoreMemory, StoreSQLite:
		return nil
	case StorePostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for postgres")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}
