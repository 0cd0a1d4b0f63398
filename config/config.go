// Package config loads the engine configuration from a YAML or JSON file
// with K_ prefixed environment overrides (K_ALERT__THRESHOLD=75 sets
// alert.threshold).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/dispatch"
	"github.com/kilianp07/hydroalert/core/metrics"
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/route"
	"github.com/kilianp07/hydroalert/core/stress"
	"github.com/kilianp07/hydroalert/infra/mqtt"
)

type Config struct {
	Store    StoreConfig     `json:"store"`
	Stress   stress.Config   `json:"stress"`
	Priority priority.Config `json:"priority"`
	Route    route.Config    `json:"route"`
	Dispatch dispatch.Config `json:"dispatch"`
	Alert    alert.Config    `json:"alert"`
	// MQTT adds an MQTT alert notifier when a broker is set.
	MQTT    mqtt.Config    `json:"mqtt"`
	Metrics metrics.Config `json:"metrics"`
	Audit   audit.Config   `json:"audit"`
	Sentry  SentryConfig   `json:"sentry"`
	API     APIConfig      `json:"api"`
}

// Load reads path, applies environment overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills unset fields of every section. The route and priority
// sections are also copied into the dispatch section.
func (c *Config) SetDefaults() {
	c.Store.SetDefaults()
	c.Stress.SetDefaults()
	c.Priority.SetDefaults()
	c.Route.SetDefaults()
	c.Dispatch.Route = c.Route
	c.Dispatch.Priority = c.Priority
	c.Dispatch.SetDefaults()
	c.Alert.SetDefaults()
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
	c.Audit.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	for name, v := range map[string]interface{ Validate() error }{
		"store":    c.Store,
		"stress":   c.Stress,
		"dispatch": c.Dispatch,
		"alert":    c.Alert,
		"audit":    c.Audit,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
