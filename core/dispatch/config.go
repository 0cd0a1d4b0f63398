package dispatch

import (
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/route"
)

// Config defines dispatch-related settings.
type Config struct {
	RouteNotes  string `json:"route_notes"`
	ManualNotes string `json:"manual_notes"`

	// Route and Priority come from their own configuration sections.
	Route    route.Config    `json:"-"`
	Priority priority.Config `json:"-"`
}

// SetDefaults fills unset fields, including the nested sections.
func (c *Config) SetDefaults() {
	if c.RouteNotes == "" {
		c.RouteNotes = "Auto-optimized route segment"
	}
	if c.ManualNotes == "" {
		c.ManualNotes = "Manual dispatch"
	}
	c.Route.SetDefaults()
	c.Priority.SetDefaults()
}

// Validate checks the nested sections.
func (c Config) Validate() error {
	if err := c.Route.Validate(); err != nil {
		return err
	}
	return c.Priority.Validate()
}
