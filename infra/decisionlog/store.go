// Package decisionlog persists allocation decisions.
package decisionlog

import (
	"fmt"
	"sort"

	"github.com/kilianp07/fleetops/core/allocation"
)

// Config defines settings for decision log storage and rotation.
type Config struct {
	// Backend selects the store type: "memory", "jsonl" or "sqlite".
	// An empty backend disables the log.
	Backend string `json:"backend"`
	// Path is the file location of the log store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "decisions.jsonl"
		case "sqlite":
			c.Path = "decisions.db"
		}
	}
	if c.Backend == "jsonl" && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("decision_log: path is required")
		}
		return nil
	default:
		return fmt.Errorf("decision_log: unknown backend %s", c.Backend)
	}
}

// New opens the configured store. It returns nil when the log is disabled.
func New(cfg Config) (allocation.DecisionLog, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, nil
}

// collect filters recs, orders them chronologically and keeps the most
// recent q.Limit entries.
func collect(recs []allocation.DecisionRecord, q allocation.DecisionQuery) []allocation.DecisionRecord {
	out := make([]allocation.DecisionRecord, 0, len(recs))
	for _, r := range recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}
