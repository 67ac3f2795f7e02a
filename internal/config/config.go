// Package config handles the store's two configuration files:
// config.yaml (the issue-prefix) and config-minibeads.yaml (a flat
// key-value file for minibeads' private options — ID scheme, validation
// mode, sync tolerance).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"minibeads/internal/config/yamlstore"
	"minibeads/internal/issue"
)

// StoreConfig is the contents of config.yaml. issue-prefix is the only key
// the core recognizes; Extra preserves every other key verbatim so a
// rewrite never drops foreign configuration written by other tools.
type StoreConfig struct {
	Prefix string
	Extra  map[string]any
}

// LoadStoreConfig reads and parses config.yaml at path.
func LoadStoreConfig(path string) (StoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StoreConfig{}, err
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return StoreConfig{}, fmt.Errorf("config: parsing config.yaml: %w", err)
	}
	cfg := StoreConfig{Extra: raw}
	if v, ok := raw["issue-prefix"]; ok {
		if s, ok := v.(string); ok {
			cfg.Prefix = s
		}
	}
	delete(cfg.Extra, "issue-prefix")
	return cfg, nil
}

// WriteStoreConfig writes cfg to path as config.yaml, re-emitting every
// key found in Extra alongside issue-prefix.
func WriteStoreConfig(path string, cfg StoreConfig) error {
	out := make(map[string]any, len(cfg.Extra)+1)
	for k, v := range cfg.Extra {
		out[k] = v
	}
	out["issue-prefix"] = cfg.Prefix

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("config: encoding config.yaml: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Minibeads wraps the flat config-minibeads.yaml store with typed
// accessors for the keys minibeads itself understands.
type Minibeads struct {
	store *yamlstore.YAMLStore
}

// OpenMinibeadsConfig loads config-minibeads.yaml at path, setting the
// default for any missing key through the store, which writes it back to
// the file (creating the file if it is absent).
func OpenMinibeadsConfig(path string) (*Minibeads, error) {
	s, err := yamlstore.New(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyDefaults(s); err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return &Minibeads{store: s}, nil
}

// HashIDs reports whether the store is configured to allocate hashed
// (random base36) id tails rather than sequential numbers.
func (m *Minibeads) HashIDs() bool {
	v, _ := m.store.Get("mb-hash-ids")
	return v == "true"
}

// SetHashIDs persists the id scheme flag, used by the Rewriter's migrate
// operation once a migration has completed.
func (m *Minibeads) SetHashIDs(v bool) error {
	if v {
		return m.store.Set("mb-hash-ids", "true")
	}
	return m.store.Set("mb-hash-ids", "false")
}

// NoCmdLogging reports whether the command-history log (a collaborator
// concern, not written by the core) should be suppressed.
func (m *Minibeads) NoCmdLogging() bool {
	v, _ := m.store.Get("mb-no-cmd-logging")
	return v == "true"
}

// ValidationMode returns the configured default ValidationMode for
// operations that don't specify one explicitly.
func (m *Minibeads) ValidationMode() issue.ValidationMode {
	v, _ := m.store.Get("mb-validation-mode")
	switch v {
	case "silent", "warn", "error":
		return issue.ValidationMode(v)
	default:
		return issue.ValidationWarn
	}
}

// SyncToleranceMS returns the sync timestamp-comparison tolerance in
// milliseconds.
func (m *Minibeads) SyncToleranceMS() int {
	v, ok := m.store.Get("mb-sync-tolerance-ms")
	if !ok {
		return 1000
	}
	var ms int
	if _, err := fmt.Sscanf(v, "%d", &ms); err != nil {
		return 1000
	}
	return ms
}
