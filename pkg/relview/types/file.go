package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Validate checks the structural invariants of a snapshot: tag names are
// unique across releases, and asset names are unique within each release.
func (c *Config) Validate() error {
	tags := make(map[string]struct{}, len(c.Releases))
	for _, rel := range c.Releases {
		if rel.Tag.Name == "" {
			return fmt.Errorf("release %q has an empty tag", rel.Name)
		}
		if _, dup := tags[rel.Tag.Name]; dup {
			return fmt.Errorf("duplicate tag %q", rel.Tag.Name)
		}
		tags[rel.Tag.Name] = struct{}{}

		names := make(map[string]struct{}, len(rel.Assets))
		for _, a := range rel.Assets {
			if a.Name == "" {
				return fmt.Errorf("tag %q has an asset with an empty name", rel.Tag.Name)
			}
			if _, dup := names[a.Name]; dup {
				return fmt.Errorf("tag %q has duplicate asset %q", rel.Tag.Name, a.Name)
			}
			names[a.Name] = struct{}{}
		}
	}
	return nil
}

// Load reads and validates a snapshot document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the snapshot document to path atomically, creating parent
// directories as needed. Every field written survives a Load round-trip
// unchanged.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}
