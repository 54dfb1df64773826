// Package manifest journals sync runs to the filesystem, one JSON file
// per run, so past reconciliations can be inspected after the fact.
// The journal is diagnostic only; the pipeline never reads it back to
// make decisions.
package manifest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Manifest manages the sync journal directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a Manifest writing to dir. The directory is created on
// the first logged run.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// LogSync journals one completed run and returns the stored entry.
func (m *Manifest) LogSync(entry Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = generateID()
	entry.Timestamp = time.Now().UTC()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if err := m.writeEntry(&entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	return &entry, nil
}

// writeEntry persists an entry atomically via temp file and rename.
func (m *Manifest) writeEntry(entry *Entry) error {
	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns journal entries newest first. A non-positive limit
// returns all of them.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			// A corrupt entry never blocks listing the rest.
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves a specific entry by ID.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if err != nil {
		return nil, fmt.Errorf("entry not found: %s", id)
	}
	return entry, nil
}

// readEntryFile reads and parses one journal file.
func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Cleanup removes entries older than retentionDays.
func (m *Manifest) Cleanup(retentionDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(m.dir, f.Name()))
		}
	}
	return nil
}

// generateID creates a unique run ID like
// "sync-2024-06-15T10-30-00-abc123".
func generateID() string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")

	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		suffix = []byte(fmt.Sprintf("%06d", time.Now().Nanosecond()%1000000))
	}
	return fmt.Sprintf("sync-%s-%s", ts, hex.EncodeToString(suffix))
}
