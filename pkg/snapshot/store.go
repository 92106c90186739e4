// Package snapshot persists fetch results and compares them over time.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devicelab-dev/droidscan/pkg/dialog"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/source"
)

// File names inside a snapshot directory.
const (
	MetaFile    = "meta.json"
	WidgetsFile = "widgets.json"
	DumpFile    = "window_dump.xml"
)

// Meta describes one snapshot.
type Meta struct {
	ID          string                  `json:"id"`
	Source      string                  `json:"source"`
	CreatedAt   time.Time               `json:"createdAt"`
	Display     source.Display          `json:"display"`
	Validation  dialog.ValidationResult `json:"validation"`
	WidgetCount int                     `json:"widgetCount"`
}

// Snapshot is a loaded snapshot.
type Snapshot struct {
	Meta
	Widgets []*hierarchy.Widget
}

// Store keeps snapshots as ULID-named directories under a root.
type Store struct {
	dir string
}

// NewStore creates the root directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes widgets and, when non-empty, the raw dump. The ID and creation
// time of meta are assigned here.
func (s *Store) Save(meta Meta, widgets []*hierarchy.Widget, dump []byte) (Meta, error) {
	id := ulid.Make()
	meta.ID = id.String()
	meta.CreatedAt = ulid.Time(id.Time()).UTC()
	meta.WidgetCount = len(widgets)

	dir := filepath.Join(s.dir, meta.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, fmt.Errorf("create snapshot: %w", err)
	}

	if widgets == nil {
		widgets = []*hierarchy.Widget{}
	}
	if err := writeJSON(filepath.Join(dir, WidgetsFile), widgets); err != nil {
		return Meta{}, err
	}
	if len(dump) > 0 {
		if err := os.WriteFile(filepath.Join(dir, DumpFile), dump, 0o644); err != nil {
			return Meta{}, fmt.Errorf("write dump: %w", err)
		}
	}
	// meta.json last: a directory without it is an interrupted save.
	if err := writeJSON(filepath.Join(dir, MetaFile), meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Load reads a snapshot by ID.
func (s *Store) Load(id string) (*Snapshot, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	dir := filepath.Join(s.dir, id)

	var snap Snapshot
	if err := readJSON(filepath.Join(dir, MetaFile), &snap.Meta); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, WidgetsFile), &snap.Widgets); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DumpPath returns where the raw dump of a snapshot is stored.
func (s *Store) DumpPath(id string) string {
	return filepath.Join(s.dir, id, DumpFile)
}

// List returns the IDs of complete snapshots, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := ulid.ParseStrict(e.Name()); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), MetaFile)); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	slices.Sort(ids)
	return ids, nil
}

// ErrNoSnapshots is returned by Latest on an empty store.
var ErrNoSnapshots = errors.New("no snapshots")

// Latest returns the ID of the newest snapshot.
func (s *Store) Latest() (string, error) {
	ids, err := s.List()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNoSnapshots
	}
	return ids[len(ids)-1], nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
