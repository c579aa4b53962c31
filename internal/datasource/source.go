// Package datasource detects and opens swimlane data sources: a JSONL data
// directory or a SQLite database. When both are present the freshest valid
// one wins, with SQLite preferred on a tie.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is a directory holding initiatives.jsonl and events.jsonl
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// DefaultDBName is the database file looked for inside a data directory.
const DefaultDBName = "timeline.db"

// ErrNoSources is returned when discovery finds nothing usable.
var ErrNoSources = errors.New("no valid data sources found")

// DataSource represents a potential source of timeline data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the database file or the JSONL directory
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// InitiativeCount is set during validation
	InitiativeCount int `json:"initiative_count"`
	// Size is the file size in bytes (for JSONL, of events.jsonl)
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, initiatives=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.InitiativeCount, status)
}

// WatchPaths returns the files whose changes should trigger a reload.
func (s DataSource) WatchPaths() []string {
	if s.Type == SourceTypeSQLite {
		return []string{s.Path}
	}
	return []string{
		filepath.Join(s.Path, loader.InitiativesFile),
		filepath.Join(s.Path, loader.EventsFile),
	}
}

// Detect classifies path as a SQLite file or a JSONL directory without
// validating its content.
func Detect(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return DataSource{
			Type:     SourceTypeSQLite,
			Path:     path,
			Priority: PrioritySQLite,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		}, nil
	}

	src := DataSource{Type: SourceTypeJSONL, Path: path, Priority: PriorityJSONL}
	for _, name := range []string{loader.InitiativesFile, loader.EventsFile} {
		fi, err := os.Stat(filepath.Join(path, name))
		if err != nil {
			continue
		}
		if fi.ModTime().After(src.ModTime) {
			src.ModTime = fi.ModTime()
		}
		if name == loader.EventsFile {
			src.Size = fi.Size()
		}
	}
	return src, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the data directory (SWIMLANE_DIR or .swimlane when empty)
	Dir string
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives progress messages. Optional.
	Logger func(msg string)
}

// DiscoverSources finds the JSONL files and database in a data directory,
// validates them and returns them best first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	logf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		debug.Log("datasource: %s", msg)
		if opts.Logger != nil {
			opts.Logger(msg)
		}
	}

	dir, err := loader.GetDataDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	logf("discovering sources in %s", dir)

	var sources []DataSource
	if _, err := os.Stat(filepath.Join(dir, loader.InitiativesFile)); err == nil {
		if src, err := Detect(dir); err == nil {
			sources = append(sources, src)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(name == DefaultDBName || strings.HasSuffix(name, ".sqlite") || strings.HasSuffix(name, ".sqlite3")) {
			continue
		}
		if src, err := Detect(filepath.Join(dir, name)); err == nil {
			sources = append(sources, src)
		}
	}

	var kept []DataSource
	for i := range sources {
		if err := ValidateSource(&sources[i]); err != nil {
			logf("validation failed for %s: %v", sources[i].Path, err)
			if !opts.IncludeInvalid {
				continue
			}
		}
		kept = append(kept, sources[i])
	}

	sortSources(kept)
	logf("discovered %d sources", len(kept))
	return kept, nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// ValidateSource opens src, counts its initiatives and records the outcome in
// src.Valid and src.ValidationError.
func ValidateSource(src *DataSource) error {
	p, err := OpenSource(*src)
	if err == nil {
		defer p.Close()
		inits, lerr := p.ListInitiatives()
		err = lerr
		src.InitiativeCount = len(inits)
	}
	src.Valid = err == nil
	src.ValidationError = ""
	if err != nil {
		src.ValidationError = err.Error()
	}
	return err
}

// SelectBestSource returns the freshest valid source, preferring higher
// priority on equal modification times.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(valid)
	return valid[0], nil
}
