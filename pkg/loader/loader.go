// Package loader reads initiatives and events from a JSONL data directory.
//
// A data directory holds two files, one JSON object per line:
//
//	initiatives.jsonl
//	events.jsonl
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// DirEnvVar names the environment variable overriding the data directory.
const DirEnvVar = "SWIMLANE_DIR"

// File names inside a data directory.
const (
	InitiativesFile = "initiatives.jsonl"
	EventsFile      = "events.jsonl"
)

// DefaultDirName is used under the working directory when nothing else is set.
const DefaultDirName = ".swimlane"

// GetDataDir returns the data directory, respecting SWIMLANE_DIR.
// If SWIMLANE_DIR is set, it is used directly. Otherwise path is used when
// non-empty, falling back to .swimlane in the current directory.
func GetDataDir(path string) (string, error) {
	if envDir := os.Getenv(DirEnvVar); envDir != "" {
		return envDir, nil
	}
	if path != "" {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, DefaultDirName), nil
}

// DefaultMaxBufferSize is the default buffer size for the reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures JSONL parsing.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv("SWIMLANE_QUIET") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// ParseInitiatives parses JSONL initiatives. Malformed or invalid lines are
// skipped with a warning.
func ParseInitiatives(r io.Reader, opts ParseOptions) ([]model.Initiative, error) {
	return parseLines(r, opts, "initiative", func(in *model.Initiative) error {
		in.Status = model.NormalizeStatus(string(in.Status))
		return in.Validate()
	})
}

// ParseEvents parses JSONL events. Malformed or invalid lines are skipped
// with a warning.
func ParseEvents(r io.Reader, opts ParseOptions) ([]model.Event, error) {
	return parseLines(r, opts, "event", func(e *model.Event) error {
		e.Type = model.EventType(strings.ToLower(strings.TrimSpace(string(e.Type))))
		e.Criticality = model.Criticality(strings.ToLower(strings.TrimSpace(string(e.Criticality))))
		return e.Validate()
	})
}

func parseLines[T any](r io.Reader, opts ParseOptions, kind string, check func(*T) error) ([]T, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)
	warn := opts.warn()

	var out []T
	lineNum := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line bytes.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading %s stream at line %d: %w", kind, lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if err := check(&item); err != nil {
			warn(fmt.Sprintf("skipping invalid %s on line %d: %v", kind, lineNum, err))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

// LoadInitiativesFromFile reads initiatives from a JSONL file.
func LoadInitiativesFromFile(path string, opts ParseOptions) ([]model.Initiative, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open initiatives file: %w", err)
	}
	defer f.Close()
	return ParseInitiatives(f, opts)
}

// LoadEventsFromFile reads events from a JSONL file. A missing file yields
// no events.
func LoadEventsFromFile(path string, opts ParseOptions) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()
	return ParseEvents(f, opts)
}

// WriteJSONL writes items one JSON object per line.
func WriteJSONL[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return fmt.Errorf("encoding line %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// WriteDir writes initiatives and events into dir, creating it if needed.
func WriteDir(dir string, initiatives []model.Initiative, events []model.Event) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, InitiativesFile), initiatives); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, EventsFile), events)
}

func writeFile[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := WriteJSONL(f, items); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
