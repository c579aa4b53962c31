package loader

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// Store serves a JSONL data directory as a timeline provider. Each
// ListInitiatives call rereads the directory; ListEvents answers from the
// events read by that call.
type Store struct {
	dir  string
	opts ParseOptions

	mu     sync.Mutex
	events []model.Event
}

// Open returns a Store for dir after checking that its initiatives file can
// be read.
func Open(dir string, opts ParseOptions) (*Store, error) {
	s := &Store{dir: dir, opts: opts}
	if _, err := s.ListInitiatives(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// InitiativesPath returns the path of the initiatives file.
func (s *Store) InitiativesPath() string { return filepath.Join(s.dir, InitiativesFile) }

// EventsPath returns the path of the events file.
func (s *Store) EventsPath() string { return filepath.Join(s.dir, EventsFile) }

// ListInitiatives reads both files and returns the initiatives.
func (s *Store) ListInitiatives() ([]model.Initiative, error) {
	defer metrics.Timer(metrics.DataLoad)()

	inits, err := LoadInitiativesFromFile(s.InitiativesPath(), s.opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.dir, err)
	}
	events, err := LoadEventsFromFile(s.EventsPath(), s.opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	debug.Log("loader: %s: %d initiatives, %d events", s.dir, len(inits), len(events))
	return inits, nil
}

// ListEvents returns the events of initiativeID in file order.
func (s *Store) ListEvents(initiativeID string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.EventsForInitiative(s.events, initiativeID), nil
}

// All returns every loaded event.
func (s *Store) All() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}
