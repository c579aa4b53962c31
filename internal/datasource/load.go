package datasource

import (
	"fmt"

	"github.com/vanderheijden86/swimlane/pkg/loader"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// Provider is a closable timeline data provider.
type Provider interface {
	ListInitiatives() ([]model.Initiative, error)
	ListEvents(initiativeID string) ([]model.Event, error)
	Close() error
}

type jsonlProvider struct {
	*loader.Store
}

func (jsonlProvider) Close() error { return nil }

// OpenSource opens a provider for a specific DataSource, dispatching on its type.
func OpenSource(source DataSource) (Provider, error) {
	switch source.Type {
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		return r, nil
	case SourceTypeJSONL:
		s, err := loader.Open(source.Path, loader.ParseOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to open JSONL source %s: %w", source.Path, err)
		}
		return jsonlProvider{s}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// Open resolves path to a source and opens it. An empty path discovers the
// best source in the default data directory.
func Open(path string) (Provider, DataSource, error) {
	var src DataSource
	if path == "" {
		sources, err := DiscoverSources(DiscoveryOptions{})
		if err != nil {
			return nil, DataSource{}, err
		}
		if src, err = SelectBestSource(sources); err != nil {
			return nil, DataSource{}, err
		}
	} else {
		var err error
		if src, err = Detect(path); err != nil {
			return nil, DataSource{}, err
		}
	}
	p, err := OpenSource(src)
	if err != nil {
		return nil, DataSource{}, err
	}
	return p, src, nil
}

// ReadAll returns every initiative and event of p, events in provider order
// grouped by initiative.
func ReadAll(p Provider) ([]model.Initiative, []model.Event, error) {
	inits, err := p.ListInitiatives()
	if err != nil {
		return nil, nil, err
	}
	var events []model.Event
	for _, in := range inits {
		evs, err := p.ListEvents(in.ID)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evs...)
	}
	return inits, events, nil
}
