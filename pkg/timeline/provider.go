package timeline

import "github.com/vanderheijden86/swimlane/pkg/model"

// Provider supplies initiatives and their events. ListEvents may return
// events in any order.
type Provider interface {
	ListInitiatives() ([]model.Initiative, error)
	ListEvents(initiativeID string) ([]model.Event, error)
}

// MemoryProvider serves a fixed in-memory data set.
type MemoryProvider struct {
	Initiatives []model.Initiative
	Events      []model.Event
}

// NewMemoryProvider returns a provider over copies of initiatives and events.
func NewMemoryProvider(initiatives []model.Initiative, events []model.Event) *MemoryProvider {
	return &MemoryProvider{
		Initiatives: append([]model.Initiative(nil), initiatives...),
		Events:      append([]model.Event(nil), events...),
	}
}

// ListInitiatives implements Provider.
func (p *MemoryProvider) ListInitiatives() ([]model.Initiative, error) {
	return append([]model.Initiative(nil), p.Initiatives...), nil
}

// ListEvents implements Provider.
func (p *MemoryProvider) ListEvents(initiativeID string) ([]model.Event, error) {
	return model.EventsForInitiative(p.Events, initiativeID), nil
}

// initiativeIDs returns the ids of inits in order, without duplicates.
func initiativeIDs(inits []model.Initiative) []string {
	seen := make(map[string]bool, len(inits))
	out := make([]string, 0, len(inits))
	for _, in := range inits {
		if seen[in.ID] {
			continue
		}
		seen[in.ID] = true
		out = append(out, in.ID)
	}
	return out
}
