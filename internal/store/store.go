// Package store provides the in-memory entity store one parse invocation
// writes into. Every processor mutates a single Store instance; the store is
// snapshotted into a domain.Result when the invocation finishes.
//
// A Store is NOT safe for concurrent use: the engine is single-threaded per
// invocation, and parallel archive parsing uses one Store per member.
package store

import (
	"github.com/google/uuid"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

// Store is the keyed plan collection plus the global event log and running
// line counters for one parse invocation.
type Store struct {
	plans map[string]*domain.Plan
	order []string

	events []domain.Event
	stats  domain.Stats

	// seen holds exact line text already processed in this invocation.
	// Scoped to the Store, never global: parsing the same content twice
	// must not cross-detect duplicates.
	seen map[string]struct{}

	// lastTouched is the plan most recently mutated, used to attach
	// free-text panic traces that carry no structured plan reference.
	lastTouched *domain.Plan
}

// New creates an empty store.
func New() *Store {
	return &Store{
		plans: make(map[string]*domain.Plan),
		seen:  make(map[string]struct{}),
	}
}

// Plan returns the plan identified by (namespace, name), creating it lazily
// on first reference.
func (s *Store) Plan(namespace, name string) *domain.Plan {
	key := domain.PlanKey(namespace, name)
	p, ok := s.plans[key]
	if !ok {
		p = &domain.Plan{
			Name:      name,
			Namespace: namespace,
			Status:    domain.PlanStatusPending,
			VMs:       make(map[string]*domain.VM),
		}
		s.plans[key] = p
		s.order = append(s.order, key)
	}
	s.lastTouched = p
	return p
}

// Touch marks a plan as most recently updated without looking it up again.
func (s *Store) Touch(p *domain.Plan) {
	s.lastTouched = p
}

// LastTouched returns the plan most recently created or mutated, or nil.
func (s *Store) LastTouched() *domain.Plan {
	return s.lastTouched
}

// Plans returns all plans in first-reference order.
func (s *Store) Plans() []*domain.Plan {
	out := make([]*domain.Plan, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.plans[key])
	}
	return out
}

// AddEvent appends a timeline entry, assigning it an id.
func (s *Store) AddEvent(e domain.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.events = append(s.events, e)
}

// MarkDuplicate reports whether the exact line text was already seen in this
// invocation, recording it if not.
func (s *Store) MarkDuplicate(line string) bool {
	if _, ok := s.seen[line]; ok {
		return true
	}
	s.seen[line] = struct{}{}
	return false
}

// Line counters.

func (s *Store) CountTotal()     { s.stats.TotalLines++ }
func (s *Store) CountParsed()    { s.stats.ParsedLines++ }
func (s *Store) CountError()     { s.stats.ErrorLines++ }
func (s *Store) CountDuplicate() { s.stats.DuplicateLines++ }

// Stats returns a copy of the running counters.
func (s *Store) Stats() domain.Stats {
	return s.stats
}

// Result snapshots the store into a normalized result with recomputed
// summary and sorted events.
func (s *Store) Result() *domain.Result {
	r := &domain.Result{
		Plans:  s.Plans(),
		Events: append([]domain.Event{}, s.events...),
		Stats:  s.stats,
	}
	r.SortEvents()
	r.Recount()
	return r
}
