package domain

import "sort"

// EventType classifies timeline events.
type EventType string

const (
	EventPlanCreated      EventType = "PLAN_CREATED"
	EventMigrationStarted EventType = "MIGRATION_STARTED"
	EventMigrationDone    EventType = "MIGRATION_SUCCEEDED"
	EventMigrationFailed  EventType = "MIGRATION_FAILED"
	EventPhaseChanged     EventType = "PHASE_CHANGED"
	EventConditionAdded   EventType = "CONDITION_ADDED"
	EventConditionDeleted EventType = "CONDITION_DELETED"
	EventPanicObserved    EventType = "PANIC_OBSERVED"
)

// Event is one append-only timeline entry, global to a parse invocation.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Timestamp   string    `json:"timestamp,omitempty"`
	Type        EventType `json:"type"`
	Plan        string    `json:"plan,omitempty"`
	VM          string    `json:"vm,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Stats carries aggregate line accounting for one parse invocation.
// duplicateLines + parsedLines + errorLines never exceeds totalLines:
// blank and panic-trace lines are counted in none of the three buckets.
type Stats struct {
	TotalLines        int `json:"totalLines"`
	ParsedLines       int `json:"parsedLines"`
	ErrorLines        int `json:"errorLines"`
	DuplicateLines    int `json:"duplicateLines"`
	PlansFound        int `json:"plansFound"`
	VMsFound          int `json:"vmsFound"`
	UnclassifiedFiles int `json:"unclassifiedFiles,omitempty"`
}

// Add sums another stats block into this one.
func (s *Stats) Add(o Stats) {
	s.TotalLines += o.TotalLines
	s.ParsedLines += o.ParsedLines
	s.ErrorLines += o.ErrorLines
	s.DuplicateLines += o.DuplicateLines
	s.UnclassifiedFiles += o.UnclassifiedFiles
}

// Summary is the per-status plan count breakdown. Always recomputed from the
// plan list, never summed, so merge cannot double count.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Ready     int `json:"ready"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Archived  int `json:"archived"`
}

// MapResource is a NetworkMap or StorageMap reference, deduplicated by
// (namespace, name) with first occurrence winning.
type MapResource struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Result is the single normalized output handed to the presentation layer.
// Its shape is the sole contract with all UI code.
type Result struct {
	Plans       []*Plan       `json:"plans"`
	Events      []Event       `json:"events"`
	Stats       Stats         `json:"stats"`
	Summary     Summary       `json:"summary"`
	NetworkMaps []MapResource `json:"networkMaps,omitempty"`
	StorageMaps []MapResource `json:"storageMaps,omitempty"`
}

// EmptyResult returns a well-formed result with no content. Dispatcher
// failures degrade to this rather than propagating.
func EmptyResult() *Result {
	return &Result{Plans: []*Plan{}, Events: []Event{}}
}

// Plan looks up a plan by identity, or nil.
func (r *Result) Plan(namespace, name string) *Plan {
	for _, p := range r.Plans {
		if p.Namespace == namespace && p.Name == name {
			return p
		}
	}
	return nil
}

// Recount refreshes the derived summary and entity counters from the
// current plan list.
func (r *Result) Recount() {
	r.Summary = Summary{Total: len(r.Plans)}
	vms := 0
	for _, p := range r.Plans {
		vms += len(p.VMs)
		switch p.Status {
		case PlanStatusPending:
			r.Summary.Pending++
		case PlanStatusReady:
			r.Summary.Ready++
		case PlanStatusRunning:
			r.Summary.Running++
		case PlanStatusSucceeded:
			r.Summary.Succeeded++
		case PlanStatusFailed:
			r.Summary.Failed++
		}
		if p.Archived {
			r.Summary.Archived++
		}
	}
	r.Stats.PlansFound = len(r.Plans)
	r.Stats.VMsFound = vms
}

// SortEvents orders the timeline by timestamp string. ISO-8601 stamps sort
// chronologically under plain string comparison; entries without a stamp
// sink to the front in stable order.
func (r *Result) SortEvents() {
	sort.SliceStable(r.Events, func(i, j int) bool {
		return r.Events[i].Timestamp < r.Events[j].Timestamp
	})
}
