package domain

// Source marks which ingestion path produced an entity. The merger uses it
// to pick the base side for overlapping plans.
type Source string

const (
	SourceLog  Source = "log"
	SourceYAML Source = "yaml"
)

// MigrationType distinguishes cold from warm (precopy-based) migrations.
type MigrationType string

const (
	MigrationTypeUnknown MigrationType = ""
	MigrationTypeCold    MigrationType = "Cold"
	MigrationTypeWarm    MigrationType = "Warm"
)

// PhaseCompleted is the terminal phase of a VM's itinerary.
const PhaseCompleted = "Completed"

// VM represents one virtual machine being moved by a plan. Identity is the
// provider-side VM id, scoped to the owning plan.
type VM struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	CurrentPhase  string        `json:"currentPhase,omitempty"`
	MigrationType MigrationType `json:"migrationType,omitempty"`
	Source        Source        `json:"source"`

	// PhaseHistory is ordered by observation; at most one entry has no
	// EndedAt (the open phase).
	PhaseHistory []*PhaseInfo `json:"phaseHistory,omitempty"`

	// PhaseLogs groups raw log entries by the phase that was current when
	// they were observed.
	PhaseLogs map[string][]RawLogEntry `json:"phaseLogs,omitempty"`

	Warm *WarmInfo `json:"warm,omitempty"`

	CreatedResources []CreatedResource `json:"createdResources,omitempty"`

	Started   string `json:"started,omitempty"`
	Completed string `json:"completed,omitempty"`
}

// PhaseInfo is one interval a VM spent in a phase.
type PhaseInfo struct {
	Phase     string `json:"phase"`
	StartedAt string `json:"startedAt,omitempty"`
	EndedAt   string `json:"endedAt,omitempty"`
	// Iteration numbers recurrences of precopy-loop phases, 1-based.
	// Zero means the phase is not part of the loop.
	Iteration int `json:"iteration,omitempty"`
}

// Open reports whether the phase interval has not been closed yet.
func (p *PhaseInfo) Open() bool {
	return p.EndedAt == ""
}

// OpenPhase returns the single open PhaseInfo, or nil.
func (v *VM) OpenPhase() *PhaseInfo {
	for i := len(v.PhaseHistory) - 1; i >= 0; i-- {
		if v.PhaseHistory[i].Open() {
			return v.PhaseHistory[i]
		}
	}
	return nil
}

// MaxIteration returns the highest precopy iteration recorded in the VM's
// phase history, or 0 when no loop phase was observed.
func (v *VM) MaxIteration() int {
	maxIter := 0
	for _, p := range v.PhaseHistory {
		if p.Iteration > maxIter {
			maxIter = p.Iteration
		}
	}
	return maxIter
}

// AppendLog attaches a raw entry to the VM's current phase bucket.
func (v *VM) AppendLog(entry RawLogEntry) {
	phase := v.CurrentPhase
	if phase == "" {
		phase = "Unstarted"
	}
	if v.PhaseLogs == nil {
		v.PhaseLogs = make(map[string][]RawLogEntry)
	}
	v.PhaseLogs[phase] = append(v.PhaseLogs[phase], entry)
}

// AddCreatedResource records a resource created on the VM's behalf,
// deduplicated by (type, name).
func (v *VM) AddCreatedResource(resType, name string) {
	for _, r := range v.CreatedResources {
		if r.Type == resType && r.Name == name {
			return
		}
	}
	v.CreatedResources = append(v.CreatedResources, CreatedResource{Type: resType, Name: name})
}

// CreatedResource is a Kubernetes resource the controller created for a VM.
type CreatedResource struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// WarmInfo summarizes the precopy cycles of a warm migration. It is rebuilt
// from scratch on every checkpoint record (last write wins), never merged
// incrementally: checkpoint records carry the entire current attempt list.
type WarmInfo struct {
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
	Precopies []PrecopyInfo `json:"precopies,omitempty"`
	// NextPrecopyAt comes from the declarative status only.
	NextPrecopyAt string `json:"nextPrecopyAt,omitempty"`
}

// PrecopyInfo is a single precopy attempt.
type PrecopyInfo struct {
	Snapshot string   `json:"snapshot,omitempty"`
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
	Disks    []string `json:"disks,omitempty"`
}

// Completed reports whether the attempt finished.
func (p PrecopyInfo) Completed() bool {
	return p.End != ""
}
