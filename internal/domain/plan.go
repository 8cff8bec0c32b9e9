// Package domain provides the normalized entity model produced by every
// ingestion path (controller logs, YAML resources, archives).
//
// All parsers emit these types, NOT their source formats (Anti-Corruption
// Layer): downstream consumers never branch on where a Plan came from.
package domain

// PlanStatus represents the lifecycle state of a migration plan.
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "Pending"
	PlanStatusReady     PlanStatus = "Ready"
	PlanStatusRunning   PlanStatus = "Running"
	PlanStatusSucceeded PlanStatus = "Succeeded"
	PlanStatusFailed    PlanStatus = "Failed"
)

// Inconclusive reports whether the status may still be upgraded by merge
// enrichment. Running is deliberately NOT inconclusive: a plan observed
// running in the logs keeps that status even when a YAML snapshot claims
// completion for a different point in time.
func (s PlanStatus) Inconclusive() bool {
	return s == PlanStatusPending || s == PlanStatusReady
}

// Plan represents one migration plan, uniquely identified by
// (Namespace, Name). Plans are created lazily on first reference and are
// never deleted; a new migration run resets their per-run state.
type Plan struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`

	Status   PlanStatus `json:"status"`
	Archived bool       `json:"archived"`

	// MigrationID is the identifier of the most recent migration run.
	// A STARTED record carrying a different id resets per-run state.
	MigrationID string `json:"migrationId,omitempty"`

	Spec *PlanSpecInfo `json:"spec,omitempty"`

	Conditions []Condition    `json:"conditions,omitempty"`
	Errors     []*ErrorEntry  `json:"errors,omitempty"`
	Panics     []*PanicEntry  `json:"panics,omitempty"`
	VMs        map[string]*VM `json:"vms"`

	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
}

// PlanSpecInfo carries the declarative metadata a Plan resource provides.
// Only ever populated by the YAML path; the merger copies it onto
// log-derived plans when absent.
type PlanSpecInfo struct {
	Description     string `json:"description,omitempty"`
	TargetNamespace string `json:"targetNamespace,omitempty"`
	Warm            bool   `json:"warm,omitempty"`
	NetworkMap      string `json:"networkMap,omitempty"`
	StorageMap      string `json:"storageMap,omitempty"`
}

// Condition mirrors the controller's status conditions.
type Condition struct {
	Type     string `json:"type"`
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	// Timestamp is the last transition or observation time, ISO-8601.
	Timestamp string `json:"timestamp,omitempty"`
	Durable   bool   `json:"durable,omitempty"`
}

// Key returns the canonical namespace/name identity of the plan.
func (p *Plan) Key() string {
	return PlanKey(p.Namespace, p.Name)
}

// PlanKey builds the canonical plan identity string.
func PlanKey(namespace, name string) string {
	return namespace + "/" + name
}

// VM returns the VM with the given id, creating it lazily. Records may
// reference VMs that were never formally introduced; lazy creation is the
// documented answer to that inconsistency.
func (p *Plan) VM(id string) *VM {
	if p.VMs == nil {
		p.VMs = make(map[string]*VM)
	}
	vm, ok := p.VMs[id]
	if !ok {
		vm = &VM{ID: id, Source: SourceLog}
		p.VMs[id] = vm
	}
	return vm
}

// HasCondition reports whether a condition of the given type is present.
func (p *Plan) HasCondition(condType string) bool {
	for _, c := range p.Conditions {
		if c.Type == condType {
			return true
		}
	}
	return false
}

// ResetRun clears per-run state when a new migration id is observed.
// The global event log and first-seen stamp survive a reset.
func (p *Plan) ResetRun(migrationID string) {
	p.MigrationID = migrationID
	p.VMs = make(map[string]*VM)
	p.Conditions = nil
	p.Errors = nil
	p.Panics = nil
	p.Status = PlanStatusRunning
}

// LastPanic returns the most recently recorded panic, or nil.
func (p *Plan) LastPanic() *PanicEntry {
	if len(p.Panics) == 0 {
		return nil
	}
	return p.Panics[len(p.Panics)-1]
}
