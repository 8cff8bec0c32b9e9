// Package parser turns raw controller-log text into the normalized entity
// model. It owns line normalization, structured-record dispatch, panic-trace
// recovery and warm-migration checkpoint tracking.
package parser

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexTime is a record timestamp kept as an ISO-8601 string. Controller logs
// carry ISO strings; zap production encoders emit epoch seconds. Both decode
// into the same comparable string form.
type FlexTime string

// UnmarshalJSON accepts either a JSON string or an epoch-seconds number.
func (t *FlexTime) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = FlexTime(s)
		return nil
	}
	sec, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	ns := int64(sec * float64(time.Second))
	*t = FlexTime(time.Unix(0, ns).UTC().Format(time.RFC3339Nano))
	return nil
}

// String returns the timestamp text.
func (t FlexTime) String() string { return string(t) }

// PlanRef identifies the plan a record belongs to.
type PlanRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// VMRef identifies a VM within a record, optionally carrying its phase and
// the full warm-precopy attempt list.
type VMRef struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Phase string   `json:"phase"`
	Warm  *WarmRef `json:"warm"`
}

// WarmRef is the warm-migration block of a checkpoint record. The precopy
// list is cumulative: every checkpoint carries all attempts so far.
type WarmRef struct {
	Precopies []PrecopyRec `json:"precopies"`
}

// PrecopyRec is one precopy attempt as logged by the controller.
type PrecopyRec struct {
	Snapshot string       `json:"snapshot"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Deltas   []PrecopyDel `json:"deltas"`
}

// PrecopyDel names one disk delta transferred by a precopy attempt.
type PrecopyDel struct {
	Disk    string `json:"disk"`
	DeltaID string `json:"deltaId"`
}

// ConditionRef is the condition payload of add/delete records.
type ConditionRef struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Durable  bool   `json:"durable"`
}

// ObjectRef names the reconciled object of controller-runtime records.
type ObjectRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// LogRecord is one decoded JSON log line.
type LogRecord struct {
	Level       string        `json:"level"`
	TS          FlexTime      `json:"ts"`
	Logger      string        `json:"logger"`
	Msg         string        `json:"msg"`
	Plan        *PlanRef      `json:"plan"`
	Migration   string        `json:"migration"`
	VM          *VMRef        `json:"vm"`
	VMRef       *VMRef        `json:"vmRef"`
	Phase       string        `json:"phase"`
	Condition   *ConditionRef `json:"condition"`
	Error       string        `json:"error"`
	Err         string        `json:"err"`
	Stacktrace  string        `json:"stacktrace"`
	DV          string        `json:"dv"`
	Controller  string        `json:"controller"`
	Object      *ObjectRef    `json:"object"`
	ReconcileID string        `json:"reconcileID"`
	Panic       string        `json:"panic"`
}

// vmAny returns whichever VM reference the record carries.
func (r *LogRecord) vmAny() *VMRef {
	if r.VM != nil {
		return r.VM
	}
	return r.VMRef
}

// vmPhase returns the phase carried by the record, preferring the VM block.
func (r *LogRecord) vmPhase() string {
	if ref := r.vmAny(); ref != nil && ref.Phase != "" {
		return ref.Phase
	}
	return r.Phase
}

// errText returns the primary error text of the record.
func (r *LogRecord) errText() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Err
}

// Controller message markers.
const (
	msgMigrationStarted   = "Migration [STARTED]"
	msgMigrationRun       = "Migration [RUN]"
	msgMigrationSucceeded = "Migration [SUCCEEDED]"
	msgMigrationFailed    = "Migration [FAILED]"
	msgItineraryPrefix    = "Itinerary transition"
	msgConditionAdded     = "Condition added"
	msgConditionDeleted   = "Condition deleted"
	msgPanicObserved      = "Observed a panic"
	msgReconcilerError    = "Reconciler error"
)

// createdMessages maps exact resource-creation messages to resource types.
var createdMessages = map[string]string{
	"Secret created.":         "Secret",
	"ConfigMap created.":      "ConfigMap",
	"Pod created.":            "Pod",
	"VirtualMachine created.": "VirtualMachine",
	"PVC created.":            "PersistentVolumeClaim",
	"DataVolume created.":     "DataVolume",
}

// recordKind is the explicit tagged classification of a decoded record.
// Dispatching through a kind table instead of string-matching at every call
// site keeps the handler set enumerable and testable.
type recordKind int

const (
	kindGeneric recordKind = iota
	kindMigrationStarted
	kindMigrationSucceeded
	kindMigrationFailed
	kindVMPhase
	kindItineraryTransition
	kindConditionAdded
	kindConditionDeleted
	kindPrecopyCheckpoint
	kindResourceCreated
	kindPanicObserved
	kindReconcilerError
	kindErrorRecord
)

// classify maps a decoded record onto its kind. Order encodes precedence:
// panic and reconciler-error markers outrank status markers, which outrank
// payload-shape fallbacks.
func classify(rec *LogRecord) recordKind {
	switch rec.Msg {
	case msgPanicObserved:
		return kindPanicObserved
	case msgReconcilerError:
		return kindReconcilerError
	case msgMigrationStarted:
		return kindMigrationStarted
	case msgMigrationSucceeded:
		return kindMigrationSucceeded
	case msgMigrationFailed:
		return kindMigrationFailed
	case msgConditionAdded:
		return kindConditionAdded
	case msgConditionDeleted:
		return kindConditionDeleted
	}
	if strings.HasPrefix(rec.Msg, msgItineraryPrefix) {
		return kindItineraryTransition
	}
	if _, ok := createdMessages[rec.Msg]; ok {
		return kindResourceCreated
	}
	if strings.HasPrefix(rec.Msg, "Created ") || rec.DV != "" {
		return kindResourceCreated
	}
	// A phase-bearing record outranks the checkpoint shape: the phase
	// handler applies warm data too, so classifying by checkpoint first
	// would drop the transition.
	if rec.Msg == msgMigrationRun || rec.vmPhase() != "" {
		if ref := rec.vmAny(); ref != nil {
			return kindVMPhase
		}
	}
	if ref := rec.vmAny(); ref != nil && ref.Warm != nil && len(ref.Warm.Precopies) > 0 {
		return kindPrecopyCheckpoint
	}
	if rec.Level == "error" && rec.errText() != "" {
		return kindErrorRecord
	}
	return kindGeneric
}
