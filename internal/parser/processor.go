package parser

import (
	"strings"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

// handlerFunc mutates the store for one classified record.
type handlerFunc func(p *Parser, rec *LogRecord)

// handlers is the record-kind dispatch table. kindGeneric is handled by the
// default path in process.
var handlers = map[recordKind]handlerFunc{
	kindMigrationStarted:    (*Parser).handleStarted,
	kindMigrationSucceeded:  (*Parser).handleSucceeded,
	kindMigrationFailed:     (*Parser).handleFailed,
	kindVMPhase:             (*Parser).handleVMPhase,
	kindItineraryTransition: (*Parser).handleItinerary,
	kindConditionAdded:      (*Parser).handleConditionAdded,
	kindConditionDeleted:    (*Parser).handleConditionDeleted,
	kindPrecopyCheckpoint:   (*Parser).handlePrecopy,
	kindResourceCreated:     (*Parser).handleResourceCreated,
	kindPanicObserved:       (*Parser).handlePanicObserved,
	kindReconcilerError:     (*Parser).handleReconcilerError,
	kindErrorRecord:         (*Parser).handleError,
}

// process dispatches one decoded record.
func (p *Parser) process(rec *LogRecord) {
	if h, ok := handlers[classify(rec)]; ok {
		h(p, rec)
	} else {
		p.handleGeneric(rec)
	}
}

// plan resolves the record's plan, creating it lazily, and stamps
// first/last-seen. Returns nil when the record carries no plan reference.
func (p *Parser) plan(rec *LogRecord) *domain.Plan {
	if rec.Plan == nil || rec.Plan.Name == "" {
		return nil
	}
	plan := p.store.Plan(rec.Plan.Namespace, rec.Plan.Name)
	ts := rec.TS.String()
	if plan.FirstSeen == "" || (ts != "" && ts < plan.FirstSeen) {
		plan.FirstSeen = ts
	}
	if ts > plan.LastSeen {
		plan.LastSeen = ts
	}
	return plan
}

// vm resolves the record's VM on the given plan, keeping the name fresh.
func (p *Parser) vm(plan *domain.Plan, rec *LogRecord) *domain.VM {
	ref := rec.vmAny()
	if ref == nil || ref.ID == "" {
		return nil
	}
	vm := plan.VM(ref.ID)
	if ref.Name != "" {
		vm.Name = ref.Name
	}
	return vm
}

// rawEntry builds the normalized log entry for a record.
func rawEntry(rec *LogRecord) domain.RawLogEntry {
	return domain.RawLogEntry{
		Timestamp: rec.TS.String(),
		Level:     rec.Level,
		Message:   rec.Msg,
	}
}

func (p *Parser) handleStarted(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	if rec.Migration != "" && rec.Migration != plan.MigrationID {
		// New migration run: per-run state resets, the event log does not.
		plan.ResetRun(rec.Migration)
	} else {
		plan.Status = domain.PlanStatusRunning
	}
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventMigrationStarted,
		Plan:        plan.Key(),
		Description: "migration started",
	})
}

func (p *Parser) handleSucceeded(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	p.completePlan(plan, rec.TS.String())
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventMigrationDone,
		Plan:        plan.Key(),
		Description: "migration succeeded",
	})
}

// completePlan force-closes every VM not already terminal with a synthetic
// Completed interval stamped at the completion time.
func (p *Parser) completePlan(plan *domain.Plan, ts string) {
	for _, vm := range plan.VMs {
		if vm.CurrentPhase == domain.PhaseCompleted {
			continue
		}
		if open := vm.OpenPhase(); open != nil {
			open.EndedAt = ts
		}
		vm.PhaseHistory = append(vm.PhaseHistory, &domain.PhaseInfo{
			Phase:     domain.PhaseCompleted,
			StartedAt: ts,
			EndedAt:   ts,
		})
		vm.CurrentPhase = domain.PhaseCompleted
		if vm.Completed == "" {
			vm.Completed = ts
		}
	}
	plan.Status = domain.PlanStatusSucceeded
}

func (p *Parser) handleFailed(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	plan.Status = domain.PlanStatusFailed
	if rec.errText() != "" {
		addError(plan, rec)
	}
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventMigrationFailed,
		Plan:        plan.Key(),
		Description: "migration failed",
	})
}

func (p *Parser) handleVMPhase(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	vm := p.vm(plan, rec)
	if vm == nil {
		return
	}
	p.transition(plan, vm, rec.vmPhase(), rec.TS.String())
	p.applyWarm(vm, rec)
	vm.AppendLog(rawEntry(rec))
}

func (p *Parser) handleItinerary(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	phase := rec.vmPhase()
	if vm := p.vm(plan, rec); vm != nil && phase != "" {
		p.transition(plan, vm, phase, rec.TS.String())
		vm.AppendLog(rawEntry(rec))
	}
	// An itinerary transition into the terminal phase completes the plan.
	if phase == domain.PhaseCompleted {
		p.completePlan(plan, rec.TS.String())
	}
}

// transition closes the VM's open phase and opens the new one, assigning
// precopy-loop iteration numbers.
func (p *Parser) transition(plan *domain.Plan, vm *domain.VM, phase, ts string) {
	if phase == "" || phase == vm.CurrentPhase {
		return
	}
	if open := vm.OpenPhase(); open != nil {
		open.EndedAt = ts
	}
	info := &domain.PhaseInfo{Phase: phase, StartedAt: ts}
	if isLoopPhase(phase) {
		info.Iteration = loopIteration(vm, phase)
	}
	vm.PhaseHistory = append(vm.PhaseHistory, info)
	vm.CurrentPhase = phase
	if vm.Started == "" {
		vm.Started = ts
	}
	if phase == domain.PhaseCompleted {
		info.EndedAt = ts
		vm.Completed = ts
	}
	p.store.AddEvent(domain.Event{
		Timestamp:   ts,
		Type:        domain.EventPhaseChanged,
		Plan:        plan.Key(),
		VM:          vm.ID,
		Description: phase,
	})
}

// precopyLoopPhases is the cyclic warm-migration phase set; loopStartPhase
// opens a new cycle, every other member stays in the current one.
var precopyLoopPhases = map[string]bool{
	"CreateSnapshot":                 true,
	"WaitForSnapshot":                true,
	"StoreSnapshotDeltas":            true,
	"AddCheckpoint":                  true,
	"CopyDisks":                      true,
	"RemovePreviousSnapshot":         true,
	"WaitForPreviousSnapshotRemoval": true,
}

const loopStartPhase = "CreateSnapshot"

func isLoopPhase(phase string) bool { return precopyLoopPhases[phase] }

// loopIteration computes the iteration for a loop phase: the start phase
// opens cycle max+1, other loop phases join the current cycle, defaulting
// to 1 when no cycle has been seen yet. Iterations are therefore
// monotonically non-decreasing within a VM.
func loopIteration(vm *domain.VM, phase string) int {
	maxIter := vm.MaxIteration()
	if phase == loopStartPhase {
		return maxIter + 1
	}
	if maxIter == 0 {
		return 1
	}
	return maxIter
}

func (p *Parser) handleConditionAdded(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil || rec.Condition == nil {
		return
	}
	cond := domain.Condition{
		Type:      rec.Condition.Type,
		Status:    rec.Condition.Status,
		Category:  rec.Condition.Category,
		Reason:    rec.Condition.Reason,
		Message:   rec.Condition.Message,
		Durable:   rec.Condition.Durable,
		Timestamp: rec.TS.String(),
	}
	replaced := false
	for i, c := range plan.Conditions {
		if c.Type == cond.Type {
			plan.Conditions[i] = cond
			replaced = true
			break
		}
	}
	if !replaced {
		plan.Conditions = append(plan.Conditions, cond)
	}
	p.applyConditionStatus(plan, cond, rec.TS.String())
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventConditionAdded,
		Plan:        plan.Key(),
		Description: cond.Type,
	})
}

// applyConditionStatus folds well-known condition types into plan status.
func (p *Parser) applyConditionStatus(plan *domain.Plan, cond domain.Condition, ts string) {
	switch cond.Type {
	case "Ready":
		if plan.Status == domain.PlanStatusPending {
			plan.Status = domain.PlanStatusReady
		}
	case "Executing":
		plan.Status = domain.PlanStatusRunning
	case "Succeeded":
		p.completePlan(plan, ts)
	case "Failed":
		plan.Status = domain.PlanStatusFailed
	case "Archived":
		plan.Archived = true
	}
}

func (p *Parser) handleConditionDeleted(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil || rec.Condition == nil {
		return
	}
	for i, c := range plan.Conditions {
		if c.Type == rec.Condition.Type {
			plan.Conditions = append(plan.Conditions[:i], plan.Conditions[i+1:]...)
			break
		}
	}
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventConditionDeleted,
		Plan:        plan.Key(),
		Description: rec.Condition.Type,
	})
}

func (p *Parser) handlePrecopy(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	vm := p.vm(plan, rec)
	if vm == nil {
		return
	}
	p.applyWarm(vm, rec)
	vm.AppendLog(rawEntry(rec))
}

// applyWarm rebuilds the VM's warm summary from a checkpoint record.
func (p *Parser) applyWarm(vm *domain.VM, rec *LogRecord) {
	ref := rec.vmAny()
	if ref == nil || ref.Warm == nil || len(ref.Warm.Precopies) == 0 {
		return
	}
	precopies := make([]domain.PrecopyInfo, 0, len(ref.Warm.Precopies))
	for _, pc := range ref.Warm.Precopies {
		info := domain.PrecopyInfo{
			Snapshot: pc.Snapshot,
			Start:    pc.Start,
			End:      pc.End,
		}
		for _, d := range pc.Deltas {
			info.Disks = append(info.Disks, d.Disk)
		}
		precopies = append(precopies, info)
	}
	vm.Warm = domain.BuildWarmInfo(precopies)
	if vm.MigrationType == domain.MigrationTypeUnknown {
		vm.MigrationType = domain.MigrationTypeWarm
	}
}

func (p *Parser) handleResourceCreated(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	vm := p.vm(plan, rec)
	if vm == nil {
		return
	}
	resType, ok := createdMessages[rec.Msg]
	if !ok {
		if rec.DV != "" {
			resType = "DataVolume"
		} else {
			// Generic "Created X" shape keeps the reported kind.
			resType = strings.TrimSuffix(strings.TrimPrefix(rec.Msg, "Created "), ".")
		}
	}
	name := rec.DV
	if name == "" && rec.Object != nil {
		name = rec.Object.Name
	}
	if name == "" {
		name = resType
	}
	vm.AddCreatedResource(resType, name)
	vm.AppendLog(rawEntry(rec))
}

func (p *Parser) handleError(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		plan = p.store.LastTouched()
	}
	if plan == nil {
		return
	}
	addError(plan, rec)
	if strings.Contains(rec.Msg, "[FAILED]") || strings.Contains(rec.errText(), "migration failed") {
		plan.Status = domain.PlanStatusFailed
	}
	if vm := p.vm(plan, rec); vm != nil {
		vm.AppendLog(rawEntry(rec))
	}
}

// addError aggregates an error record onto the plan. Records with a primary
// error field group by (error, message); records with only the secondary
// err field group by error text alone. Repeats bump the count and refresh
// the timestamp instead of being retained individually.
func addError(plan *domain.Plan, rec *LogRecord) {
	errText := rec.errText()
	if errText == "" {
		return
	}
	message := rec.Msg
	if rec.Error == "" {
		// Secondary warning field: identity ignores the message.
		message = ""
	}
	for _, e := range plan.Errors {
		if e.Error == errText && e.Message == message {
			e.Count++
			e.LastSeen = rec.TS.String()
			return
		}
	}
	plan.Errors = append(plan.Errors, &domain.ErrorEntry{
		Message:   message,
		Error:     errText,
		Count:     1,
		FirstSeen: rec.TS.String(),
		LastSeen:  rec.TS.String(),
	})
}

// handleGeneric keeps unmatched records attached to their plan/VM context so
// phase-grouped logs stay complete.
func (p *Parser) handleGeneric(rec *LogRecord) {
	plan := p.plan(rec)
	if plan == nil {
		return
	}
	if vm := p.vm(plan, rec); vm != nil {
		vm.AppendLog(rawEntry(rec))
	}
}
