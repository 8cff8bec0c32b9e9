package parser

import (
	"strings"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/store"
)

// traceBuffer accumulates free-text stack-trace lines found between
// structured records. The buffer is flushed onto the most-recently-updated
// plan before the next structured record is processed; that ordering is what
// ties an anonymous trace to a specific migration run.
type traceBuffer struct {
	lines []string
	open  bool
}

// Absorb takes a non-JSON line into the buffer. It opens on a panic or
// goroutine marker and then swallows every free-text line until flushed.
func (b *traceBuffer) Absorb(line string) bool {
	if b.open {
		b.lines = append(b.lines, line)
		return true
	}
	if isPanicMarker(line) {
		b.open = true
		b.lines = append(b.lines, line)
		return true
	}
	return false
}

// Flush attaches the buffered trace to the last-touched plan and resets.
func (b *traceBuffer) Flush(st *store.Store) {
	if !b.open {
		return
	}
	text := strings.Join(b.lines, "\n")
	b.lines = nil
	b.open = false

	plan := st.LastTouched()
	if plan == nil {
		// No migration run referenced yet; the trace has no owner.
		return
	}
	if last := plan.LastPanic(); last != nil {
		last.MergeStacktrace(text)
		return
	}
	// No structured panic preceded the trace: synthesize one from its
	// first panic line and treat the run as failed.
	plan.Panics = append(plan.Panics, &domain.PanicEntry{
		Message:    firstPanicLine(text),
		Stacktrace: text,
		Count:      1,
	})
	plan.Status = domain.PlanStatusFailed
}

func isPanicMarker(line string) bool {
	return strings.HasPrefix(line, "panic:") ||
		strings.HasPrefix(line, "fatal error:") ||
		strings.HasPrefix(line, "goroutine ") ||
		strings.HasPrefix(line, "[signal ")
}

// firstPanicLine picks the panic message out of a raw trace, falling back to
// the first line.
func firstPanicLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "panic: ") {
			return strings.TrimPrefix(line, "panic: ")
		}
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// handlePanicObserved processes a structured panic record. Identity is the
// panic message: repeats bump the count and keep the longer stacktrace.
func (p *Parser) handlePanicObserved(rec *LogRecord) {
	plan := p.resolvePanicPlan(rec)
	if plan == nil || rec.Panic == "" {
		return
	}
	entry := findPanic(plan, rec.Panic)
	if entry == nil {
		entry = &domain.PanicEntry{Message: rec.Panic}
		plan.Panics = append(plan.Panics, entry)
	}
	entry.Count++
	entry.MergeStacktrace(rec.Stacktrace)
	entry.Timestamp = rec.TS.String()
	if rec.Controller != "" {
		entry.Controller = rec.Controller
	}
	if rec.ReconcileID != "" {
		entry.ReconcileID = rec.ReconcileID
	}
	p.store.AddEvent(domain.Event{
		Timestamp:   rec.TS.String(),
		Type:        domain.EventPanicObserved,
		Plan:        plan.Key(),
		Description: rec.Panic,
	})
}

// handleReconcilerError inspects reconciler errors for an embedded
// "panic: ... [recovered]" and attaches the recovery text to a matching
// panic by bidirectional substring containment. The fuzzy match is
// documented behavior: similar wording can misattach, and that is accepted.
func (p *Parser) handleReconcilerError(rec *LogRecord) {
	errText := rec.errText()
	inner, ok := extractRecoveredPanic(errText)
	if !ok {
		p.handleError(rec)
		return
	}
	plan := p.resolvePanicPlan(rec)
	if plan == nil {
		return
	}
	for _, entry := range plan.Panics {
		if strings.Contains(entry.Message, inner) || strings.Contains(inner, entry.Message) {
			entry.RecoveryTrace = errText
			return
		}
	}
	plan.Panics = append(plan.Panics, &domain.PanicEntry{
		Message:       inner,
		RecoveryTrace: errText,
		Count:         1,
		Timestamp:     rec.TS.String(),
	})
}

// resolvePanicPlan finds the owning plan of a panic record: the structured
// plan reference, then the reconciled object, then the last-touched plan.
func (p *Parser) resolvePanicPlan(rec *LogRecord) *domain.Plan {
	if plan := p.plan(rec); plan != nil {
		return plan
	}
	if rec.Object != nil && rec.Object.Name != "" {
		return p.store.Plan(rec.Object.Namespace, rec.Object.Name)
	}
	return p.store.LastTouched()
}

func findPanic(plan *domain.Plan, message string) *domain.PanicEntry {
	for _, entry := range plan.Panics {
		if entry.Message == message {
			return entry
		}
	}
	return nil
}

// extractRecoveredPanic pulls the inner panic message out of an error text
// shaped like "... panic: <message> [recovered] ...".
func extractRecoveredPanic(errText string) (string, bool) {
	start := strings.Index(errText, "panic: ")
	if start < 0 {
		return "", false
	}
	rest := errText[start+len("panic: "):]
	end := strings.Index(rest, " [recovered]")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
