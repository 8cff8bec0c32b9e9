package parser

import (
	"bufio"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/logger"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/store"
)

// containerPrefixRe matches the ISO-8601 timestamp prefix container runtimes
// prepend to each line. The captured stamp becomes the fallback record
// timestamp when the JSON payload carries none.
var containerPrefixRe = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+`,
)

// maxLineBytes bounds a single physical line. Controller stacktrace fields
// are large but stay well under this.
const maxLineBytes = 4 << 20

// Parser is a single-invocation log parser. It owns one Store and one
// panic-trace buffer; it is not reusable across invocations because line
// deduplication state is scoped to one parse.
type Parser struct {
	store *store.Store
	trace traceBuffer
	log   *zap.Logger
}

// New creates a parser writing into a fresh store.
func New() *Parser {
	return &Parser{
		store: store.New(),
		log:   logger.L().Named("parser"),
	}
}

// Parse runs the full pipeline over raw log text and returns the normalized
// result. The context is checked between lines; on cancellation the partial
// result built so far is returned together with ctx.Err().
func Parse(ctx context.Context, content string) (*domain.Result, error) {
	p := New()
	err := p.Run(ctx, content)
	return p.Result(), err
}

// Run consumes the text line by line. See Parse.
func (p *Parser) Run(ctx context.Context, content string) error {
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			p.trace.Flush(p.store)
			return ctx.Err()
		default:
		}
		p.consumeLine(sc.Text())
	}
	// Input ended with a trace still open.
	p.trace.Flush(p.store)

	if err := sc.Err(); err != nil {
		p.log.Warn("log scan aborted", zap.Error(err))
	}
	return nil
}

// Result snapshots the store.
func (p *Parser) Result() *domain.Result {
	return p.store.Result()
}

// consumeLine normalizes and dispatches one physical line.
func (p *Parser) consumeLine(raw string) {
	p.store.CountTotal()

	line, fallbackTS := stripContainerPrefix(raw)
	if strings.TrimSpace(line) == "" {
		return
	}
	if p.store.MarkDuplicate(line) {
		p.store.CountDuplicate()
		return
	}

	rec, ok := decodeRecord(line)
	if !ok {
		// Free text: either part of a panic trace or just noise.
		if p.trace.Absorb(line) {
			return
		}
		p.store.CountError()
		return
	}

	// A structured record closes any open trace; the trace must attach to
	// the plan that was current BEFORE this record is processed.
	p.trace.Flush(p.store)

	if rec.TS == "" && fallbackTS != "" {
		rec.TS = FlexTime(fallbackTS)
	}
	p.process(rec)
	p.store.CountParsed()
}

// stripContainerPrefix removes a leading runtime timestamp, returning the
// bare line and the stamp (empty when absent).
func stripContainerPrefix(line string) (string, string) {
	m := containerPrefixRe.FindStringSubmatch(line)
	if m == nil {
		return line, ""
	}
	return line[len(m[0]):], m[1]
}

// decodeRecord attempts structured decoding. Only object-shaped lines are
// candidates; scalars that happen to be valid JSON stay free text.
func decodeRecord(line string) (*LogRecord, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	rec := &LogRecord{}
	if err := json.Unmarshal([]byte(trimmed), rec); err != nil {
		return nil, false
	}
	return rec, true
}
