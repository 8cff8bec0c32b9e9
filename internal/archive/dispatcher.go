package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/merge"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/parser"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/logger"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/worker"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/yamlconv"
)

// ToolParser parses one sibling-tool log file. The tool's grammar lives
// outside this package; a nil parser drops the bucket.
type ToolParser func(path, content string) *domain.Result

// Options tunes a dispatch run.
type Options struct {
	// SniffLimit bounds classification reads; zero means DefaultSniffLimit.
	SniffLimit int
	// Pool, when set, parses log members concurrently. Reduction order is
	// fixed regardless: members merge in path order.
	Pool *worker.Pool
	// ToolParser handles the tool-log bucket.
	ToolParser ToolParser
}

// Parse classifies and parses an extracted archive into one normalized
// result. No failure escapes this boundary: a panic or parse error anywhere
// degrades to an empty contribution, never aborts the rest of the archive.
func Parse(ctx context.Context, files []File, opts Options) (result *domain.Result) {
	log := logger.L().Named("archive")
	defer func() {
		if r := recover(); r != nil {
			log.Error("archive dispatch panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = domain.EmptyResult()
		}
	}()

	buckets := Classify(files, opts.SniffLimit)
	log.Info("archive classified",
		zap.Int("logs", len(buckets.Logs)),
		zap.Int("yamls", len(buckets.YAMLs)),
		zap.Int("tool", len(buckets.Tool)),
		zap.Int("unclassified", buckets.Unclassified),
	)

	// Log members are parsed individually and merged pairwise instead of
	// concatenated, to bound peak memory.
	logResults := parseLogs(ctx, buckets.Logs, opts.Pool)

	result = domain.EmptyResult()
	for _, r := range logResults {
		result = merge.Results(result, r)
	}

	if len(buckets.YAMLs) > 0 {
		result = merge.Results(result, parseYAMLs(buckets.YAMLs, log))
	}

	if opts.ToolParser != nil {
		// Tool logs keep per-file identity.
		for _, f := range sortedByPath(buckets.Tool) {
			result = merge.Results(result, safeToolParse(opts.ToolParser, f, log))
		}
	}

	result.Stats.UnclassifiedFiles += buckets.Unclassified
	result.Recount()
	return result
}

// parseLogs parses each log member into its own result, concurrently when a
// pool is available. Results come back indexed so the later reduction runs
// in path order no matter which member finished first.
func parseLogs(ctx context.Context, files []File, pool *worker.Pool) []*domain.Result {
	files = sortedByPath(files)
	results := make([]*domain.Result, len(files))

	if pool == nil {
		for i, f := range files {
			results[i] = parseOneLog(ctx, f)
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range files {
		i := i
		f := files[i]
		wg.Add(1)
		err := pool.Submit(ctx, func(taskCtx context.Context) {
			defer wg.Done()
			results[i] = parseOneLog(taskCtx, f)
		})
		if err != nil {
			// Pool rejected the task (closed or context cancelled); fall
			// back to inline parsing so the member is not lost.
			results[i] = parseOneLog(ctx, f)
			wg.Done()
		}
	}
	wg.Wait()
	return results
}

// parseOneLog is an independently parseable, side-effect-free unit: it owns
// its store and absorbs its own failures.
func parseOneLog(ctx context.Context, f File) (result *domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("log member parse panicked",
				zap.String("path", f.Path),
				zap.Any("panic", r),
			)
			result = domain.EmptyResult()
		}
	}()
	result, err := parser.Parse(ctx, f.Content)
	if err != nil {
		logger.Warn("log member parse cancelled",
			zap.String("path", f.Path),
			zap.Error(err),
		)
	}
	return result
}

// parseYAMLs concatenates YAML members with document separators and parses
// them together.
func parseYAMLs(files []File, log *zap.Logger) *domain.Result {
	files = sortedByPath(files)
	docs := make([]string, 0, len(files))
	for _, f := range files {
		docs = append(docs, f.Content)
	}
	combined := strings.Join(docs, "\n---\n")
	r, err := yamlconv.Parse(combined)
	if err != nil {
		log.Warn("yaml bucket parse failed", zap.Error(err))
		return domain.EmptyResult()
	}
	return r
}

func safeToolParse(tp ToolParser, f File, log *zap.Logger) (result *domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool parser panicked",
				zap.String("path", f.Path),
				zap.Any("panic", r),
			)
			result = domain.EmptyResult()
		}
	}()
	if result = tp(f.Path, f.Content); result == nil {
		result = domain.EmptyResult()
	}
	return result
}

func sortedByPath(files []File) []File {
	out := append([]File{}, files...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
