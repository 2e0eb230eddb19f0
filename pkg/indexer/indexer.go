// Package indexer brings the vector index up to date with a document source.
//
// Candidates are filtered, then processed in fixed-size batches. Every item in
// a batch runs concurrently and the next batch starts only once the current
// one has finished. Cancellation is checked between batches, so a batch that
// has started always completes.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/vellum/pkg/filter"
	"github.com/papercomputeco/vellum/pkg/fingerprint"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/source"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/vector"
)

// DefaultBatchSize is the number of documents processed concurrently.
const DefaultBatchSize = 20

// ProgressFunc is called once per finished document. completed counts
// indexed, unchanged and skipped documents so far. Calls never overlap.
type ProgressFunc func(completed, total int, name string)

// Result tallies one indexing run.
type Result struct {
	Indexed   int           `json:"indexed"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Filtered  int           `json:"filtered"`
	Total     int           `json:"total"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Config configures a Pipeline.
type Config struct {
	Store  vector.Store
	Source source.Source

	// Filter selects candidates. A nil Filter admits everything.
	Filter *filter.Filter

	// Summarizer defaults to an Excerpt.
	Summarizer Summarizer

	// State receives the index snapshot after a run that changed something.
	// Optional.
	State storage.Driver

	BatchSize int
	Logger    *slog.Logger
}

// Pipeline indexes documents from a Source into a Store.
type Pipeline struct {
	store      vector.Store
	source     source.Source
	filter     *filter.Filter
	summarizer Summarizer
	state      storage.Driver
	batchSize  int
	logger     *slog.Logger
}

// New builds a Pipeline.
func New(c Config) (*Pipeline, error) {
	if c.Store == nil {
		return nil, errors.New("indexer: store is required")
	}
	if c.Source == nil {
		return nil, errors.New("indexer: source is required")
	}

	p := &Pipeline{
		store:      c.Store,
		source:     c.Source,
		filter:     c.Filter,
		summarizer: c.Summarizer,
		state:      c.State,
		batchSize:  c.BatchSize,
		logger:     c.Logger,
	}
	if p.filter == nil {
		p.filter = filter.New(filter.Options{})
	}
	if p.summarizer == nil {
		p.summarizer = Excerpt{}
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultBatchSize
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	return p, nil
}

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeUnchanged
	outcomeSkipped
)

// Run lists the source and indexes everything it returns.
func (p *Pipeline) Run(ctx context.Context, progress ProgressFunc) (Result, error) {
	candidates, err := p.source.List(ctx)
	if err != nil {
		return Result{}, err
	}
	return p.Index(ctx, candidates, progress)
}

// Index processes candidates. Per-document failures are logged and counted as
// skipped. The returned error is non-nil only when the snapshot could not be
// persisted.
func (p *Pipeline) Index(ctx context.Context, candidates []source.Candidate, progress ProgressFunc) (Result, error) {
	start := time.Now()

	eligible := make([]source.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if p.filter.Allow(c.Path, c.Extension) {
			eligible = append(eligible, c)
		}
	}

	res := Result{
		Total:    len(eligible),
		Filtered: len(candidates) - len(eligible),
	}
	p.logger.Info("indexing started",
		"candidates", len(candidates),
		"eligible", len(eligible),
		"batch_size", p.batchSize,
	)

	// Progress calls are serialized so completed counts arrive in order.
	var (
		mu        sync.Mutex
		completed int
	)
	record := func(c source.Candidate, o outcome) {
		mu.Lock()
		defer mu.Unlock()

		switch o {
		case outcomeIndexed:
			res.Indexed++
		case outcomeUnchanged:
			res.Unchanged++
		case outcomeSkipped:
			res.Skipped++
		}
		completed++
		if progress != nil {
			progress(completed, len(eligible), c.Name())
		}
	}

	// Items of a started batch are never cancelled.
	itemCtx := context.WithoutCancel(ctx)

	for batchStart := 0; batchStart < len(eligible); batchStart += p.batchSize {
		if ctx.Err() != nil {
			res.Cancelled = true
			p.logger.Info("indexing cancelled", "completed", completed, "total", len(eligible))
			break
		}

		batch := eligible[batchStart:min(batchStart+p.batchSize, len(eligible))]

		var g errgroup.Group
		for _, c := range batch {
			g.Go(func() error {
				record(c, p.indexOne(itemCtx, c))
				return nil
			})
		}
		_ = g.Wait()
	}

	res.Duration = time.Since(start)

	if res.Indexed > 0 {
		if err := p.persist(ctx); err != nil {
			return res, err
		}
	}

	p.logger.Info("indexing finished",
		"indexed", res.Indexed,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped,
		"cancelled", res.Cancelled,
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) indexOne(ctx context.Context, c source.Candidate) outcome {
	text, err := p.source.Read(ctx, c.Path)
	if err != nil {
		p.logger.Warn("skipping document", "path", c.Path, "error", err)
		return outcomeSkipped
	}

	hash := fingerprint.Hash(text)
	if p.store.HasUnchanged(c.Path, hash) {
		return outcomeUnchanged
	}

	summary, err := p.summarizer.Summarize(ctx, c.Path, text)
	if err != nil {
		p.logger.Warn("skipping document", "path", c.Path, "error", err)
		return outcomeSkipped
	}

	if err := p.store.Upsert(ctx, c.Path, text, summary, hash); err != nil {
		p.logger.Warn("skipping document", "path", c.Path, "error", err)
		return outcomeSkipped
	}

	p.logger.Debug("indexed document", "path", c.Path, "hash", hash)
	return outcomeIndexed
}

func (p *Pipeline) persist(ctx context.Context) error {
	if p.state == nil {
		return nil
	}
	return SaveSnapshot(context.WithoutCancel(ctx), p.state, p.store)
}

// Prune removes stored documents whose paths are no longer offered by the
// source or are now excluded by the filter. It returns the removed paths.
func (p *Pipeline) Prune(ctx context.Context) ([]string, error) {
	candidates, err := p.source.List(ctx)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if p.filter.Allow(c.Path, c.Extension) {
			keep[c.Path] = struct{}{}
		}
	}

	var removed []string
	for _, path := range p.store.Paths() {
		if _, ok := keep[path]; ok {
			continue
		}
		if p.store.Remove(path) {
			removed = append(removed, path)
		}
	}

	if len(removed) > 0 {
		p.logger.Info("pruned documents", "count", len(removed))
		if err := p.persist(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
