// Package worker runs indexing jobs in the background.
//
// The pool decouples indexing from the callers that request it (the HTTP
// API and the file watcher), so a request returns as soon as its job is
// queued and can be polled or cancelled by ID.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/vellum/pkg/indexer"
	"github.com/papercomputeco/vellum/pkg/logger"
)

var (
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 16
	defaultJobHistory        = 64
)

var (
	// ErrQueueFull is returned by Submit when the job could not be queued.
	ErrQueueFull = errors.New("index queue full")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Pipeline runs each job.
	Pipeline *indexer.Pipeline

	// NumWorkers is the number of background workers in the pool. More than
	// one worker lets index runs overlap, which only makes sense for sources
	// that do not share documents.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 16).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes index jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan *indexer.Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// base parents every job context; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	jobs   map[string]*indexer.Job
	order  []string
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Pipeline == nil {
		return nil, errors.New("worker: pipeline is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	base, cancel := context.WithCancel(context.Background())
	wp := &Pool{
		config: c,
		queue:  make(chan *indexer.Job, c.QueueSize),
		logger: log,
		base:   base,
		cancel: cancel,
		jobs:   make(map[string]*indexer.Job),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Submit queues a new index job. It returns ErrQueueFull, without creating a
// job, when the queue has no room.
func (p *Pool) Submit() (*indexer.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	job := indexer.NewJob(p.base)
	select {
	case p.queue <- job:
	default:
		job.Cancel()
		p.logger.Error("job not queued, queue full, job dropped")
		return nil, ErrQueueFull
	}

	p.remember(job)
	p.logger.Debug("job queued", "job_id", job.ID())
	return job, nil
}

// Get returns the job with the given ID, if it is still remembered.
func (p *Pool) Get(id string) (*indexer.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	return job, ok
}

// Jobs returns the state of every remembered job, oldest first.
func (p *Pool) Jobs() []indexer.JobState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]indexer.JobState, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.jobs[id].State())
	}
	return out
}

// Close stops accepting jobs, cancels queued and running ones at their next
// batch boundary, and waits for the workers to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// remember records job and forgets the oldest finished jobs beyond the
// history limit. p.mu must be held.
func (p *Pool) remember(job *indexer.Job) {
	p.jobs[job.ID()] = job
	p.order = append(p.order, job.ID())

	for len(p.order) > defaultJobHistory {
		oldest := p.jobs[p.order[0]]
		select {
		case <-oldest.Done():
		default:
			return
		}
		delete(p.jobs, p.order[0])
		p.order = p.order[1:]
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.logger.Info("index job started", "job_id", job.ID())
		job.Run(p.config.Pipeline)

		state := job.State()
		p.logger.Info("index job finished",
			"job_id", state.ID,
			"status", state.Status,
			"error", state.Error,
		)
	}

	p.logger.Debug("index worker stopped", "worker_id", id)
}
