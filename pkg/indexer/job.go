package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// JobState is a point-in-time view of a Job.
type JobState struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Current   string    `json:"current,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Job tracks one indexing run. It lives only as long as the process.
type Job struct {
	mu    sync.Mutex
	state JobState

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJob returns a queued job whose context derives from parent.
func NewJob(parent context.Context) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		state: JobState{
			ID:        uuid.NewString(),
			Status:    JobQueued,
			CreatedAt: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.state.ID
}

// State returns a copy of the job's current state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.state
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}

// Cancel asks the job to stop at the next batch boundary. Cancelling a
// finished job does nothing.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (JobState, error) {
	select {
	case <-j.done:
		return j.State(), nil
	case <-ctx.Done():
		return j.State(), ctx.Err()
	}
}

// Run executes the pipeline under the job's context and records the outcome.
// A job runs at most once.
func (j *Job) Run(p *Pipeline) {
	defer close(j.done)
	defer j.cancel()

	j.mu.Lock()
	if j.ctx.Err() != nil {
		j.state.Status = JobCancelled
		j.mu.Unlock()
		return
	}
	j.state.Status = JobRunning
	j.mu.Unlock()

	res, err := p.Run(j.ctx, j.progress)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Result = &res
	j.state.Current = ""
	switch {
	case errors.Is(err, context.Canceled):
		j.state.Status = JobCancelled
	case err != nil:
		j.state.Status = JobFailed
		j.state.Error = err.Error()
	case res.Cancelled:
		j.state.Status = JobCancelled
	default:
		j.state.Status = JobDone
	}
}

func (j *Job) progress(completed, total int, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Completed = completed
	j.state.Total = total
	j.state.Current = name
}
