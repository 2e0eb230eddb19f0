package thread

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/utils"
)

// Registry holds every thread and persists them to the threads section after
// each change. All state transitions go through its methods.
type Registry struct {
	mu       sync.Mutex
	threads  map[string]*Thread
	activeID string
	created  int

	driver storage.Driver
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty registry backed by driver. Call Load before
// use.
func NewRegistry(driver storage.Driver, opts ...Option) *Registry {
	r := &Registry{
		threads: make(map[string]*Thread),
		driver:  driver,
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the registry contents with the persisted threads. If there
// are none, a default thread is created. The most recently updated thread
// becomes active.
func (r *Registry) Load(ctx context.Context) error {
	var saved []Thread
	if _, err := storage.GetJSON(ctx, r.driver, storage.SectionThreads, &saved); err != nil {
		return fmt.Errorf("loading threads: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.threads = make(map[string]*Thread, len(saved))
	r.activeID = ""
	r.created = len(saved)
	for i := range saved {
		t := saved[i]
		if t.ID == "" {
			continue
		}
		t.Streaming = false
		r.threads[t.ID] = &t
	}

	if len(r.threads) == 0 {
		t := r.newLocked()
		r.activeID = t.ID
		r.logger.Debug("created default thread", "thread_id", t.ID)
		return r.saveLocked(ctx)
	}

	r.activeID = r.sortedLocked()[0].ID
	r.logger.Debug("threads loaded", "count", len(r.threads), "active", r.activeID)
	return nil
}

// Create adds an empty thread and makes it active.
func (r *Registry) Create(ctx context.Context) (Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.newLocked()
	r.activeID = t.ID
	if err := r.saveLocked(ctx); err != nil {
		return Thread{}, err
	}
	return t.clone(), nil
}

// Get returns a copy of the thread.
func (r *Registry) Get(id string) (Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[id]
	if !ok {
		return Thread{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.clone(), nil
}

// List returns copies of every thread, most recently updated first.
func (r *Registry) List() []Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedLocked()
	out := make([]Thread, len(sorted))
	for i, t := range sorted {
		out[i] = t.clone()
	}
	return out
}

// Active returns the active thread.
func (r *Registry) Active() (Thread, error) {
	r.mu.Lock()
	id := r.activeID
	r.mu.Unlock()
	return r.Get(id)
}

// SetActive makes id the active thread.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.activeID = id
	return nil
}

// Resolve finds a thread by exact ID, unique ID prefix, or exact name.
func (r *Registry) Resolve(ref string) (Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.threads[ref]; ok {
		return t.clone(), nil
	}

	var match *Thread
	for _, t := range r.sortedLocked() {
		if t.Name == ref || (ref != "" && strings.HasPrefix(t.ID, ref)) {
			if match != nil {
				return Thread{}, fmt.Errorf("thread reference %q is ambiguous", ref)
			}
			match = t
		}
	}
	if match == nil {
		return Thread{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return match.clone(), nil
}

// Rename sets the thread name. It also stops the thread from being named
// after its first question.
func (r *Registry) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("thread name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.Name = name
	t.Named = true
	t.UpdatedAt = r.now()
	return r.saveLocked(ctx)
}

// Clear removes every message from the thread.
func (r *Registry) Clear(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.idleLocked(id)
	if err != nil {
		return err
	}
	t.Messages = nil
	t.UpdatedAt = r.now()
	return r.saveLocked(ctx)
}

// Delete removes the thread. If it was active, the most recently updated
// remaining thread becomes active, or a new default thread is created.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.idleLocked(id); err != nil {
		return err
	}
	delete(r.threads, id)

	if r.activeID == id {
		if len(r.threads) == 0 {
			r.activeID = r.newLocked().ID
		} else {
			r.activeID = r.sortedLocked()[0].ID
		}
	}
	return r.saveLocked(ctx)
}

// BeginStreaming marks the thread busy and returns its history. It fails
// with ErrThreadBusy if the thread is already streaming. Every successful
// call must be paired with EndStreaming.
func (r *Registry) BeginStreaming(id string) ([]llm.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.idleLocked(id)
	if err != nil {
		return nil, err
	}
	t.Streaming = true
	return append([]llm.Message(nil), t.Messages...), nil
}

// EndStreaming clears the busy flag. Unknown threads are ignored.
func (r *Registry) EndStreaming(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.threads[id]; ok {
		t.Streaming = false
	}
}

// AppendExchange records a question and its answer. The first question of a
// thread that still has its default name also names the thread.
func (r *Registry) AppendExchange(ctx context.Context, id, question, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.threads[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if !t.Named && strings.HasPrefix(t.Name, DefaultNamePrefix) {
		t.Name = utils.Truncate(strings.TrimSpace(question), AutoNameLength)
		t.Named = true
	}

	t.Messages = append(t.Messages,
		llm.NewTextMessage(llm.RoleUser, question),
		llm.NewTextMessage(llm.RoleAssistant, answer),
	)
	t.UpdatedAt = r.now()
	return r.saveLocked(ctx)
}

// Save persists the registry.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(ctx)
}

func (r *Registry) idleLocked(id string) (*Thread, error) {
	t, ok := r.threads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Streaming {
		return nil, ErrThreadBusy
	}
	return t, nil
}

func (r *Registry) newLocked() *Thread {
	r.created++
	now := r.now()
	t := &Thread{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("%s %d", DefaultNamePrefix, r.created),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.threads[t.ID] = t
	return t
}

// sortedLocked orders threads by last update, newest first, then by ID.
func (r *Registry) sortedLocked() []*Thread {
	out := make([]*Thread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Thread) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *Registry) saveLocked(ctx context.Context) error {
	sorted := r.sortedLocked()
	out := make([]Thread, len(sorted))
	for i, t := range sorted {
		out[i] = *t
	}
	if err := storage.SetJSON(ctx, r.driver, storage.SectionThreads, out); err != nil {
		return fmt.Errorf("saving threads: %w", err)
	}
	return nil
}
