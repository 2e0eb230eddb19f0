package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/indexer"
	testutils "github.com/papercomputeco/vellum/pkg/utils/test"
	"github.com/papercomputeco/vellum/pkg/vector/inmemory"
	"github.com/papercomputeco/vellum/pkg/worker"
)

// newTestPool creates a worker pool over an in-memory store and source.
// Callers should "wp.Close()" to drain queued jobs.
func newTestPool(src *testutils.MockSource, queueSize uint) (*worker.Pool, *inmemory.Store) {
	store := inmemory.NewStore(local.NewEmbedder())
	pipeline, err := indexer.New(indexer.Config{Store: store, Source: src})
	Expect(err).NotTo(HaveOccurred())

	wp, err := worker.NewPool(&worker.Config{
		Pipeline:  pipeline,
		QueueSize: queueSize,
	})
	Expect(err).NotTo(HaveOccurred())
	return wp, store
}

var _ = Describe("Worker Pool", func() {
	var src *testutils.MockSource

	BeforeEach(func() {
		src = testutils.NewMockSource(map[string]string{
			"A.md": "cat dog",
			"B.md": "airplane jet",
		})
	})

	It("requires a pipeline", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("runs submitted jobs in the background", func() {
		wp, store := newTestPool(src, 0)
		defer wp.Close()

		job, err := wp.Submit()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		state, err := job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Status).To(Equal(indexer.JobDone))
		Expect(store.Len()).To(Equal(2))

		got, ok := wp.Get(job.ID())
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(job))
		Expect(wp.Jobs()).To(HaveLen(1))
	})

	It("rejects jobs when the queue is full", func() {
		gate := make(chan struct{})
		src.OnRead = func(string) { <-gate }
		wp, _ := newTestPool(src, 1)

		// The first job occupies the worker, the second fills the queue.
		first, err := wp.Submit()
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() indexer.JobStatus { return first.State().Status }).
			Should(Equal(indexer.JobRunning))

		_, err = wp.Submit()
		Expect(err).NotTo(HaveOccurred())

		_, err = wp.Submit()
		Expect(err).To(MatchError(worker.ErrQueueFull))

		close(gate)
		wp.Close()
	})

	It("cancels queued jobs on close", func() {
		gate := make(chan struct{})
		src.OnRead = func(string) { <-gate }
		wp, _ := newTestPool(src, 4)

		first, err := wp.Submit()
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() indexer.JobStatus { return first.State().Status }).
			Should(Equal(indexer.JobRunning))
		second, err := wp.Submit()
		Expect(err).NotTo(HaveOccurred())

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(gate)
		}()
		wp.Close()

		// The running batch completes; the queued job never starts.
		Expect(first.State().Result.Indexed).To(Equal(2))
		Expect(second.State().Status).To(Equal(indexer.JobCancelled))

		_, err = wp.Submit()
		Expect(err).To(MatchError(worker.ErrClosed))
	})
})
