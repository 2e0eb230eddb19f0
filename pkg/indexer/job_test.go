package indexer_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/indexer"
	testutils "github.com/papercomputeco/vellum/pkg/utils/test"
	"github.com/papercomputeco/vellum/pkg/vector/inmemory"
)

var _ = Describe("Job", func() {
	var pipeline *indexer.Pipeline

	BeforeEach(func() {
		src := testutils.NewMockSource(map[string]string{"A.md": "cat", "B.md": "dog"})
		var err error
		pipeline, err = indexer.New(indexer.Config{
			Store:  inmemory.NewStore(local.NewEmbedder()),
			Source: src,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts queued with a unique ID", func() {
		a := indexer.NewJob(context.Background())
		b := indexer.NewJob(context.Background())
		Expect(a.ID()).NotTo(Equal(b.ID()))
		Expect(a.State().Status).To(Equal(indexer.JobQueued))
	})

	It("records progress and the result", func() {
		job := indexer.NewJob(context.Background())
		go job.Run(pipeline)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		state, err := job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(state.Status).To(Equal(indexer.JobDone))
		Expect(state.Completed).To(Equal(2))
		Expect(state.Total).To(Equal(2))
		Expect(state.Current).To(BeEmpty())
		Expect(state.Result.Indexed).To(Equal(2))
	})

	It("does not run after being cancelled", func() {
		job := indexer.NewJob(context.Background())
		job.Cancel()
		job.Run(pipeline)

		Expect(job.Done()).To(BeClosed())
		Expect(job.State().Status).To(Equal(indexer.JobCancelled))
		Expect(job.State().Result).To(BeNil())
	})

	It("stops waiting when the caller gives up", func() {
		job := indexer.NewJob(context.Background())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := job.Wait(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})
