package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/filter"
	"github.com/papercomputeco/vellum/pkg/fingerprint"
	"github.com/papercomputeco/vellum/pkg/indexer"
	"github.com/papercomputeco/vellum/pkg/storage"
	storageinmem "github.com/papercomputeco/vellum/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/vellum/pkg/utils/test"
	"github.com/papercomputeco/vellum/pkg/vector/inmemory"
)

type failingSummarizer struct {
	path string
}

func (f failingSummarizer) Summarize(_ context.Context, path, text string) (string, error) {
	if path == f.path {
		return "", errors.New("summarizer down")
	}
	return text, nil
}

type progressCall struct {
	completed, total int
	name             string
}

var _ = Describe("Pipeline", func() {
	var (
		ctx    context.Context
		src    *testutils.MockSource
		store  *inmemory.Store
		driver *storageinmem.Driver
	)

	newPipeline := func(cfg indexer.Config) *indexer.Pipeline {
		cfg.Store = store
		cfg.Source = src
		if cfg.State == nil {
			cfg.State = driver
		}
		p, err := indexer.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		src = testutils.NewMockSource(map[string]string{
			"A.md":                  "cat dog",
			"B.md":                  "airplane jet",
			"Drawing.excalidraw.md": "shapes",
			"image.png":             "binary",
		})
		store = inmemory.NewStore(local.NewEmbedder())
		driver = storageinmem.NewDriver()
	})

	It("requires a store and a source", func() {
		_, err := indexer.New(indexer.Config{Source: src})
		Expect(err).To(HaveOccurred())
		_, err = indexer.New(indexer.Config{Store: store})
		Expect(err).To(HaveOccurred())
	})

	It("filters before indexing and reports per-document progress", func() {
		p := newPipeline(indexer.Config{
			Filter: filter.New(filter.Options{
				Blacklist:  []string{"*.excalidraw.md"},
				Extensions: []string{".md"},
			}),
		})

		var calls []progressCall
		res, err := p.Run(ctx, func(completed, total int, name string) {
			calls = append(calls, progressCall{completed, total, name})
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Indexed).To(Equal(2))
		Expect(res.Filtered).To(Equal(2))
		Expect(res.Total).To(Equal(2))
		Expect(store.Paths()).To(Equal([]string{"A.md", "B.md"}))

		Expect(calls).To(HaveLen(2))
		Expect(calls[0].completed).To(Equal(1))
		Expect(calls[1].completed).To(Equal(2))
		Expect(calls[1].total).To(Equal(2))
		Expect([]string{calls[0].name, calls[1].name}).To(ConsistOf("A", "B"))
	})

	It("stores the content hash and summary", func() {
		p := newPipeline(indexer.Config{Summarizer: indexer.Excerpt{Length: 3}})
		_, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		doc, err := store.Get("A.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Hash).To(Equal(fingerprint.Hash("cat dog")))
		Expect(doc.Summary).To(Equal("cat…"))
	})

	It("counts identical content as unchanged on the next run", func() {
		p := newPipeline(indexer.Config{})
		first, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Indexed).To(Equal(4))

		second, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Indexed).To(BeZero())
		Expect(second.Unchanged).To(Equal(4))
		Expect(store.Len()).To(Equal(4))
	})

	It("replaces a document whose content changed", func() {
		p := newPipeline(indexer.Config{})
		_, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		src.Set("A.md", "cat dog bird")
		res, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Indexed).To(Equal(1))
		Expect(res.Unchanged).To(Equal(3))

		doc, err := store.Get("A.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Text).To(Equal("cat dog bird"))
		Expect(store.Len()).To(Equal(4))
	})

	It("skips documents that fail to read or summarize", func() {
		src.FailOn["A.md"] = true
		p := newPipeline(indexer.Config{Summarizer: failingSummarizer{path: "B.md"}})

		res, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Skipped).To(Equal(2))
		Expect(res.Indexed).To(Equal(2))
		Expect(store.HasUnchanged("A.md", fingerprint.Hash("cat dog"))).To(BeFalse())
	})

	It("runs a batch concurrently and waits for it before the next", func() {
		files := map[string]string{}
		for i := range 6 {
			files[fmt.Sprintf("n%d.md", i)] = fmt.Sprintf("note %d", i)
		}
		src = testutils.NewMockSource(files)

		gates := map[string]chan struct{}{
			"n0.md": make(chan struct{}),
			"n1.md": make(chan struct{}),
			"n2.md": make(chan struct{}),
		}

		var (
			mu     sync.Mutex
			events []string
		)
		log := func(e string) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		}
		starts := func(paths ...string) int {
			mu.Lock()
			defer mu.Unlock()
			n := 0
			for _, e := range events {
				for _, p := range paths {
					if e == "start "+p {
						n++
					}
				}
			}
			return n
		}

		src.OnRead = func(path string) {
			log("start " + path)
			if gate, ok := gates[path]; ok {
				<-gate
			}
		}

		p := newPipeline(indexer.Config{BatchSize: 3})

		type runResult struct {
			res indexer.Result
			err error
		}
		done := make(chan runResult, 1)
		go func() {
			res, err := p.Run(ctx, func(completed, _ int, _ string) {
				log(fmt.Sprintf("done %d", completed))
			})
			done <- runResult{res, err}
		}()

		// The whole first batch is in flight at once.
		Eventually(func() int { return starts("n0.md", "n1.md", "n2.md") }).Should(Equal(3))

		close(gates["n0.md"])
		close(gates["n1.md"])
		Consistently(func() int { return starts("n3.md", "n4.md", "n5.md") }, 100*time.Millisecond).Should(BeZero())

		close(gates["n2.md"])

		var out runResult
		Eventually(done).Should(Receive(&out))
		Expect(out.err).NotTo(HaveOccurred())
		Expect(out.res.Indexed).To(Equal(6))

		mu.Lock()
		defer mu.Unlock()
		firstNext := -1
		for i, e := range events {
			if e == "start n3.md" || e == "start n4.md" || e == "start n5.md" {
				firstNext = i
				break
			}
		}
		Expect(firstNext).To(BeNumerically(">", 0))
		Expect(events[:firstNext]).To(ContainElements("done 1", "done 2", "done 3"))
		Expect(events[:firstNext]).NotTo(ContainElement("done 4"))
	})

	It("finishes the running batch when cancelled mid-batch", func() {
		files := map[string]string{}
		for i := range 5 {
			files[fmt.Sprintf("n%d.md", i)] = fmt.Sprintf("note %d", i)
		}
		src = testutils.NewMockSource(files)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		src.OnRead = func(string) { cancel() }

		p := newPipeline(indexer.Config{BatchSize: 2})
		res, err := p.Run(runCtx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Cancelled).To(BeTrue())
		Expect(res.Indexed).To(Equal(2))
		Expect(src.ReadCount()).To(Equal(2))
	})

	It("persists a snapshot only when something was indexed", func() {
		src.FailOn["A.md"] = true
		src.FailOn["B.md"] = true
		src.FailOn["Drawing.excalidraw.md"] = true
		src.FailOn["image.png"] = true

		p := newPipeline(indexer.Config{})
		_, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		sections, err := driver.Sections(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sections).To(BeEmpty())

		src.FailOn = map[string]bool{}
		_, err = p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		restored := inmemory.NewStore(local.NewEmbedder())
		found, err := indexer.LoadSnapshot(ctx, driver, restored)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(restored.Paths()).To(Equal(store.Paths()))
	})

	It("prunes documents that left the source", func() {
		p := newPipeline(indexer.Config{})
		_, err := p.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		src.Delete("B.md")
		removed, err := p.Prune(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal([]string{"B.md"}))
		Expect(store.Paths()).NotTo(ContainElement("B.md"))
	})
})

var _ = Describe("LoadSnapshot", func() {
	It("reports false when nothing was saved", func() {
		store := inmemory.NewStore(local.NewEmbedder())
		found, err := indexer.LoadSnapshot(context.Background(), storageinmem.NewDriver(), store)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("fails on a corrupt section", func() {
		driver := storageinmem.NewDriver()
		Expect(driver.Set(context.Background(), storage.SectionVectorIndex, []byte("{"))).To(Succeed())

		_, err := indexer.LoadSnapshot(context.Background(), driver, inmemory.NewStore(local.NewEmbedder()))
		Expect(err).To(HaveOccurred())
	})
})
