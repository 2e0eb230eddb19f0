package chat_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/chat"
	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/storage/inmemory"
	"github.com/papercomputeco/vellum/pkg/thread"
	testutils "github.com/papercomputeco/vellum/pkg/utils/test"
	vectorinmem "github.com/papercomputeco/vellum/pkg/vector/inmemory"
)

type recordingSink struct {
	chunks []string
	done   string
	err    error
}

func (r *recordingSink) Chunk(text string) { r.chunks = append(r.chunks, text) }
func (r *recordingSink) Done(text string)  { r.done = text }
func (r *recordingSink) Fail(err error)    { r.err = err }

var _ = Describe("Orchestrator", func() {
	var (
		ctx      context.Context
		store    *vectorinmem.Store
		registry *thread.Registry
		prov     *testutils.MockProvider
		orch     *chat.Orchestrator
		threadID string
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = vectorinmem.NewStore(local.NewEmbedder())
		Expect(store.Upsert(ctx, "notes/A.md", "cat dog", "", "h1")).To(Succeed())
		Expect(store.Upsert(ctx, "B.md", "airplane jet", "", "h2")).To(Succeed())

		registry = thread.NewRegistry(inmemory.NewDriver())
		Expect(registry.Load(ctx)).To(Succeed())
		active, err := registry.Active()
		Expect(err).NotTo(HaveOccurred())
		threadID = active.ID

		prov = testutils.NewMockProvider()
		prov.Chunks = []string{"Cats ", "and dogs."}

		orch, err = chat.New(chat.Config{
			Registry: registry,
			Store:    store,
			Provider: prov,
			Model:    "test-model",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires its collaborators", func() {
		_, err := chat.New(chat.Config{Registry: registry})
		Expect(err).To(HaveOccurred())
	})

	It("streams fragments and appends a sources section", func() {
		sink := &recordingSink{}
		answer, err := orch.SendMessage(ctx, threadID, "dog", sink)
		Expect(err).NotTo(HaveOccurred())

		Expect(sink.chunks).To(Equal([]string{"Cats ", "and dogs."}))
		Expect(answer).To(Equal("Cats and dogs.\n\n**Sources:**\n- [[A]]\n- [[B]]"))
		Expect(sink.done).To(Equal(answer))
		Expect(sink.err).NotTo(HaveOccurred())
	})

	It("ranks the matching note first in the prompt", func() {
		_, err := orch.SendMessage(ctx, threadID, "dog", nil)
		Expect(err).NotTo(HaveOccurred())

		req := prov.LastRequest()
		Expect(req.Model).To(Equal("test-model"))
		Expect(req.System).To(ContainSubstring("cat dog"))
		Expect(req.System).To(MatchRegexp(`(?s)## A.*## B`))
		Expect(req.Messages).To(Equal([]llm.Message{
			{Role: llm.RoleUser, Content: "dog"},
		}))
	})

	It("records two messages per send and replays history", func() {
		_, err := orch.SendMessage(ctx, threadID, "first", nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = orch.SendMessage(ctx, threadID, "second", nil)
		Expect(err).NotTo(HaveOccurred())

		t, err := registry.Get(threadID)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Messages).To(HaveLen(4))
		Expect(t.Messages[0]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "first"}))
		Expect(t.Messages[1].Role).To(Equal(llm.RoleAssistant))
		Expect(t.Messages[2]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "second"}))
		Expect(t.Messages[3].Role).To(Equal(llm.RoleAssistant))

		req := prov.LastRequest()
		Expect(req.Messages).To(HaveLen(3))
		Expect(req.Messages[0].Content).To(Equal("first"))
		Expect(req.Messages[2].Content).To(Equal("second"))
		Expect(t.Name).To(Equal("first"))
	})

	It("omits the sources section when nothing is indexed", func() {
		store.Clear()
		answer, err := orch.SendMessage(ctx, threadID, "dog", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("Cats and dogs."))
	})

	It("rejects a second send on a busy thread", func() {
		prov.Gate = make(chan struct{})

		done := make(chan error, 1)
		go func() {
			_, err := orch.SendMessage(ctx, threadID, "slow", nil)
			done <- err
		}()

		Eventually(func() bool {
			t, _ := registry.Get(threadID)
			return t.Streaming
		}).Should(BeTrue())

		sink := &recordingSink{}
		_, err := orch.SendMessage(ctx, threadID, "again", sink)
		Expect(err).To(MatchError(thread.ErrThreadBusy))
		Expect(sink.err).To(MatchError(thread.ErrThreadBusy))

		close(prov.Gate)
		Eventually(done).Should(Receive(BeNil()))

		t, _ := registry.Get(threadID)
		Expect(t.Streaming).To(BeFalse())
		Expect(t.Messages).To(HaveLen(2))
	})

	It("lets independent threads stream at the same time", func() {
		prov.Gate = make(chan struct{})
		other, err := registry.Create(ctx)
		Expect(err).NotTo(HaveOccurred())

		results := make(chan error, 2)
		for _, id := range []string{threadID, other.ID} {
			go func() {
				_, err := orch.SendMessage(ctx, id, "q", nil)
				results <- err
			}()
		}

		Eventually(func() int {
			n := 0
			for _, t := range registry.List() {
				if t.Streaming {
					n++
				}
			}
			return n
		}).Should(Equal(2))

		close(prov.Gate)
		Eventually(results).Should(Receive(BeNil()))
		Eventually(results).Should(Receive(BeNil()))
	})

	It("surfaces backend errors and leaves the thread idle and unchanged", func() {
		prov.Err = &llm.BackendError{Provider: "mock", StatusCode: http.StatusUnauthorized, Body: `{"error":"bad key"}`}

		sink := &recordingSink{}
		_, err := orch.SendMessage(ctx, threadID, "dog", sink)

		var backendErr *llm.BackendError
		Expect(errors.As(err, &backendErr)).To(BeTrue())
		Expect(backendErr.Body).To(ContainSubstring("bad key"))
		Expect(sink.err).To(MatchError(err))
		Expect(sink.done).To(BeEmpty())

		t, _ := registry.Get(threadID)
		Expect(t.Streaming).To(BeFalse())
		Expect(t.Messages).To(BeEmpty())
	})

	It("rejects blank questions", func() {
		_, err := orch.SendMessage(ctx, threadID, "   ", nil)
		Expect(err).To(HaveOccurred())
	})

	It("reports unknown threads", func() {
		_, err := orch.SendMessage(ctx, "missing", "q", nil)
		Expect(err).To(MatchError(thread.ErrNotFound))
	})
})
