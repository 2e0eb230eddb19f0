package thread_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/storage/inmemory"
	"github.com/papercomputeco/vellum/pkg/thread"
)

var _ = Describe("Registry", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		reg    *thread.Registry
		clock  time.Time
	)

	tick := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		reg = thread.NewRegistry(driver, thread.WithClock(tick))
		Expect(reg.Load(ctx)).To(Succeed())
	})

	reload := func() *thread.Registry {
		r := thread.NewRegistry(driver, thread.WithClock(tick))
		Expect(r.Load(ctx)).To(Succeed())
		return r
	}

	Describe("Load", func() {
		It("creates exactly one default thread when nothing is stored", func() {
			threads := reg.List()
			Expect(threads).To(HaveLen(1))
			Expect(threads[0].Name).To(HavePrefix(thread.DefaultNamePrefix))

			active, err := reg.Active()
			Expect(err).NotTo(HaveOccurred())
			Expect(active.ID).To(Equal(threads[0].ID))

			Expect(reload().List()).To(HaveLen(1))
		})

		It("activates the most recently updated thread", func() {
			first, err := reg.Active()
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.AppendExchange(ctx, first.ID, "q", "a")).To(Succeed())

			active, err := reload().Active()
			Expect(err).NotTo(HaveOccurred())
			Expect(active.ID).To(Equal(first.ID))
		})

		It("clears streaming flags left in storage", func() {
			active, _ := reg.Active()
			_, err := reg.BeginStreaming(active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Save(ctx)).To(Succeed())

			var raw []thread.Thread
			_, err = storage.GetJSON(ctx, driver, storage.SectionThreads, &raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw[0].Streaming).To(BeTrue())

			restored, err := reload().Get(active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Streaming).To(BeFalse())
		})
	})

	Describe("AppendExchange", func() {
		It("appends a user and an assistant message per exchange, in order", func() {
			active, _ := reg.Active()
			Expect(reg.AppendExchange(ctx, active.ID, "q1", "a1")).To(Succeed())
			Expect(reg.AppendExchange(ctx, active.ID, "q2", "a2")).To(Succeed())

			got, err := reg.Get(active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(Equal([]llm.Message{
				{Role: llm.RoleUser, Content: "q1"},
				{Role: llm.RoleAssistant, Content: "a1"},
				{Role: llm.RoleUser, Content: "q2"},
				{Role: llm.RoleAssistant, Content: "a2"},
			}))
		})

		It("names the thread after the first question only", func() {
			active, _ := reg.Active()
			long := strings.Repeat("x", 60)
			Expect(reg.AppendExchange(ctx, active.ID, long, "a")).To(Succeed())
			Expect(reg.AppendExchange(ctx, active.ID, "second question", "a")).To(Succeed())

			got, _ := reg.Get(active.ID)
			Expect(got.Name).To(Equal(strings.Repeat("x", 50) + "…"))
		})

		It("keeps a short first question verbatim", func() {
			active, _ := reg.Active()
			Expect(reg.AppendExchange(ctx, active.ID, "What is a zettel?", "a")).To(Succeed())
			got, _ := reg.Get(active.ID)
			Expect(got.Name).To(Equal("What is a zettel?"))
		})

		It("does not rename an explicitly named thread", func() {
			active, _ := reg.Active()
			Expect(reg.Rename(ctx, active.ID, "Research")).To(Succeed())
			Expect(reg.AppendExchange(ctx, active.ID, "q", "a")).To(Succeed())
			got, _ := reg.Get(active.ID)
			Expect(got.Name).To(Equal("Research"))
		})

		It("persists history", func() {
			active, _ := reg.Active()
			Expect(reg.AppendExchange(ctx, active.ID, "q", "a")).To(Succeed())
			got, err := reload().Get(active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(HaveLen(2))
		})
	})

	Describe("streaming", func() {
		It("allows one request per thread", func() {
			active, _ := reg.Active()
			_, err := reg.BeginStreaming(active.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = reg.BeginStreaming(active.ID)
			Expect(err).To(MatchError(thread.ErrThreadBusy))

			reg.EndStreaming(active.ID)
			_, err = reg.BeginStreaming(active.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not block other threads", func() {
			a, _ := reg.Active()
			b, err := reg.Create(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = reg.BeginStreaming(a.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.BeginStreaming(b.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("protects a busy thread from clear and delete", func() {
			active, _ := reg.Active()
			_, err := reg.BeginStreaming(active.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(reg.Clear(ctx, active.ID)).To(MatchError(thread.ErrThreadBusy))
			Expect(reg.Delete(ctx, active.ID)).To(MatchError(thread.ErrThreadBusy))
		})

		It("returns a copy of the history", func() {
			active, _ := reg.Active()
			Expect(reg.AppendExchange(ctx, active.ID, "q", "a")).To(Succeed())

			history, err := reg.BeginStreaming(active.ID)
			Expect(err).NotTo(HaveOccurred())
			history[0].Content = "mutated"

			got, _ := reg.Get(active.ID)
			Expect(got.Messages[0].Content).To(Equal("q"))
		})
	})

	Describe("Delete", func() {
		It("switches to the most recent remaining thread", func() {
			first, _ := reg.Active()
			second, err := reg.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Delete(ctx, second.ID)).To(Succeed())

			active, err := reg.Active()
			Expect(err).NotTo(HaveOccurred())
			Expect(active.ID).To(Equal(first.ID))
		})

		It("creates a default thread when the last one is deleted", func() {
			only, _ := reg.Active()
			Expect(reg.Delete(ctx, only.ID)).To(Succeed())

			threads := reg.List()
			Expect(threads).To(HaveLen(1))
			Expect(threads[0].ID).NotTo(Equal(only.ID))

			active, err := reg.Active()
			Expect(err).NotTo(HaveOccurred())
			Expect(active.ID).To(Equal(threads[0].ID))
		})

		It("reports unknown threads", func() {
			Expect(reg.Delete(ctx, "nope")).To(MatchError(thread.ErrNotFound))
		})
	})

	Describe("Clear", func() {
		It("empties the history and keeps the thread", func() {
			active, _ := reg.Active()
			Expect(reg.AppendExchange(ctx, active.ID, "q", "a")).To(Succeed())
			Expect(reg.Clear(ctx, active.ID)).To(Succeed())

			got, err := reg.Get(active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(BeEmpty())
		})
	})

	Describe("Resolve", func() {
		It("finds threads by name and ID prefix", func() {
			active, _ := reg.Active()
			Expect(reg.Rename(ctx, active.ID, "Research")).To(Succeed())

			byName, err := reg.Resolve("Research")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(active.ID))

			byPrefix, err := reg.Resolve(active.ID[:8])
			Expect(err).NotTo(HaveOccurred())
			Expect(byPrefix.ID).To(Equal(active.ID))

			_, err = reg.Resolve("missing")
			Expect(err).To(MatchError(thread.ErrNotFound))
		})
	})

	It("lists threads most recently updated first", func() {
		first, _ := reg.Active()
		second, err := reg.Create(ctx)
		Expect(err).NotTo(HaveOccurred())

		list := reg.List()
		Expect(list[0].ID).To(Equal(second.ID))

		Expect(reg.AppendExchange(ctx, first.ID, "q", "a")).To(Succeed())
		list = reg.List()
		Expect(list[0].ID).To(Equal(first.ID))
	})

	It("rejects empty names", func() {
		active, _ := reg.Active()
		Expect(reg.Rename(ctx, active.ID, "  ")).To(HaveOccurred())
	})
})
