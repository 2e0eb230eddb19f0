package storage_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/storage/inmemory"
)

var _ = Describe("JSON helpers", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	It("reports missing sections without an error", func() {
		var v map[string]string
		found, err := storage.GetJSON(ctx, driver, storage.SectionSettings, &v)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("round-trips values", func() {
		Expect(storage.SetJSON(ctx, driver, storage.SectionSettings, map[string]string{"model": "m"})).To(Succeed())

		var v map[string]string
		found, err := storage.GetJSON(ctx, driver, storage.SectionSettings, &v)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(v).To(HaveKeyWithValue("model", "m"))
	})

	It("reports corrupt sections", func() {
		Expect(driver.Set(ctx, storage.SectionThreads, []byte("{not json"))).To(Succeed())

		var v []any
		found, err := storage.GetJSON(ctx, driver, storage.SectionThreads, &v)
		Expect(found).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("decoding section threads")))
	})
})

var _ = Describe("Export", func() {
	It("combines sections under their export keys", func() {
		ctx := context.Background()
		driver := inmemory.NewDriver()
		Expect(driver.Set(ctx, storage.SectionSettings, []byte(`{"topK":3}`))).To(Succeed())
		Expect(driver.Set(ctx, storage.SectionThreads, []byte(`[]`))).To(Succeed())

		data, err := storage.Export(ctx, driver)
		Expect(err).NotTo(HaveOccurred())

		var out map[string]any
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out).To(HaveKey("settings"))
		Expect(out).To(HaveKeyWithValue("vectorIndex", BeNil()))
		Expect(out["threads"]).To(BeEmpty())
	})
})
