package source_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/source"
)

var _ = Describe("Candidate", func() {
	DescribeTable("NewCandidate",
		func(path, ext, name string) {
			c := source.NewCandidate(path)
			Expect(c.Path).To(Equal(path))
			Expect(c.Extension).To(Equal(ext))
			Expect(c.Name()).To(Equal(name))
		},
		Entry("markdown", "notes/Daily.md", "md", "Daily"),
		Entry("double extension", "Drawing.excalidraw.md", "md", "Drawing.excalidraw"),
		Entry("no extension", "README", "", "README"),
	)
})
