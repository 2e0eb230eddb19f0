package fingerprint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/fingerprint"
)

var _ = Describe("Fingerprint", func() {
	Describe("Sum32", func() {
		It("is zero for empty text", func() {
			Expect(fingerprint.Sum32("")).To(Equal(int32(0)))
		})

		It("wraps on overflow", func() {
			Expect(fingerprint.Sum32("The quick brown fox jumps over the lazy dog")).To(Equal(int32(-609428141)))
		})

		It("hashes astral runes as surrogate pairs", func() {
			Expect(fingerprint.Sum32("😀")).To(Equal(int32(1772899)))
		})
	})

	Describe("Hash", func() {
		DescribeTable("renders base 36",
			func(text, expected string) {
				Expect(fingerprint.Hash(text)).To(Equal(expected))
			},
			Entry("empty", "", "0"),
			Entry("single char", "a", "2p"),
			Entry("two chars", "ab", "2e9"),
			Entry("words", "hello world", "to5x38"),
			Entry("negative", "The quick brown fox jumps over the lazy dog", "-a2u5rh"),
		)

		It("is deterministic", func() {
			Expect(fingerprint.Hash("cat dog")).To(Equal(fingerprint.Hash("cat dog")))
		})

		It("changes when content changes", func() {
			Expect(fingerprint.Hash("cat dog")).NotTo(Equal(fingerprint.Hash("cat dogs")))
		})
	})
})
