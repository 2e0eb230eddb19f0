package vector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/vector"
)

var _ = Describe("CosineSimilarity", func() {
	It("is 1 for a vector against itself", func() {
		v := []float32{0.3, -1.2, 4}
		Expect(vector.CosineSimilarity(v, v)).To(BeNumerically("~", 1, 1e-9))
	})

	It("is 0 against the zero vector", func() {
		Expect(vector.CosineSimilarity([]float32{1, 2}, []float32{0, 0})).To(Equal(0.0))
	})

	It("is -1 for opposite vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{-2, 0})).To(BeNumerically("~", -1, 1e-9))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{0, 5})).To(Equal(0.0))
	})

	It("is 0 when dimensions differ", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0})).To(Equal(0.0))
	})

	It("is 0 for empty vectors", func() {
		Expect(vector.CosineSimilarity(nil, nil)).To(Equal(0.0))
	})
})
