package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/cliui"
)

var _ = Describe("cliui", func() {
	It("prints the step outcome", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Loading index", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Loading index"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})

	It("returns the step error", func() {
		boom := errors.New("boom")
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Failing", func() error { return boom })).To(MatchError(boom))
	})

	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("renders progress counts", func() {
		line := cliui.ProgressLine(3, 10, "Daily")
		Expect(line).To(ContainSubstring("3/10"))
		Expect(line).To(ContainSubstring("Daily"))
	})

	It("tolerates an empty run", func() {
		Expect(cliui.ProgressLine(0, 0, "")).To(ContainSubstring("0/0"))
	})
})
