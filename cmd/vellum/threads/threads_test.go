package threadscmder_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	threadscmder "github.com/papercomputeco/vellum/cmd/vellum/threads"
	"github.com/papercomputeco/vellum/pkg/thread"
)

var _ = Describe("Threads command", func() {
	var configDir string

	execute := func(args ...string) (string, error) {
		cmd := threadscmder.NewThreadsCmd()
		cmd.PersistentFlags().BoolP("debug", "d", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	listJSON := func() []thread.Thread {
		out, err := execute("--json")
		Expect(err).NotTo(HaveOccurred())

		var threads []thread.Thread
		Expect(json.Unmarshal([]byte(out), &threads)).To(Succeed())
		return threads
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("has the thread subcommands", func() {
		cmd := threadscmder.NewThreadsCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("new", "show", "rename", "clear", "delete"))
	})

	It("starts with a default thread", func() {
		threads := listJSON()
		Expect(threads).To(HaveLen(1))
		Expect(threads[0].Name).To(Equal(thread.DefaultNamePrefix + " 1"))
	})

	It("creates, renames and deletes threads", func() {
		out, err := execute("new", "Garden")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Created"))
		Expect(listJSON()).To(HaveLen(2))

		_, err = execute("rename", "Garden", "Allotment")
		Expect(err).NotTo(HaveOccurred())

		out, err = execute("show", "Allotment")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("(no messages)"))

		_, err = execute("delete", "Allotment")
		Expect(err).NotTo(HaveOccurred())

		threads := listJSON()
		Expect(threads).To(HaveLen(1))
		Expect(threads[0].Name).NotTo(Equal("Allotment"))
	})

	It("fails for unknown threads", func() {
		_, err := execute("show", "nope")
		Expect(err).To(MatchError(thread.ErrNotFound))
	})

	It("requires arguments for rename", func() {
		_, err := execute("rename", "only-one")
		Expect(err).To(HaveOccurred())
	})
})
