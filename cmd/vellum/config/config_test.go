package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/vellum/cmd/vellum/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := []string{}
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .vellum dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".vellum"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	execute := func(args ...string) (string, error) {
		cmd := configcmder.NewConfigCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			_, err := execute("set", "provider.type", "anthropic")
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(filepath.Join(tmpDir, ".vellum", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "invalid_key", "value")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "provider.type")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid integer values", func() {
			_, err := execute("set", "indexing.batch_size", "not-a-number")
			Expect(err).To(HaveOccurred())

			_, err = execute("set", "retrieval.top_k", "-1")
			Expect(err).To(HaveOccurred())
		})

		It("masks the API key in its confirmation", func() {
			out, err := execute("set", "provider.api_key", "sk-secret")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("sk-secret"))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := execute("set", "filter.folders", "projects, journal")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "filter.folders")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("projects,journal"))
		})

		It("shows defaults for unset keys", func() {
			out, err := execute("get", "retrieval.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("3"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("indexing.batch_size"))
			Expect(out).To(ContainSubstring("api.listen"))
		})

		It("rejects any arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
