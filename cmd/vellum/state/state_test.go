package statecmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statecmder "github.com/papercomputeco/vellum/cmd/vellum/state"
)

type exported struct {
	Settings    json.RawMessage `json:"settings"`
	VectorIndex json.RawMessage `json:"vectorIndex"`
	Threads     []struct {
		Name string `json:"name"`
	} `json:"threads"`
}

var _ = Describe("State command", func() {
	var configDir string

	execute := func(args ...string) (string, error) {
		cmd := statecmder.NewStateCmd()
		cmd.PersistentFlags().BoolP("debug", "d", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("lists the sections written on open", func() {
		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("settings"))
		Expect(out).To(ContainSubstring("0 notes"))
	})

	It("exports settings and threads to stdout", func() {
		out, err := execute("export")
		Expect(err).NotTo(HaveOccurred())

		var doc exported
		Expect(json.Unmarshal([]byte(out), &doc)).To(Succeed())
		Expect(string(doc.Settings)).To(ContainSubstring(`"provider"`))
		Expect(string(doc.Settings)).NotTo(ContainSubstring("api_key"))
		Expect(doc.Threads).To(HaveLen(1))
	})

	It("exports to a file", func() {
		target := filepath.Join(GinkgoT().TempDir(), "backup.json")

		_, err := execute("export", "-o", target)
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Valid(data)).To(BeTrue())
	})
})
