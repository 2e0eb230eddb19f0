package workspace_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Workspace", func() {
	var (
		ctx  context.Context
		cfg  *config.Config
		root string
	)

	BeforeEach(func() {
		ctx = context.Background()
		setenv(workspace.EnvOpenAIKey, "")
		setenv(workspace.EnvAnthropicKey, "")

		root = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(root, "A.md"), []byte("cat dog"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "B.md"), []byte("airplane jet"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "Drawing.excalidraw.md"), []byte("shapes"), 0o644)).To(Succeed())

		cfg = config.NewDefaultConfig()
		cfg.Indexing.Root = root
		cfg.Storage.StatePath = filepath.Join(GinkgoT().TempDir(), "nested", "state.db")
	})

	It("indexes, persists and restores the vault", func() {
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.OpenSource()).To(Succeed())

		res, err := ws.Pipeline.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Indexed).To(Equal(2))

		active, err := ws.Threads.Active()
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Threads.AppendExchange(ctx, active.ID, "q", "a")).To(Succeed())
		Expect(ws.Close()).To(Succeed())

		reopened, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		Expect(reopened.Store.Paths()).To(Equal([]string{"A.md", "B.md"}))
		results, err := reopened.Store.Search(ctx, "dog", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Path).To(Equal("A.md"))

		got, err := reopened.Threads.Get(active.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Messages).To(HaveLen(2))
	})

	It("records settings without the API key", func() {
		cfg.Provider.APIKey = "sk-secret"
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()

		data, err := storage.Export(ctx, ws.State)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("sk-secret"))

		var doc map[string]json.RawMessage
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc).To(HaveKey("settings"))
		Expect(string(doc["settings"])).To(ContainSubstring("excalidraw"))
		Expect(string(doc["threads"])).NotTo(Equal("null"))
	})

	It("opens without a provider and reports it for chat", func() {
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()

		_, err = ws.Chat()
		var cfgErr *llm.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal("api_key"))
	})

	It("builds a chat orchestrator when a key is in the environment", func() {
		setenv(workspace.EnvOpenAIKey, "sk-env")
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()

		orch, err := ws.Chat()
		Expect(err).NotTo(HaveOccurred())
		Expect(orch).NotTo(BeNil())
	})

	It("uses an in-memory state store without a path", func() {
		cfg.Storage.StatePath = ""
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()
		Expect(ws.State).NotTo(BeNil())
	})

	It("indexes with the openai preset when no key is set", func() {
		preset, err := config.PresetConfig("openai")
		Expect(err).NotTo(HaveOccurred())
		preset.Indexing.Root = root
		preset.Storage.StatePath = ""

		ws, err := workspace.Open(ctx, preset, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()
		Expect(ws.OpenSource()).To(Succeed())

		res, err := ws.Pipeline.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Indexed).To(Equal(2))

		results, err := ws.Store.Search(ctx, "jet", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Path).To(Equal("B.md"))

		_, err = ws.Chat()
		Expect(err).To(HaveOccurred())
	})

	It("requires a provider for the llm summarizer", func() {
		cfg.Indexing.Summarizer = "llm"
		ws, err := workspace.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()
		Expect(ws.OpenSource()).NotTo(Succeed())
	})
})

var _ = Describe("APIKey", func() {
	BeforeEach(func() {
		setenv(workspace.EnvOpenAIKey, "sk-openai")
		setenv(workspace.EnvAnthropicKey, "sk-anthropic")
	})

	DescribeTable("resolution",
		func(p config.ProviderConfig, want string) {
			Expect(workspace.APIKey(p)).To(Equal(want))
		},
		Entry("explicit key wins", config.ProviderConfig{Type: "openai", APIKey: "sk-file"}, "sk-file"),
		Entry("openai env", config.ProviderConfig{Type: "openai"}, "sk-openai"),
		Entry("anthropic env", config.ProviderConfig{Type: "anthropic"}, "sk-anthropic"),
		Entry("detected from model", config.ProviderConfig{Model: "claude-sonnet-4"}, "sk-anthropic"),
	)
})
