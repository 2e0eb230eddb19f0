package config

const (
	defaultProviderType  = "openai"
	defaultProviderModel = "gpt-4o-mini"
	defaultMaxTokens     = 1024

	defaultEmbeddingProvider = "local"
	defaultEmbeddingMaxInput = 8000

	defaultBatchSize     = 20
	defaultSummarizer    = "excerpt"
	defaultSummaryLength = 280

	defaultTopK = 3

	defaultAPIListen = ":8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Provider: ProviderConfig{
			Type:      defaultProviderType,
			Model:     defaultProviderModel,
			MaxTokens: defaultMaxTokens,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			MaxInput: defaultEmbeddingMaxInput,
		},
		Filter: FilterConfig{
			Blacklist:  []string{"*.excalidraw.md"},
			Extensions: []string{".md", ".txt"},
		},
		Indexing: IndexingConfig{
			Root:          ".",
			BatchSize:     defaultBatchSize,
			Summarizer:    defaultSummarizer,
			SummaryLength: defaultSummaryLength,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
