package types

// CorpusConfig holds settings for the reference corpus store.
type CorpusConfig struct {
	// CorpusDir is the base directory for the corpus (contains sources/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// MaxResults is the default maximum number of search results (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// CompletionProvider identifies a text-completion backend.
type CompletionProvider string

const (
	// ProviderOpenAI is the hosted OpenAI chat-completions API.
	ProviderOpenAI CompletionProvider = "openai"

	// ProviderOllama is a locally running Ollama server.
	ProviderOllama CompletionProvider = "ollama"
)

// CompletionConfig holds settings for the text-completion service.
type CompletionConfig struct {
	// Provider selects the backend: openai or ollama.
	Provider CompletionProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gpt-4-turbo-preview", "llama3").
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// APIKey authenticates hosted backends. Local backends ignore it.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the backend's API endpoint, mainly for tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxTokens caps the completion length (default 2000).
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited HTTP
	// calls (default 3).
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// GenerationConfig holds settings for the generation pipeline.
type GenerationConfig struct {
	// TopK is the default passage count for ad-hoc retrieval when the
	// caller does not size the query (default 5). Stage retrieval uses
	// per-stage counts and ignores this value.
	TopK int `json:"top_k" yaml:"top_k"`

	// MaxRetries is the number of additional attempts for failed
	// completion calls (0 = fail on first error). Each attempt is a
	// fresh, independent call; attempts are never merged.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Corpus     CorpusConfig     `json:"corpus" yaml:"corpus"`
	Completion CompletionConfig `json:"completion" yaml:"completion"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
}
