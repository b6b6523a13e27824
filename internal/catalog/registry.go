package catalog

// Provider ids known to the gateway. Each must name a registered adapter.
const (
	ProviderGoogle     = "google"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGroq       = "groq"
	ProviderTogether   = "together"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

var builtinModels = map[string]Descriptor{
	// Google Gemini
	"gemini-2.0-flash": {
		Provider:        ProviderGoogle,
		ModelID:         "gemini-2.0-flash-exp",
		DisplayName:     "Gemini 2.0 Flash",
		Tier:            TierStandard,
		MaxTokens:       8192,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0,
		CostPer1KOutput: 0,
	},
	"gemini-2.5-pro": {
		Provider:        ProviderGoogle,
		ModelID:         "gemini-2.5-pro-preview-05-06",
		DisplayName:     "Gemini 2.5 Pro",
		Tier:            TierAdvanced,
		MaxTokens:       8192,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.00125,
		CostPer1KOutput: 0.005,
	},

	// Anthropic Claude
	"claude-opus-4": {
		Provider:        ProviderAnthropic,
		ModelID:         "claude-opus-4-20250514",
		DisplayName:     "Claude Opus 4",
		Tier:            TierExpert,
		MaxTokens:       8192,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.015,
		CostPer1KOutput: 0.075,
	},
	"claude-sonnet-4": {
		Provider:        ProviderAnthropic,
		ModelID:         "claude-sonnet-4-20250514",
		DisplayName:     "Claude Sonnet 4",
		Tier:            TierAdvanced,
		MaxTokens:       8192,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.003,
		CostPer1KOutput: 0.015,
	},
	"claude-haiku-3.5": {
		Provider:        ProviderAnthropic,
		ModelID:         "claude-3-5-haiku-20241022",
		DisplayName:     "Claude 3.5 Haiku",
		Tier:            TierStandard,
		MaxTokens:       8192,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.0008,
		CostPer1KOutput: 0.004,
	},

	// OpenAI
	"gpt-4o": {
		Provider:        ProviderOpenAI,
		ModelID:         "gpt-4o",
		DisplayName:     "GPT-4o",
		Tier:            TierAdvanced,
		MaxTokens:       4096,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.005,
		CostPer1KOutput: 0.015,
	},
	"gpt-4o-mini": {
		Provider:        ProviderOpenAI,
		ModelID:         "gpt-4o-mini",
		DisplayName:     "GPT-4o Mini",
		Tier:            TierStandard,
		MaxTokens:       4096,
		SupportsVision:  true,
		SupportsTools:   true,
		CostPer1KInput:  0.00015,
		CostPer1KOutput: 0.0006,
	},

	// Groq, free fast inference
	"groq-llama-3.3-70b": {
		Provider:      ProviderGroq,
		ModelID:       "llama-3.3-70b-versatile",
		DisplayName:   "Llama 3.3 70B (Groq)",
		Tier:          TierAdvanced,
		MaxTokens:     8192,
		SupportsTools: true,
	},
	"groq-llama-3.1-8b": {
		Provider:      ProviderGroq,
		ModelID:       "llama-3.1-8b-instant",
		DisplayName:   "Llama 3.1 8B (Groq)",
		Tier:          TierBasic,
		MaxTokens:     8192,
		SupportsTools: true,
	},
	"groq-mixtral-8x7b": {
		Provider:      ProviderGroq,
		ModelID:       "mixtral-8x7b-32768",
		DisplayName:   "Mixtral 8x7B (Groq)",
		Tier:          TierStandard,
		MaxTokens:     32768,
		SupportsTools: true,
	},

	// Together AI
	"together-llama-3.3-70b": {
		Provider:        ProviderTogether,
		ModelID:         "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		DisplayName:     "Llama 3.3 70B (Together)",
		Tier:            TierAdvanced,
		MaxTokens:       8192,
		SupportsTools:   true,
		CostPer1KInput:  0.00088,
		CostPer1KOutput: 0.00088,
	},
	"together-qwen-2.5-72b": {
		Provider:        ProviderTogether,
		ModelID:         "Qwen/Qwen2.5-72B-Instruct-Turbo",
		DisplayName:     "Qwen 2.5 72B (Together)",
		Tier:            TierAdvanced,
		MaxTokens:       8192,
		SupportsTools:   true,
		CostPer1KInput:  0.0012,
		CostPer1KOutput: 0.0012,
	},

	// OpenRouter
	"openrouter-auto": {
		Provider:       ProviderOpenRouter,
		ModelID:        "openrouter/auto",
		DisplayName:    "OpenRouter Auto",
		Tier:           TierStandard,
		MaxTokens:      4096,
		SupportsVision: true,
		SupportsTools:  true,
	},

	// Ollama, local
	"ollama-llama3.2": {
		Provider:    ProviderOllama,
		ModelID:     "llama3.2",
		DisplayName: "Llama 3.2 (Local)",
		Tier:        TierStandard,
		MaxTokens:   4096,
	},
	"ollama-mistral": {
		Provider:    ProviderOllama,
		ModelID:     "mistral",
		DisplayName: "Mistral (Local)",
		Tier:        TierStandard,
		MaxTokens:   4096,
	},
}

// Default returns the built-in model registry.
func Default() *Catalog {
	c, err := New(builtinModels)
	if err != nil {
		// builtinModels is validated by tests; New cannot fail on it.
		panic(err)
	}
	return c
}
