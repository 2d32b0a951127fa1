package config

const (
	defaultInputDir       = "~/clinikondo/entrada"
	defaultOutputDir      = "~/clinikondo/organizado"
	defaultLogDir         = "~/.local/share/clinikondo/logs"
	defaultFuzzyThreshold = 0.90
	defaultExtractor      = "llm"
	defaultOnDuplicate    = "record"
	defaultMaxFileMB      = 50
	defaultLLMBaseURL     = "https://api.openai.com"
	defaultLLMModel       = "gpt-4o-mini"
	defaultLLMTemperature = 0.2
	defaultLLMMaxTokens   = 512
	defaultLLMTimeout     = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Matching: Matching{
			AutoMatch:      true,
			AutoCreate:     true,
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Processing: Processing{
			Extractor:   defaultExtractor,
			OnDuplicate: defaultOnDuplicate,
			MaxFileMB:   defaultMaxFileMB,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
