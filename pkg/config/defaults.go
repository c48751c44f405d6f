package config

const (
	defaultModel          = "grok"
	defaultMaxWords       = 70
	defaultTimeoutSeconds = 60

	defaultWindowDays = 20
	defaultMaxResults = 3

	defaultCursorHome   = "~/.cursor"
	defaultAgentCommand = "cursor agent"

	defaultBackfillWorkers = 2
	defaultAPIListen       = ":8082"

	defaultEventsTopic = "curlens.summaries"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Summarizer: SummarizerConfig{
			Model:          defaultModel,
			MaxWords:       defaultMaxWords,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Search: SearchConfig{
			Model:      defaultModel,
			WindowDays: defaultWindowDays,
			MaxResults: defaultMaxResults,
		},
		Hooks: HooksConfig{
			Enabled: true,
		},
		Cursor: CursorConfig{
			Home: defaultCursorHome,
		},
		Agent: AgentConfig{
			Command: defaultAgentCommand,
		},
		Backfill: BackfillConfig{
			Workers: defaultBackfillWorkers,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
