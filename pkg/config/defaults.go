package config

const (
	defaultStorageProvider = "sqlite"

	defaultGenerationProvider = "ollama"
	defaultGenerationTimeout  = "120s"
	defaultMaxTokens          = 2048

	defaultMaxItemsPerStep = 20
	defaultMediumDays      = 30
	defaultOldDays         = 90
	defaultAncientDays     = 365

	defaultWorkers   = 2
	defaultQueueSize = 256

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultSessionTimeout = "300s"
	defaultRecentMemories = 20

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "memoir.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Generation: GenerationConfig{
			Provider:  defaultGenerationProvider,
			Timeout:   defaultGenerationTimeout,
			MaxTokens: defaultMaxTokens,
		},
		Organize: OrganizeConfig{
			MaxItemsPerStep: defaultMaxItemsPerStep,
			MediumDays:      defaultMediumDays,
			OldDays:         defaultOldDays,
			AncientDays:     defaultAncientDays,
		},
		Extraction: ExtractionConfig{
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Chat: ChatConfig{
			SessionTimeout: defaultSessionTimeout,
			RecentMemories: defaultRecentMemories,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
