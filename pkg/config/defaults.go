package config

const (
	v0 = 0

	// CurrentV is the currently supported config version.
	CurrentV = v0

	defaultKVHost            = "localhost"
	defaultKVPort            = 6379
	defaultKVDB              = 0
	defaultIntraSessionTTL   = 7200
	defaultPrefCacheTTL      = 3600
	defaultEmbeddingQueue    = "embedding_queue"
	defaultEmbeddingGroup    = "embedding_workers"
	defaultPreferenceQueue   = "preference_queue"
	defaultPreferenceGroup   = "pref_extractors"

	defaultDocDSN = "postgres://localhost:5432/memory?sslmode=disable"

	defaultVectorHost       = "localhost"
	defaultVectorPort       = 6334
	defaultVectorCollection = "conversations"
	defaultVectorDimensions = 1536

	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "embeddinggemma"

	defaultPrefLLMModel = "gpt-4o-mini"

	defaultRetrievalK = 6
	defaultMinSim     = 0.40

	defaultWorkerBatch       = 10
	defaultWorkerBlockMS     = 5000
	defaultWorkerStaleMS     = 120000
	defaultWorkerClaimTickMS = 5000
)

// NewDefaultConfig returns a Config with sane defaults for every field.
// This is the single source of truth for default values; setViperDefaults
// mirrors it under dotted keys.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		KV: KVConfig{
			Host:             defaultKVHost,
			Port:             defaultKVPort,
			DB:               defaultKVDB,
			IntraSessionTTL:  defaultIntraSessionTTL,
			PrefCacheTTL:     defaultPrefCacheTTL,
			EmbeddingQueue:   defaultEmbeddingQueue,
			EmbeddingGroup:   defaultEmbeddingGroup,
			PreferenceQueue:  defaultPreferenceQueue,
			PreferenceGroup:  defaultPreferenceGroup,
			EnableRedisCache: true,
		},
		Doc: DocConfig{
			DSN: defaultDocDSN,
		},
		Vector: VectorConfig{
			Host:       defaultVectorHost,
			Port:       defaultVectorPort,
			Collection: defaultVectorCollection,
			Dimensions: defaultVectorDimensions,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
		},
		PrefLLM: PrefLLMConfig{
			Model: defaultPrefLLMModel,
		},
		Memory: MemoryConfig{
			UseLegacyMemory:         false,
			EnableAsyncEmbedding:    true,
			EnablePrefExtraction:    true,
			EnablePrefLLMExtraction: false,
			DefaultRetrievalK:       defaultRetrievalK,
			MinSimilarity:           defaultMinSim,
		},
		Worker: WorkerConfig{
			Batch:       defaultWorkerBatch,
			BlockMS:     defaultWorkerBlockMS,
			StaleMS:     defaultWorkerStaleMS,
			ClaimTickMS: defaultWorkerClaimTickMS,
		},
	}
}
