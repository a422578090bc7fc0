package config

// Config is the immutable configuration for the memory service, built once
// at process start and passed by reference into every component constructor.
// There is no ambient/global config singleton (unlike the Python source's
// process-wide `memory_config`) — see DESIGN.md.
type Config struct {
	Version int `toml:"version" mapstructure:"version"`

	KV        KVConfig        `toml:"kv"        mapstructure:"kv"`
	Doc       DocConfig       `toml:"doc"       mapstructure:"doc"`
	Vector    VectorConfig    `toml:"vector"    mapstructure:"vector"`
	Embedding EmbeddingConfig `toml:"embedding" mapstructure:"embedding"`
	PrefLLM   PrefLLMConfig   `toml:"pref_llm"  mapstructure:"pref_llm"`
	Memory    MemoryConfig    `toml:"memory"    mapstructure:"memory"`
	Worker    WorkerConfig    `toml:"worker"    mapstructure:"worker"`
}

// KVConfig holds the Redis connection and sliding-TTL / stream settings.
type KVConfig struct {
	Host     string `toml:"host"     mapstructure:"host"`
	Port     int    `toml:"port"     mapstructure:"port"`
	Password string `toml:"password,omitempty" mapstructure:"password"`
	DB       int    `toml:"db"       mapstructure:"db"`

	IntraSessionTTL int `toml:"intra_session_ttl" mapstructure:"intra_session_ttl"`
	PrefCacheTTL    int `toml:"pref_cache_ttl"    mapstructure:"pref_cache_ttl"`

	EmbeddingQueue     string `toml:"embedding_queue"      mapstructure:"embedding_queue"`
	EmbeddingGroup     string `toml:"embedding_group"      mapstructure:"embedding_group"`
	PreferenceQueue    string `toml:"preference_queue"     mapstructure:"preference_queue"`
	PreferenceGroup    string `toml:"preference_group"     mapstructure:"preference_group"`
	EnableRedisCache   bool   `toml:"enable_redis_cache"   mapstructure:"enable_redis_cache"`
}

// DocConfig holds the Postgres document-store connection settings.
type DocConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// VectorConfig holds the Qdrant connection and collection settings.
type VectorConfig struct {
	Host           string `toml:"host"            mapstructure:"host"`
	Port           int    `toml:"port"             mapstructure:"port"`
	APIKey         string `toml:"api_key,omitempty" mapstructure:"api_key"`
	UseTLS         bool   `toml:"use_tls"          mapstructure:"use_tls"`
	Collection     string `toml:"collection"       mapstructure:"collection"`
	Dimensions     uint64 `toml:"dimensions"       mapstructure:"dimensions"`
}

// EmbeddingConfig holds the embedding-provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider" mapstructure:"provider"`
	Target   string `toml:"target"   mapstructure:"target"`
	APIKey   string `toml:"api_key,omitempty" mapstructure:"api_key"`
	Model    string `toml:"model"    mapstructure:"model"`
}

// PrefLLMConfig holds the optional LLM preference-extraction provider
// settings, used only when memory.enable_pref_llm_extraction is set.
// Mirrors pref_worker.py's DASHSCOPE_API_KEY/QWEN_MODEL pair, generalized
// to any OpenAI-compatible chat endpoint rather than hard-coding DashScope.
type PrefLLMConfig struct {
	APIKey  string `toml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `toml:"base_url"          mapstructure:"base_url"`
	Model   string `toml:"model"             mapstructure:"model"`
}

// MemoryConfig holds the memory-manager feature flags and retrieval defaults.
type MemoryConfig struct {
	UseLegacyMemory         bool    `toml:"use_legacy_memory"          mapstructure:"use_legacy_memory"`
	EnableAsyncEmbedding    bool    `toml:"enable_async_embedding"     mapstructure:"enable_async_embedding"`
	EnablePrefExtraction    bool    `toml:"enable_pref_extraction"     mapstructure:"enable_pref_extraction"`
	EnablePrefLLMExtraction bool    `toml:"enable_pref_llm_extraction" mapstructure:"enable_pref_llm_extraction"`
	DefaultRetrievalK       int     `toml:"default_retrieval_k"        mapstructure:"default_retrieval_k"`
	MinSimilarity           float64 `toml:"min_similarity"             mapstructure:"min_similarity"`
}

// WorkerConfig holds the worker/controller supervision settings.
type WorkerConfig struct {
	Batch       int `toml:"batch"         mapstructure:"batch"`
	BlockMS     int `toml:"block_ms"      mapstructure:"block_ms"`
	StaleMS     int `toml:"stale_ms"      mapstructure:"stale_ms"`
	ClaimTickMS int `toml:"claim_tick_ms" mapstructure:"claim_tick_ms"`
}

// validConfigKeys is the authoritative set of all supported dotted config keys.
var validConfigKeys = map[string]bool{
	"kv.host":                       true,
	"kv.port":                       true,
	"kv.password":                   true,
	"kv.db":                         true,
	"kv.intra_session_ttl":          true,
	"kv.pref_cache_ttl":             true,
	"kv.embedding_queue":            true,
	"kv.embedding_group":            true,
	"kv.preference_queue":           true,
	"kv.preference_group":           true,
	"kv.enable_redis_cache":         true,
	"doc.dsn":                       true,
	"vector.host":                   true,
	"vector.port":                   true,
	"vector.api_key":                true,
	"vector.use_tls":                true,
	"vector.collection":             true,
	"vector.dimensions":             true,
	"embedding.provider":            true,
	"embedding.target":              true,
	"embedding.api_key":             true,
	"embedding.model":                true,
	"pref_llm.api_key":                true,
	"pref_llm.base_url":               true,
	"pref_llm.model":                  true,
	"memory.use_legacy_memory":          true,
	"memory.enable_async_embedding":     true,
	"memory.enable_pref_extraction":     true,
	"memory.enable_pref_llm_extraction": true,
	"memory.default_retrieval_k":        true,
	"memory.min_similarity":             true,
	"worker.batch":         true,
	"worker.block_ms":      true,
	"worker.stale_ms":      true,
	"worker.claim_tick_ms": true,
}

// IsValidConfigKey returns true if key is a supported dotted config key.
func IsValidConfigKey(key string) bool {
	return validConfigKeys[key]
}
