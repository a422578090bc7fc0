package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper. It sets defaults
// from NewDefaultConfig(), reads config.toml from configPath (a directory; empty
// means "look in the current directory only"), and binds environment
// variables with the MEMORYD_ prefix.
//
// Precedence (highest to lowest): CLI flags (once bound via
// BindRegisteredFlags) > environment variables (MEMORYD_KV_HOST,
// MEMORYD_DOC_DSN, etc.) > config.toml file values > defaults.
func InitViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("MEMORYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// LoadConfig builds a fully-populated, immutable Config from configPath.
func LoadConfig(configPath string) (*Config, error) {
	v, err := InitViper(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// setViperDefaults registers NewDefaultConfig()'s values into v using dotted
// keys, keeping defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("kv.host", d.KV.Host)
	v.SetDefault("kv.port", d.KV.Port)
	v.SetDefault("kv.password", d.KV.Password)
	v.SetDefault("kv.db", d.KV.DB)
	v.SetDefault("kv.intra_session_ttl", d.KV.IntraSessionTTL)
	v.SetDefault("kv.pref_cache_ttl", d.KV.PrefCacheTTL)
	v.SetDefault("kv.embedding_queue", d.KV.EmbeddingQueue)
	v.SetDefault("kv.embedding_group", d.KV.EmbeddingGroup)
	v.SetDefault("kv.preference_queue", d.KV.PreferenceQueue)
	v.SetDefault("kv.preference_group", d.KV.PreferenceGroup)
	v.SetDefault("kv.enable_redis_cache", d.KV.EnableRedisCache)

	v.SetDefault("doc.dsn", d.Doc.DSN)

	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.api_key", d.Vector.APIKey)
	v.SetDefault("vector.use_tls", d.Vector.UseTLS)
	v.SetDefault("vector.collection", d.Vector.Collection)
	v.SetDefault("vector.dimensions", d.Vector.Dimensions)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.model", d.Embedding.Model)

	v.SetDefault("pref_llm.api_key", d.PrefLLM.APIKey)
	v.SetDefault("pref_llm.base_url", d.PrefLLM.BaseURL)
	v.SetDefault("pref_llm.model", d.PrefLLM.Model)

	v.SetDefault("memory.use_legacy_memory", d.Memory.UseLegacyMemory)
	v.SetDefault("memory.enable_async_embedding", d.Memory.EnableAsyncEmbedding)
	v.SetDefault("memory.enable_pref_extraction", d.Memory.EnablePrefExtraction)
	v.SetDefault("memory.enable_pref_llm_extraction", d.Memory.EnablePrefLLMExtraction)
	v.SetDefault("memory.default_retrieval_k", d.Memory.DefaultRetrievalK)
	v.SetDefault("memory.min_similarity", d.Memory.MinSimilarity)

	v.SetDefault("worker.batch", d.Worker.Batch)
	v.SetDefault("worker.block_ms", d.Worker.BlockMS)
	v.SetDefault("worker.stale_ms", d.Worker.StaleMS)
	v.SetDefault("worker.claim_tick_ms", d.Worker.ClaimTickMS)
}
