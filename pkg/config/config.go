package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const configFileName = "config.toml"

// Configer loads and persists config.toml from an explicit directory —
// unlike the teacher's dotdir-resolved ".tapes/" directory, this service has
// no notion of "which git repo am I in"; the directory is whatever the
// caller (CLI flag, env var, or default ".") points to.
type Configer struct {
	targetPath string
}

// NewConfiger resolves targetPath = filepath.Join(dir, "config.toml").
// dir defaults to "." when empty. The file need not exist yet.
func NewConfiger(dir string) (*Configer, error) {
	if dir == "" {
		dir = "."
	}

	if _, err := os.Stat(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	return &Configer{targetPath: filepath.Join(dir, configFileName)}, nil
}

// ValidConfigKeys returns all supported configuration key names in a fixed order, grouped by section.
func ValidConfigKeys() []string {
	ordered := []string{
		"kv.host", "kv.port", "kv.password", "kv.db",
		"kv.intra_session_ttl", "kv.pref_cache_ttl",
		"kv.embedding_queue", "kv.embedding_group",
		"kv.preference_queue", "kv.preference_group",
		"kv.enable_redis_cache",
		"doc.dsn",
		"vector.host", "vector.port", "vector.api_key", "vector.use_tls",
		"vector.collection", "vector.dimensions",
		"embedding.provider", "embedding.target", "embedding.api_key", "embedding.model",
		"pref_llm.api_key", "pref_llm.base_url", "pref_llm.model",
		"memory.use_legacy_memory", "memory.enable_async_embedding",
		"memory.enable_pref_extraction", "memory.enable_pref_llm_extraction",
		"memory.default_retrieval_k", "memory.min_similarity",
		"worker.batch", "worker.block_ms", "worker.stale_ms", "worker.claim_tick_ms",
	}

	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if validConfigKeys[k] {
			result = append(result, k)
		}
	}
	return result
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target path, merging it over
// defaults. If the file does not exist, returns NewDefaultConfig().
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("reading config into viper: %w", err)
	}

	merged := &Config{}
	if err := v.Unmarshal(merged); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	merged.Version = cfg.Version

	return merged, nil
}

// SaveConfig persists cfg to the target path.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets key to value, and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	if !validConfigKeys[key] {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")

	if data, err := os.ReadFile(c.targetPath); err == nil {
		_ = v.ReadConfig(bytes.NewReader(data))
	}

	v.Set(key, value)

	updated := &Config{}
	if err := v.Unmarshal(updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	updated.Version = cfg.Version

	return c.SaveConfig(updated)
}

// GetConfigValue loads the config and returns the string representation of key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	if !validConfigKeys[key] {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")

	if data, err := os.ReadFile(c.targetPath); err == nil {
		_ = v.ReadConfig(bytes.NewReader(data))
	}

	return v.GetString(key), nil
}

// PresetConfig returns a Config with sane defaults for the named embedding
// provider preset. Supported presets: "openai", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.Embedding = EmbeddingConfig{
			Provider: "openai",
			Target:   "https://api.openai.com/v1",
			Model:    "text-embedding-3-small",
		}
		cfg.Vector.Dimensions = 1536
		return cfg, nil

	case "ollama":
		cfg.Embedding = EmbeddingConfig{
			Provider: "ollama",
			Target:   "http://localhost:11434",
			Model:    "embeddinggemma",
		}
		cfg.Vector.Dimensions = 768
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
