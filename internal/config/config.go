// Package config holds anchoros' typed configuration: user_settings.json,
// path resolution, and the keyword/tag catalog. It is the single source of
// truth consulted by every other package -- nothing reads raw JSON outside
// of this package.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServerConfig is the out-of-scope HTTP facade's listen configuration; the
// core only persists and round-trips it.
type ServerConfig struct {
	Port   int    `json:"port,omitempty"`
	Host   string `json:"host,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// WatcherConfig controls the ingest scheduler's filesystem watcher.
type WatcherConfig struct {
	StabilityThresholdMS int      `json:"stability_threshold_ms,omitempty"`
	ExtraPaths           []string `json:"extra_paths,omitempty"`
}

// IngestConfig bounds the atomization pipeline.
type IngestConfig struct {
	MaxMoleculeBytes int `json:"max_molecule_bytes,omitempty"`
	MaxBodyBytes     int `json:"max_body_bytes,omitempty"`
}

// SearchConfig bounds the Tag-Walker.
type SearchConfig struct {
	DefaultMaxChars int     `json:"default_max_chars,omitempty"`
	AnchorShare     float64 `json:"anchor_share,omitempty"`
}

// LoggingConfig drives internal/logging.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level,omitempty"`
	JSONFormat bool            `json:"json_format,omitempty"`
	LogDir     string          `json:"log_dir,omitempty"`
}

// LLMConfig is out of scope for the core; it is persisted opaquely so the
// external chat/agent harness can read its own settings back.
type LLMConfig map[string]interface{}

// UserConfig mirrors user_settings.json in its entirety.
type UserConfig struct {
	Server  *ServerConfig  `json:"server,omitempty"`
	Watcher *WatcherConfig `json:"watcher,omitempty"`
	LLM     LLMConfig      `json:"llm,omitempty"`
	Ingest  *IngestConfig  `json:"ingest,omitempty"`
	Search  *SearchConfig  `json:"search,omitempty"`
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// Config is the resolved, defaulted configuration used at runtime. Env vars
// take precedence over user_settings.json, which takes precedence over the
// built-in defaults below.
type Config struct {
	Root                    string
	EmbeddingDim            int
	MaxMoleculeBytes        int
	MaxBodyBytes            int
	WatcherStabilityMS      int
	SearchDefaultMaxChars   int
	SearchAnchorShare       float64
	WatcherExtraPaths       []string
	Server                  ServerConfig
	Logging                 LoggingConfig
	BucketRules             []BucketRule
}

// Defaults returns the built-in configuration before any user overrides.
func Defaults() Config {
	return Config{
		EmbeddingDim:          0,
		MaxMoleculeBytes:      1024,
		MaxBodyBytes:          500 * 1024,
		WatcherStabilityMS:    2000,
		SearchDefaultMaxChars: 20000,
		SearchAnchorShare:     0.7,
	}
}

// Load resolves configuration for the engine rooted at root: built-in
// defaults, overridden by <root>/user_settings.json, overridden by
// environment variables.
func Load(root string) (Config, error) {
	cfg := Defaults()
	cfg.Root = root

	uc, err := LoadUserConfig(UserSettingsPath(root))
	if err != nil {
		return cfg, err
	}
	applyUserConfig(&cfg, uc)
	applyEnvOverrides(&cfg)

	rules, err := LoadBucketRules(BucketRulesPath(root))
	if err != nil {
		return cfg, err
	}
	cfg.BucketRules = rules

	return cfg, nil
}

func applyUserConfig(cfg *Config, uc *UserConfig) {
	if uc.Ingest != nil {
		if uc.Ingest.MaxMoleculeBytes > 0 {
			cfg.MaxMoleculeBytes = uc.Ingest.MaxMoleculeBytes
		}
		if uc.Ingest.MaxBodyBytes > 0 {
			cfg.MaxBodyBytes = uc.Ingest.MaxBodyBytes
		}
	}
	if uc.Watcher != nil {
		if uc.Watcher.StabilityThresholdMS > 0 {
			cfg.WatcherStabilityMS = uc.Watcher.StabilityThresholdMS
		}
		cfg.WatcherExtraPaths = uc.Watcher.ExtraPaths
	}
	if uc.Search != nil {
		if uc.Search.DefaultMaxChars > 0 {
			cfg.SearchDefaultMaxChars = uc.Search.DefaultMaxChars
		}
		if uc.Search.AnchorShare > 0 {
			cfg.SearchAnchorShare = uc.Search.AnchorShare
		}
	}
	if uc.Server != nil {
		cfg.Server = *uc.Server
	}
	if uc.Logging != nil {
		cfg.Logging = *uc.Logging
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMBEDDING_DIM"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.EmbeddingDim)
	}
	if v := os.Getenv("MAX_MOLECULE_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxMoleculeBytes)
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxBodyBytes)
	}
	if v := os.Getenv("WATCHER_STABILITY_THRESHOLD_MS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.WatcherStabilityMS)
	}
	if v := os.Getenv("SEARCH_DEFAULT_MAX_CHARS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.SearchDefaultMaxChars)
	}
	if v := os.Getenv("SEARCH_ANCHOR_SHARE"); v != "" {
		fmt.Sscanf(v, "%f", &cfg.SearchAnchorShare)
	}
	if v := os.Getenv("ANCHOROS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANCHOROS_LOG_DIR"); v != "" {
		cfg.Logging.LogDir = v
	}
	if v := os.Getenv("ANCHOROS_DEBUG"); v != "" {
		cfg.Logging.DebugMode = v == "1" || v == "true" || v == "yes"
	}
}

// UserSettingsPath returns <root>/user_settings.json.
func UserSettingsPath(root string) string {
	return filepath.Join(root, "user_settings.json")
}

// LoadUserConfig reads user_settings.json, returning an empty config if the
// file does not yet exist.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read user settings: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse user settings: %w", err)
	}
	return cfg, nil
}

// Save persists the user settings to path, creating parent directories.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write user settings: %w", err)
	}
	return nil
}

// AddWatchPath appends path to the watcher's extra_paths and persists it.
func AddWatchPath(root, path string) error {
	return mutateWatchPaths(root, func(paths []string) []string {
		for _, p := range paths {
			if p == path {
				return paths
			}
		}
		return append(paths, path)
	})
}

// RemoveWatchPath removes path from the watcher's extra_paths and persists it.
func RemoveWatchPath(root, path string) error {
	return mutateWatchPaths(root, func(paths []string) []string {
		out := paths[:0]
		for _, p := range paths {
			if p != path {
				out = append(out, p)
			}
		}
		return out
	})
}

func mutateWatchPaths(root string, mutate func([]string) []string) error {
	settingsPath := UserSettingsPath(root)
	uc, err := LoadUserConfig(settingsPath)
	if err != nil {
		return err
	}
	if uc.Watcher == nil {
		uc.Watcher = &WatcherConfig{}
	}
	uc.Watcher.ExtraPaths = mutate(uc.Watcher.ExtraPaths)
	return uc.Save(settingsPath)
}
