package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoUserSettingsFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, 1024, cfg.MaxMoleculeBytes)
	assert.Equal(t, 20000, cfg.SearchDefaultMaxChars)
	assert.Empty(t, cfg.WatcherExtraPaths)
}

func TestLoad_UserSettingsOverrideDefaults(t *testing.T) {
	root := t.TempDir()
	uc := &UserConfig{
		Ingest: &IngestConfig{MaxMoleculeBytes: 2048},
		Search: &SearchConfig{DefaultMaxChars: 5000, AnchorShare: 0.5},
	}
	require.NoError(t, uc.Save(UserSettingsPath(root)))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.MaxMoleculeBytes)
	assert.Equal(t, 5000, cfg.SearchDefaultMaxChars)
	assert.Equal(t, 0.5, cfg.SearchAnchorShare)
}

func TestEnvOverrides_TakePrecedenceOverUserSettings(t *testing.T) {
	root := t.TempDir()
	uc := &UserConfig{Ingest: &IngestConfig{MaxMoleculeBytes: 2048}}
	require.NoError(t, uc.Save(UserSettingsPath(root)))

	t.Setenv("MAX_MOLECULE_BYTES", "4096")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.MaxMoleculeBytes)
}

func TestEnvOverrides_LoggingVarsTakePrecedenceOverUserSettings(t *testing.T) {
	root := t.TempDir()
	uc := &UserConfig{Logging: &LoggingConfig{Level: "warn"}}
	require.NoError(t, uc.Save(UserSettingsPath(root)))

	t.Setenv("ANCHOROS_LOG_LEVEL", "debug")
	t.Setenv("ANCHOROS_LOG_DIR", filepath.Join(root, "custom-logs"))
	t.Setenv("ANCHOROS_DEBUG", "true")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(root, "custom-logs"), cfg.Logging.LogDir)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestAddAndRemoveWatchPath_RoundTripThroughUserSettings(t *testing.T) {
	root := t.TempDir()
	extra := filepath.Join(root, "extra-dir")

	require.NoError(t, AddWatchPath(root, extra))
	uc, err := LoadUserConfig(UserSettingsPath(root))
	require.NoError(t, err)
	require.NotNil(t, uc.Watcher)
	assert.Contains(t, uc.Watcher.ExtraPaths, extra)

	// Adding the same path twice must not duplicate it.
	require.NoError(t, AddWatchPath(root, extra))
	uc, err = LoadUserConfig(UserSettingsPath(root))
	require.NoError(t, err)
	assert.Len(t, uc.Watcher.ExtraPaths, 1)

	require.NoError(t, RemoveWatchPath(root, extra))
	uc, err = LoadUserConfig(UserSettingsPath(root))
	require.NoError(t, err)
	assert.NotContains(t, uc.Watcher.ExtraPaths, extra)
}

func TestLoadBucketRules_MissingFileReturnsEmptyRulesNoError(t *testing.T) {
	rules, err := LoadBucketRules(BucketRulesPath(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadBucketRules_ParsesYAML(t *testing.T) {
	root := t.TempDir()
	path := BucketRulesPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	yaml := "rules:\n  - pattern: \"inbox/receipts/*\"\n    bucket: finance\n    provenance: internal\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	rules, err := LoadBucketRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "inbox/receipts/*", rules[0].Pattern)
	assert.Equal(t, "finance", rules[0].Bucket)
	assert.Equal(t, "internal", rules[0].Provenance)
}

func TestLoad_PopulatesBucketRulesFromWorkspace(t *testing.T) {
	root := t.TempDir()
	path := BucketRulesPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - pattern: \"*\"\n    bucket: everything\n"), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Len(t, cfg.BucketRules, 1)
	assert.Equal(t, "everything", cfg.BucketRules[0].Bucket)
}

func TestLoadKeywordCatalog_MissingFileReturnsEmptyCatalogAndError(t *testing.T) {
	cat, err := LoadKeywordCatalog(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.NotNil(t, cat)
	assert.Empty(t, cat.Keywords())
	assert.Empty(t, cat.FindAll("anything"))
}
