package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BucketRule overrides the scheduler's default path-derived bucket and
// provenance classification for paths matching Pattern (a filepath.Match
// glob evaluated against the slash-joined path relative to the workspace
// root). Rules are evaluated in file order; the first match wins.
type BucketRule struct {
	Pattern    string `yaml:"pattern"`
	Bucket     string `yaml:"bucket"`
	Provenance string `yaml:"provenance,omitempty"`
}

type bucketRulesFile struct {
	Rules []BucketRule `yaml:"rules"`
}

// BucketRulesPath returns <root>/context/bucket_rules.yaml.
func BucketRulesPath(root string) string {
	return filepath.Join(root, "context", "bucket_rules.yaml")
}

// LoadBucketRules reads and parses the YAML bucket-routing rules file at
// path. A missing file yields an empty rule set, not an error -- most
// workspaces classify purely by the default inbox/<bucket>/ convention.
func LoadBucketRules(path string) ([]BucketRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read bucket rules: %w", err)
	}
	var file bucketRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse bucket rules: %w", err)
	}
	return file.Rules, nil
}
