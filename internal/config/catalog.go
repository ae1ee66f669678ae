package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// KeywordCatalogPath returns <root>/context/internal_tags.json.
func KeywordCatalogPath(root string) string {
	return filepath.Join(root, "context", "internal_tags.json")
}

type keywordCatalogFile struct {
	Keywords []string `json:"keywords"`
}

// KeywordCatalog is a keyword list plus a single compiled case-insensitive
// alternation regex, built once from the catalog file and never mutated.
type KeywordCatalog struct {
	keywords []string
	pattern  *regexp.Regexp
}

// Keywords returns the catalog's keyword list in original case.
func (c *KeywordCatalog) Keywords() []string {
	if c == nil {
		return nil
	}
	return c.keywords
}

// FindAll returns every keyword match in text, preserving the source casing
// as it appears in text (not the catalog's casing).
func (c *KeywordCatalog) FindAll(text string) []string {
	if c == nil || c.pattern == nil {
		return nil
	}
	return c.pattern.FindAllString(text, -1)
}

var (
	singletonMu      sync.Mutex
	singletonPath    string
	singletonCatalog *KeywordCatalog
	singletonErr     error
	singletonLoaded  bool
)

// Catalog returns the process-wide singleton catalog for path, loading it
// lazily on first call. Use this from long-lived engine code; use
// LoadKeywordCatalog directly in tests that need independent instances.
func Catalog(path string) (*KeywordCatalog, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if !singletonLoaded || singletonPath != path {
		singletonCatalog, singletonErr = LoadKeywordCatalog(path)
		singletonPath = path
		singletonLoaded = true
	}
	return singletonCatalog, singletonErr
}

// LoadKeywordCatalog loads and compiles the catalog at path. An unreadable
// or malformed catalog yields an empty, non-nil catalog and a non-fatal
// error so callers can keep running without keyword tags.
func LoadKeywordCatalog(path string) (*KeywordCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &KeywordCatalog{}, fmt.Errorf("read keyword catalog: %w", err)
	}

	var file keywordCatalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return &KeywordCatalog{}, fmt.Errorf("parse keyword catalog: %w", err)
	}

	return &KeywordCatalog{
		keywords: file.Keywords,
		pattern:  compileAlternation(file.Keywords),
	}, nil
}

// compileAlternation builds a single case-insensitive word-boundary regex
// from keywords, escaping anything regexp-special in each term.
func compileAlternation(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	escaped := make([]string, len(keywords))
	for i, kw := range keywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	pattern := `(?i)\b(` + strings.Join(escaped, "|") + `)\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}
