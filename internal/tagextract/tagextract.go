// Package tagextract produces the atom set for a molecule or whole compound:
// system tags derived from the file path, keyword tags from the curated
// catalog, explicit #tag tokens, temporal tags, and co-occurrence derived
// semantic categories.
package tagextract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
)

// projectIndicators are path segments that introduce a #project:<next> tag.
var projectIndicators = map[string]bool{
	"codebase": true, "projects": true, "src": true, "packages": true,
	"apps": true, "personal": true, "work": true, "client": true,
}

var codeExt = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".rs": true, ".rb": true, ".sh": true,
}
var docExt = map[string]bool{".md": true, ".txt": true, ".rst": true}
var configExt = map[string]bool{".yaml": true, ".yml": true, ".json": true, ".toml": true, ".ini": true}

var explicitTagPattern = regexp.MustCompile(`#(\w+)`)
var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// personLikePattern matches a capitalized word such as "Jade" or "Smith",
// the person-like entity heuristic used by semanticCategories.
var personLikePattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

var commonCapitalizedWords = map[string]bool{
	"The": true, "A": true, "An": true, "I": true, "In": true, "On": true,
	"At": true, "It": true, "This": true, "That": true, "And": true, "But": true,
	"For": true, "With": true, "January": true, "February": true, "March": true,
	"April": true, "May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

var honorifics = []string{"Mr.", "Mrs.", "Ms.", "Dr.", "Prof."}

// technicalKeywords is the vocabulary used to flag content as technical.
var technicalKeywords = map[string]bool{
	"function": true, "class": true, "api": true, "database": true,
	"server": true, "client": true, "endpoint": true, "query": true,
	"schema": true, "deploy": true, "repository": true, "compile": true,
}

var fencedCodePattern = regexp.MustCompile("```")

// Extractor bundles the process-wide read-only keyword catalog.
type Extractor struct {
	catalog *config.KeywordCatalog
}

// New wraps an already-loaded keyword catalog.
func New(catalog *config.KeywordCatalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// SystemTags derives path- and extension-based tags. archiveWeighted
// reports whether the path lies beneath history/ or archive/, in which
// case callers should weight the atom at 0.5.
func SystemTags(path string) (labels []string, archiveWeighted bool) {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		lower := strings.ToLower(seg)
		if projectIndicators[lower] && i+1 < len(segments) {
			labels = append(labels, "#project:"+segments[i+1])
		}
		switch lower {
		case "src":
			labels = append(labels, "#src")
		case "docs", "doc":
			labels = append(labels, "#docs")
		case "test", "tests":
			labels = append(labels, "#test")
		case "history", "archive":
			archiveWeighted = true
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case codeExt[ext]:
		labels = append(labels, "#code")
	case docExt[ext]:
		labels = append(labels, "#doc")
	case configExt[ext]:
		labels = append(labels, "#config")
	}

	if archiveWeighted {
		labels = append(labels, "#Archive")
	}
	return dedupe(labels), archiveWeighted
}

// ContentTags extracts keyword, explicit, temporal, and semantic-category
// atoms from a single molecule's text.
func (e *Extractor) ContentTags(content string) []string {
	var labels []string

	for _, kw := range e.catalog.FindAll(content) {
		labels = append(labels, "#"+kw)
	}

	for _, m := range explicitTagPattern.FindAllStringSubmatch(content, -1) {
		labels = append(labels, "#"+m[1])
	}

	for _, m := range yearPattern.FindAllString(content, -1) {
		if y, err := strconv.Atoi(m); err == nil && y >= 1900 && y <= 2099 {
			labels = append(labels, "#"+m)
		}
	}
	lower := strings.ToLower(content)
	for _, month := range monthNames {
		if strings.Contains(lower, month) {
			labels = append(labels, "#"+capitalize(month))
		}
	}

	labels = append(labels, e.semanticCategories(content)...)

	return dedupe(labels)
}

// semanticCategories applies co-occurrence heuristics: #Relationship (>=2
// person-like entities), #Narrative (person + time reference), #Technical
// (technical keyword or fenced code).
func (e *Extractor) semanticCategories(content string) []string {
	var labels []string

	people := personEntities(content)
	hasTime := yearPattern.MatchString(content) || containsAny(strings.ToLower(content), monthNames)

	if len(people) >= 2 {
		labels = append(labels, "#Relationship")
	}
	if len(people) >= 1 && hasTime {
		labels = append(labels, "#Narrative")
	}
	if hasTechnicalContent(content) {
		labels = append(labels, "#Technical")
	}
	return labels
}

// personEntities applies the person-like heuristic: a capitalized token not
// in the common-word list, or a word following an honorific.
func personEntities(content string) []string {
	seen := make(map[string]bool)
	var people []string

	for _, h := range honorifics {
		idx := strings.Index(content, h)
		for idx >= 0 {
			rest := strings.TrimSpace(content[idx+len(h):])
			if m := personLikePattern.FindString(rest); m != "" && !seen[m] {
				seen[m] = true
				people = append(people, m)
			}
			next := strings.Index(content[idx+len(h):], h)
			if next < 0 {
				break
			}
			idx = idx + len(h) + next
		}
	}

	for _, m := range personLikePattern.FindAllString(content, -1) {
		if commonCapitalizedWords[m] || seen[m] {
			continue
		}
		seen[m] = true
		people = append(people, m)
	}
	return people
}

func hasTechnicalContent(content string) bool {
	if fencedCodePattern.MatchString(content) {
		return true
	}
	lower := strings.ToLower(content)
	for kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// AtomIDPrefixLen is the length of the hash prefix used for atom identity.
// 16 hex characters (64 bits) keeps collisions negligible well past
// millions of distinct labels.
const AtomIDPrefixLen = 16

// AtomID derives the stable identity for a label: two molecules referencing
// the same label must resolve to the same atom id.
func AtomID(label string) string {
	return fmt.Sprintf("%016x", fnv1a64(label))[:AtomIDPrefixLen]
}

// ToAtom builds a model.Atom for label, applying the archive weight rule.
func ToAtom(label string, typ model.AtomType, archiveWeighted bool) *model.Atom {
	weight := model.DefaultWeight
	if archiveWeighted {
		weight = model.ArchiveWeight
	}
	return &model.Atom{ID: AtomID(label), Label: label, Type: typ, Weight: weight}
}

// fnv1a64 is a hand-written 64-bit FNV-1a (the same algorithm as the
// standard library's hash/fnv New64a); it avoids pulling in a second hash
// dependency solely for the short atom-id prefix, and is sufficient since
// collisions here only need to be rare, not adversarially resistant.
func fnv1a64(s string) uint64 {
	const offset = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
