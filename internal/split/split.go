// Package split implements the type-aware decomposition of sanitized text
// into molecules with exact byte offsets.
package split

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Fragment is a single splitter-emitted unit before it becomes a
// model.Molecule; atomize attaches tags, numeric extraction, and the
// fingerprint.
type Fragment struct {
	Content   string
	StartByte int
	EndByte   int
	Type      FragmentType
}

// FragmentType mirrors model.MoleculeType without importing it, keeping
// split free of the model package's upsert-oriented fields.
type FragmentType string

const (
	TypeProse FragmentType = "prose"
	TypeCode  FragmentType = "code"
	TypeData  FragmentType = "data"
)

// DefaultMaxMoleculeBytes is the fallback ceiling when a caller doesn't
// override it via configuration.
const DefaultMaxMoleculeBytes = 1024

const dataLargeFileThreshold = 5 * 1024 * 1024 // 5MB

var dataExtensions = map[string]bool{
	".csv": true, ".json": true, ".yaml": true, ".yml": true,
}

var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".rs": true,
	".rb": true, ".sh": true, ".sql": true,
}

var codeKeywordPattern = regexp.MustCompile(`\b(function|class|import|package|def|const|let|var|return)\b`)
var fencedCodePattern = regexp.MustCompile("```")

// DetectType applies a type-hint heuristic: extension first, then size,
// then content.
func DetectType(path string, content string) FragmentType {
	ext := strings.ToLower(filepath.Ext(path))
	if dataExtensions[ext] {
		return TypeData
	}
	if len(content) > dataLargeFileThreshold {
		return TypeData
	}
	if codeExtensions[ext] {
		return TypeCode
	}
	if fencedCodePattern.MatchString(content) || codeKeywordPattern.MatchString(content) {
		return TypeCode
	}
	return TypeProse
}

// Split decomposes content (of the given type hint) into ordered, byte
// exact fragments, then enforces maxSize by binary-splitting any oversized
// fragment at the largest character boundary whose prefix still fits.
func Split(content string, hint FragmentType, maxSize int) []Fragment {
	if maxSize <= 0 {
		maxSize = DefaultMaxMoleculeBytes
	}

	var fragments []Fragment
	switch hint {
	case TypeCode:
		fragments = splitCode(content)
	case TypeData:
		fragments = splitData(content)
	default:
		fragments = splitProse(content)
	}

	return enforceMaxSize(fragments, maxSize)
}

// SplitWithPath is Split plus a declaration-accurate path for Go sources:
// it tries SplitGoSource first and only falls back to the brace-depth
// splitCode heuristic (via Split) when the tree-sitter parse fails.
func SplitWithPath(path, content string, hint FragmentType, maxSize int) []Fragment {
	if maxSize <= 0 {
		maxSize = DefaultMaxMoleculeBytes
	}
	if hint == TypeCode && strings.HasSuffix(strings.ToLower(path), ".go") {
		if fragments := SplitGoSource(content); fragments != nil {
			return enforceMaxSize(fragments, maxSize)
		}
	}
	return Split(content, hint, maxSize)
}

// enforceMaxSize binary-splits any fragment whose UTF-8 byte length exceeds
// maxSize at the largest character-boundary index whose prefix still fits,
// recomputing offsets so they remain exact.
func enforceMaxSize(in []Fragment, maxSize int) []Fragment {
	out := make([]Fragment, 0, len(in))
	for _, f := range in {
		out = append(out, splitOversized(f, maxSize)...)
	}
	return out
}

func splitOversized(f Fragment, maxSize int) []Fragment {
	if len(f.Content) <= maxSize {
		return []Fragment{f}
	}

	cut := largestCharBoundaryWithinLimit(f.Content, maxSize)
	if cut <= 0 || cut >= len(f.Content) {
		// Cannot find a valid interior boundary (e.g. one giant rune run);
		// emit as-is rather than infinite-looping.
		return []Fragment{f}
	}

	head := Fragment{
		Content:   f.Content[:cut],
		StartByte: f.StartByte,
		EndByte:   f.StartByte + cut,
		Type:      f.Type,
	}
	tail := Fragment{
		Content:   f.Content[cut:],
		StartByte: f.StartByte + cut,
		EndByte:   f.EndByte,
		Type:      f.Type,
	}
	return append([]Fragment{head}, splitOversized(tail, maxSize)...)
}

// largestCharBoundaryWithinLimit returns the largest index <= limit that
// lands on a UTF-8 rune boundary.
func largestCharBoundaryWithinLimit(s string, limit int) int {
	if limit >= len(s) {
		return len(s)
	}
	i := limit
	for i > 0 && !isRuneBoundary(s, i) {
		i--
	}
	return i
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}
