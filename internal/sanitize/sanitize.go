// Package sanitize normalizes ingested text: strips wrapper noise, redacts
// PII, collapses whitespace. Sanitize is pure and never errors; callers that
// need responsiveness under large inputs should use Chunked.
package sanitize

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/rsbalchii/anchoros/internal/logging"
)

// chunkSize is the byte-aligned window used by Chunked for inputs above
// roughly 2 MB.
const chunkSize = 1 << 20 // 1 MiB

// largeInputThreshold is the point above which callers should prefer Chunked.
const largeInputThreshold = 2 << 20 // 2 MB

var (
	bomRune          = "﻿"
	nullOrReplacement = regexp.MustCompile("[\x00�]")
	crlf              = regexp.MustCompile(`\r\n|\\r\\n`)

	logSpamLine = regexp.MustCompile(`(?mi)^.*\b(Processing '[^']*'|Loading\.\.\.|Indexing\.\.\.|Analyzing\.\.\.).*$\n?`)
	bracketTimestamp = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}[^\]]*\]`)
	progressBar      = regexp.MustCompile(`(?m)^\s*[\[#=\-\s]*\d{1,3}%[\]#=\-\s]*$\n?`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	skTokenPattern = regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`)

	metadataHeader = regexp.MustCompile(`\[Source:[^\]]*\](?:\s*\(Timestamp:[^)]*\))?`)
	llmRoleMarker  = regexp.MustCompile(`<\|(?:user|assistant|system)\|>`)

	// contentWrapKeys hold the actual body text; only the key wrapper is
	// stripped, the string value they wrap is kept as sanitized body text.
	contentWrapKeys = []string{"content", "message", "body", "response_content", "thinking_content", "text"}
	// metadataWrapKeys are pure wrapper scaffolding (consumed elsewhere,
	// e.g. the compound timestamp); both key and value are dropped.
	metadataWrapKeys = []string{"type", "timestamp", "source_path"}

	bareCommaNewline = regexp.MustCompile(`"\s*,\s*"`)
	bareCloseBrace   = regexp.MustCompile(`"}`)
	bareOpenBrace    = regexp.MustCompile(`\{"`)

	runsOfNewlines = regexp.MustCompile(`\n{3,}`)
)

func buildJSONKeyPattern(keys []string) *regexp.Regexp {
	alts := make([]string, len(keys))
	for i, k := range keys {
		alts[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`"(?:` + strings.Join(alts, "|") + `)"\s*:\s*`)
}

func buildMetadataPairPattern(keys []string) *regexp.Regexp {
	alts := make([]string, len(keys))
	for i, k := range keys {
		alts[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`\s*,?\s*"(?:` + strings.Join(alts, "|") + `)"\s*:\s*"[^"]*"\s*,?\s*`)
}

var jsonContentKeyPattern = buildJSONKeyPattern(contentWrapKeys)
var jsonMetadataPairPattern = buildMetadataPairPattern(metadataWrapKeys)

// Sanitize applies the normalization passes in order and returns the
// cleaned text. It never errors: malformed input just sanitizes to the best
// of the regex passes' ability.
func Sanitize(raw string) string {
	if len(raw) == 0 {
		return ""
	}
	if len(raw) > largeInputThreshold {
		return Chunked(raw)
	}
	return sanitizeOnce(raw)
}

// Chunked sanitizes raw in 1 MiB byte-aligned windows snapped to the next
// newline, concatenating results. It yields to the Go scheduler
// (runtime.Gosched) between chunks; logging.StartTimer records how long
// the whole pass took.
func Chunked(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	timer := logging.StartTimer(logging.CategorySanitize, "chunked-sanitize")
	defer timer.Stop()

	for start := 0; start < len(raw); {
		end := start + chunkSize
		if end >= len(raw) {
			end = len(raw)
		} else {
			if nl := strings.IndexByte(raw[end:], '\n'); nl >= 0 {
				end += nl + 1
			} else {
				end = len(raw)
			}
		}
		b.WriteString(sanitizeOnce(raw[start:end]))
		b.WriteByte('\n')
		start = end
		runtime.Gosched()
	}
	return strings.TrimSpace(runsOfNewlines.ReplaceAllString(b.String(), "\n\n"))
}

func sanitizeOnce(raw string) string {
	s := raw

	// 1. Strip BOM, null/replacement runes; normalize CRLF (incl. the
	// literal two-character escape some upstream JSON encoders leave in).
	s = strings.ReplaceAll(s, bomRune, "")
	s = nullOrReplacement.ReplaceAllString(s, "")
	s = crlf.ReplaceAllString(s, "\n")

	// 2. Remove log spam, bracketed timestamps, progress bars.
	s = logSpamLine.ReplaceAllString(s, "")
	s = bracketTimestamp.ReplaceAllString(s, "")
	s = progressBar.ReplaceAllString(s, "")

	// 3. Redact PII.
	s = emailPattern.ReplaceAllString(s, "[EMAIL_REDACTED]")
	s = ipv4Pattern.ReplaceAllString(s, "[IP_REDACTED]")
	s = skTokenPattern.ReplaceAllString(s, "sk-[REDACTED]")

	// 4. Metadata headers and LLM role markers.
	s = metadataHeader.ReplaceAllString(s, "")
	s = llmRoleMarker.ReplaceAllString(s, "")

	// 5. Drop metadata wrapper keys entirely (key and value, plus the
	// comma that joined them to a neighboring pair), unwrap content
	// wrapper keys without removing the string bodies they hold, then
	// collapse the punctuation the unwrap leaves behind.
	s = jsonMetadataPairPattern.ReplaceAllString(s, "")
	s = jsonContentKeyPattern.ReplaceAllString(s, "")
	s = bareCommaNewline.ReplaceAllString(s, "\n")
	s = bareCloseBrace.ReplaceAllString(s, "")
	s = bareOpenBrace.ReplaceAllString(s, "")

	// 6. Collapse blank-line runs and trim.
	s = runsOfNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
