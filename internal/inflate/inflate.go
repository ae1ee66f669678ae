// Package inflate implements the Context Inflator: it takes the
// searcher's scored, deduplicated compound hits and reassembles them
// into bounded text spans a downstream caller can consume directly,
// reading the underlying bytes back out of the store.
package inflate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/search"
	"github.com/rsbalchii/anchoros/internal/store"
)

const (
	mergeThresholdBytes = 200
	perSpanCharCap      = 1024
)

// Fragment is one expanded, merged span of a compound's body, ready for
// the caller.
type Fragment struct {
	CompoundID         string
	Path               string
	Bucket             string
	Provenance         model.Provenance
	TimestampUnixMilli int64
	Score              float64
	Content            string
}

type span struct {
	start, end int
}

// Inflate expands results into Fragments, reading compound bodies
// through st, and returns the concatenated context string truncated to
// maxChars (or cfg.SearchDefaultMaxChars when maxChars <= 0) alongside
// the per-result fragments in the same order as results.
func Inflate(ctx context.Context, st *store.Store, cfg config.Config, results []search.Result, terms []string, maxChars int) (string, []Fragment, error) {
	if maxChars <= 0 {
		maxChars = cfg.SearchDefaultMaxChars
	}

	fragments := make([]Fragment, 0, len(results))
	remaining := maxChars

	for _, r := range results {
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return "", fragments, err
		}

		spans, err := candidateSpans(ctx, st, r.CompoundID, terms)
		if err != nil {
			return "", fragments, fmt.Errorf("candidate spans for %s: %w", r.CompoundID, err)
		}

		bodyLen, err := compoundLen(ctx, st, r.CompoundID)
		if err != nil {
			return "", fragments, fmt.Errorf("compound length for %s: %w", r.CompoundID, err)
		}

		merged := mergeSpans(spans, mergeThresholdBytes)
		expanded := expandSpans(merged, bodyLen, perSpanCharCap)

		content, err := readSpans(ctx, st, r.CompoundID, expanded, remaining)
		if err != nil {
			return "", fragments, fmt.Errorf("read spans for %s: %w", r.CompoundID, err)
		}
		if content == "" {
			continue
		}

		fragments = append(fragments, Fragment{
			CompoundID:         r.CompoundID,
			Path:               r.Path,
			Bucket:             r.Bucket,
			Provenance:         r.Provenance,
			TimestampUnixMilli: r.TimestampUnixMilli,
			Score:              r.Score,
			Content:            content,
		})
		remaining -= len(content)
	}

	var sb strings.Builder
	for i, f := range fragments {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(f.Content)
	}
	full := sb.String()
	if len(full) > maxChars {
		full = full[:maxChars]
	}
	return full, fragments, nil
}

// candidateSpans turns a compound's atom-position matches for terms
// into seed spans that start at each byte offset and are as wide as the
// label, one per occurrence.
func candidateSpans(ctx context.Context, st *store.Store, compoundID string, terms []string) ([]span, error) {
	if len(terms) == 0 {
		return []span{{start: 0, end: 0}}, nil
	}
	labels := make([]string, len(terms))
	for i, t := range terms {
		if strings.HasPrefix(t, "#") {
			labels[i] = t
		} else {
			labels[i] = "#" + t
		}
	}
	positions, err := st.PositionsFor(ctx, compoundID, labels)
	if err != nil {
		return nil, err
	}
	var spans []span
	for label, offsets := range positions {
		width := len(label)
		for _, off := range offsets {
			spans = append(spans, span{start: off, end: off + width})
		}
	}
	if len(spans) == 0 {
		// No tag-position evidence (e.g. a walk-only result): fall back to
		// the start of the body so it still contributes some context.
		spans = append(spans, span{start: 0, end: 0})
	}
	return spans, nil
}

func compoundLen(ctx context.Context, st *store.Store, compoundID string) (int, error) {
	body, err := st.ReadCompoundBody(ctx, compoundID, 0, 1<<30)
	if err != nil {
		return 0, err
	}
	return len(body), nil
}

// mergeSpans sorts spans by start and merges adjacent ones whose gap is
// within threshold bytes.
func mergeSpans(spans []span, threshold int) []span {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	merged := []span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.start-last.end <= threshold {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// expandSpans grows each merged span outward equally on both sides until
// the per-span char cap is hit or a compound boundary (0 or bodyLen) is
// reached.
func expandSpans(spans []span, bodyLen, cap int) []span {
	out := make([]span, len(spans))
	for i, s := range spans {
		width := s.end - s.start
		budget := cap - width
		if budget < 0 {
			budget = 0
		}
		left := budget / 2
		right := budget - left

		start := s.start - left
		end := s.end + right
		if start < 0 {
			end += -start
			start = 0
		}
		if end > bodyLen {
			start -= end - bodyLen
			end = bodyLen
		}
		if start < 0 {
			start = 0
		}
		out[i] = span{start: start, end: end}
	}
	return out
}

// readSpans reads each expanded span's bytes back from the store,
// joining them, and stops once the compound's own share of the global
// budget is exhausted.
func readSpans(ctx context.Context, st *store.Store, compoundID string, spans []span, budget int) (string, error) {
	var sb strings.Builder
	for _, s := range spans {
		if budget <= 0 {
			break
		}
		text, err := st.ReadCompoundBody(ctx, compoundID, s.start, s.end)
		if err != nil {
			return "", err
		}
		if len(text) > budget {
			text = text[:budget]
		}
		if sb.Len() > 0 {
			sb.WriteString(" [...] ")
		}
		sb.WriteString(text)
		budget -= len(text)
	}
	return sb.String(), nil
}
