package split

import "regexp"

// fencedBlock matches a ``` ... ``` span, including its fences.
var fencedBlock = regexp.MustCompile("(?s)```.*?```")

// sentenceBoundary matches a sentence terminator followed by whitespace and
// an uppercase letter. RE2 has no lookahead, so the uppercase letter is
// captured in the match; callers must trim the match's last byte (the
// letter) back off before using it as a split point.
var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+[A-Z]`)

// splitProse partitions content around fenced code blocks, re-typing fenced
// spans as code molecules, and sentence-splits the remaining prose spans.
func splitProse(content string) []Fragment {
	var fragments []Fragment

	locs := fencedBlock.FindAllStringIndex(content, -1)
	cursor := 0
	for _, loc := range locs {
		if loc[0] > cursor {
			fragments = append(fragments, splitSentences(content[cursor:loc[0]], cursor)...)
		}
		fragments = append(fragments, Fragment{
			Content:   content[loc[0]:loc[1]],
			StartByte: loc[0],
			EndByte:   loc[1],
			Type:      TypeCode,
		})
		cursor = loc[1]
	}
	if cursor < len(content) {
		fragments = append(fragments, splitSentences(content[cursor:], cursor)...)
	}

	return fragments
}

// splitSentences splits a prose span on sentence boundaries, offsetting
// byte positions by base so they remain exact against the outer content.
func splitSentences(span string, base int) []Fragment {
	var fragments []Fragment
	cursor := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(span, -1) {
		end := loc[1] - 1 // exclude the captured uppercase letter
		piece := span[cursor:end]
		if trimmed := trimSpan(piece); trimmed.content != "" {
			fragments = append(fragments, Fragment{
				Content:   trimmed.content,
				StartByte: base + cursor + trimmed.leadTrim,
				EndByte:   base + end - trimmed.trailTrim,
				Type:      TypeProse,
			})
		}
		cursor = end
	}
	if cursor < len(span) {
		if trimmed := trimSpan(span[cursor:]); trimmed.content != "" {
			fragments = append(fragments, Fragment{
				Content:   trimmed.content,
				StartByte: base + cursor + trimmed.leadTrim,
				EndByte:   base + len(span) - trimmed.trailTrim,
				Type:      TypeProse,
			})
		}
	}
	return fragments
}

type trimmedSpan struct {
	content            string
	leadTrim, trailTrim int
}

// trimSpan strips leading/trailing whitespace from s, tracking how many
// bytes were dropped on each side so callers can keep offsets exact: a
// fragment's content must always equal content[StartByte:EndByte].
func trimSpan(s string) trimmedSpan {
	lead := 0
	for lead < len(s) && isSpace(s[lead]) {
		lead++
	}
	trail := 0
	for trail < len(s)-lead && isSpace(s[len(s)-1-trail]) {
		trail++
	}
	if lead+trail >= len(s) {
		return trimmedSpan{}
	}
	return trimmedSpan{content: s[lead : len(s)-trail], leadTrim: lead, trailTrim: trail}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
