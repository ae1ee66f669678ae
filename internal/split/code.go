package split

import "strings"

// splitCode walks lines tracking brace depth, emitting a molecule whenever
// the root depth closes a top-level block or a blank line occurs at root
// depth. Go sources are instead routed through SplitGoSource (see
// SplitWithPath), which uses tree-sitter's exact declaration boundaries;
// this heuristic is the fallback for every other language and for Go
// sources that fail to parse.
func splitCode(content string) []Fragment {
	var fragments []Fragment

	depth := 0
	segStart := 0
	lineStart := 0
	lines := strings.SplitAfter(content, "\n")

	flush := func(end int) {
		if end > segStart {
			seg := content[segStart:end]
			if strings.TrimSpace(seg) != "" {
				fragments = append(fragments, Fragment{
					Content:   seg,
					StartByte: segStart,
					EndByte:   end,
					Type:      TypeCode,
				})
			}
		}
		segStart = end
	}

	for _, line := range lines {
		lineEnd := lineStart + len(line)
		trimmed := strings.TrimSpace(line)

		for _, r := range line {
			switch r {
			case '{', '(', '[':
				depth++
			case '}', ')', ']':
				if depth > 0 {
					depth--
				}
			}
		}

		if depth == 0 && trimmed == "" {
			flush(lineEnd)
		} else if depth == 0 && (strings.HasSuffix(trimmed, "}") || strings.HasSuffix(trimmed, "};")) {
			flush(lineEnd)
		}

		lineStart = lineEnd
	}
	flush(len(content))

	if len(fragments) == 0 && len(content) > 0 {
		fragments = append(fragments, Fragment{Content: content, StartByte: 0, EndByte: len(content), Type: TypeCode})
	}
	return fragments
}
