package split

import "strings"

// splitData emits one molecule per non-empty line.
func splitData(content string) []Fragment {
	var fragments []Fragment
	lines := strings.SplitAfter(content, "\n")
	cursor := 0
	for _, line := range lines {
		end := cursor + len(line)
		if strings.TrimSpace(line) != "" {
			fragments = append(fragments, Fragment{
				Content:   line,
				StartByte: cursor,
				EndByte:   end,
				Type:      TypeData,
			})
		}
		cursor = end
	}
	return fragments
}
