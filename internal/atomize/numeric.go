package atomize

import (
	"regexp"
	"strconv"
	"strings"
)

var numericPattern = regexp.MustCompile(`([\d,]+\.?\d*)\s?([A-Za-z%]+)?`)

const (
	minPlausibleYear = 1900
	maxPlausibleYear = 2100
)

// extractNumeric returns the first plausible numeric value/unit pair in
// content, preferring candidates that carry a unit and discarding bare
// integer years (which are almost always dates, not measurements).
func extractNumeric(content string) (value float64, unit string, ok bool) {
	matches := numericPattern.FindAllStringSubmatch(content, -1)
	var bestValue float64
	var bestUnit string
	found := false

	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		unit := m[2]
		if unit == "" && v >= minPlausibleYear && v <= maxPlausibleYear && raw == m[1] && !strings.Contains(m[1], ".") {
			continue
		}
		if unit != "" {
			return v, unit, true
		}
		if !found {
			bestValue, bestUnit, found = v, unit, true
		}
	}
	return bestValue, bestUnit, found
}
