package atomize

import (
	"regexp"
	"strconv"
	"time"
)

var (
	isoTimestampPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?\b`)
	plainDatePattern    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	usDatePattern       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDayYearPattern = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)
	dayMonthYearPattern = regexp.MustCompile(`\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)
)

var monthByName = map[string]time.Month{
	"January": time.January, "February": time.February, "March": time.March,
	"April": time.April, "May": time.May, "June": time.June,
	"July": time.July, "August": time.August, "September": time.September,
	"October": time.October, "November": time.November, "December": time.December,
}

// extractTimestamp returns the first in-content timestamp found in content,
// trying each recognized format in order, or ok=false if none match.
func extractTimestamp(content string) (unixMilli int64, ok bool) {
	if m := isoTimestampPattern.FindString(content); m != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, m); err == nil {
				return t.UnixMilli(), true
			}
		}
	}
	if m := plainDatePattern.FindString(content); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t.UnixMilli(), true
		}
	}
	if m := usDatePattern.FindStringSubmatch(content); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).UnixMilli(), true
		}
	}
	if m := monthDayYearPattern.FindStringSubmatch(content); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, monthByName[m[1]], day, 0, 0, 0, 0, time.UTC).UnixMilli(), true
	}
	if m := dayMonthYearPattern.FindStringSubmatch(content); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, monthByName[m[2]], day, 0, 0, 0, 0, time.UTC).UnixMilli(), true
	}
	return 0, false
}
