package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

var (
	isoDayPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	cjkDayPattern = regexp.MustCompile(`(\d{4})\s*[年/.\-]\s*(\d{1,2})\s*[月/.\-]\s*(\d{1,2})`)
)

// NormalizeDay reduces a date or timestamp string to calendar-day text
// (YYYY-MM-DD) as written, without converting time zones. Unrecognized
// input is returned trimmed.
func NormalizeDay(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if m := isoDayPattern.FindStringSubmatch(raw); m != nil {
		if day, ok := formatDay(m[1], m[2], m[3]); ok {
			return day
		}
	}
	if m := cjkDayPattern.FindStringSubmatch(raw); m != nil {
		if day, ok := formatDay(m[1], m[2], m[3]); ok {
			return day
		}
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		return t.Format("2006-01-02")
	}
	return raw
}

func formatDay(y, m, d string) (string, bool) {
	year, err := strconv.Atoi(y)
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	day, err := strconv.Atoi(d)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
