package parser

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	unitWan = "万" // 10^4
	unitYi  = "亿" // 10^8
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseHeat converts localized heat text such as "1.2万" or "3亿热度" into a count.
// The second return value is false when the text carries no number.
func ParseHeat(raw string) (int64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}

	match := numberRe.FindString(text)
	if match == "" {
		return 0, false
	}

	number, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	switch {
	case strings.Contains(text, unitWan):
		number *= 1e4
	case strings.Contains(text, unitYi):
		number *= 1e8
	}

	return int64(number), true
}

// parseHeatPtr is ParseHeat shaped for HotItem.Heat.
func parseHeatPtr(raw string) *int64 {
	v, ok := ParseHeat(raw)
	if !ok {
		return nil
	}
	return &v
}
