package filter

import (
	"regexp"
	"strings"
	"time"
)

var layouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

// "Aug. 18, 2025" and "Sept 3, 2025" as listing pages print them
var monthAbbrev = regexp.MustCompile(`^([A-Za-z]{3,4})\.?\s+`)

// ParseDate resolves an absolute posting date. Relative phrases such as
// "3 days ago" or "today" and anything unrecognised report ok=false, which
// callers treat as unknown.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}, false
	}

	s = monthAbbrev.ReplaceAllStringFunc(s, func(m string) string {
		word := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m), "."))
		if strings.EqualFold(word, "sept") {
			word = "Sep"
		}
		return word + " "
	})

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
