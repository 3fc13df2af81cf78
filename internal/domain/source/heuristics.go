package source

import (
	"regexp"
	"strings"
)

var (
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bremote\b`),
		regexp.MustCompile(`[A-Z][a-z]+,\s*[A-Z]{2}\b`),
		regexp.MustCompile(`(?i)united states`),
		regexp.MustCompile(`^[A-Z]{2,3}\s+-\s+`),
		regexp.MustCompile(`[A-Z][a-z]+\s*--\s*\[`),
	}
	listingDate = regexp.MustCompile(`^[A-Z][a-z]+\.?\s+\d{1,2},\s+\d{4}$`)
)

// LooksLikeLocation guesses whether a text run on a listing card is a location
func LooksLikeLocation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 120 {
		return false
	}
	for _, re := range locationPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// LooksLikeDate matches listing dates such as "Aug. 18, 2025"
func LooksLikeDate(s string) bool {
	return listingDate.MatchString(strings.TrimSpace(s))
}

// Slug lowercases s and strips spaces, for source labels like "talentbrew:amgen"
func Slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
