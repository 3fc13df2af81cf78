package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Careers.ACME.com/jobs/1", "https://careers.acme.com/jobs/1"},
		{"keeps path case", "https://acme.com/Jobs/SeniorScientist", "https://acme.com/Jobs/SeniorScientist"},
		{"strips trailing slash", "https://acme.com/jobs/1/", "https://acme.com/jobs/1"},
		{"strips root slash", "https://acme.com/", "https://acme.com"},
		{"drops utm params", "https://acme.com/j?utm_source=x&utm_Medium=y", "https://acme.com/j"},
		{"drops source and ref", "https://acme.com/j?id=7&source=li&REF=abc", "https://acme.com/j?id=7"},
		{"keeps param order", "https://acme.com/j?b=2&utm_term=z&a=1", "https://acme.com/j?b=2&a=1"},
		{"drops fragment", "https://acme.com/j#apply", "https://acme.com/j"},
		{"trims whitespace", "  https://acme.com/j  ", "https://acme.com/j"},
		{"relative path", "/jobs/1/?utm_source=x", "/jobs/1"},
		{"relative keeps params", "/jobs/1/?id=7&ref=a#top", "/jobs/1?id=7"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeURL(got), "normalization must be idempotent")
		})
	}
}

func TestNormalizeURLEquivalentSpellings(t *testing.T) {
	a := NormalizeURL("https://boards.greenhouse.io/acme/jobs/123?utm_campaign=feed")
	b := NormalizeURL("https://BOARDS.greenhouse.io/acme/jobs/123/")
	assert.Equal(t, a, b)
}

func TestHost(t *testing.T) {
	assert.Equal(t, "acme.wd5.myworkdayjobs.com", Host("https://ACME.wd5.myworkdayjobs.com:443/x"))
	assert.Equal(t, "", Host("not a url"))
}
