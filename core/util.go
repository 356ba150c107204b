package core

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

var (
	NowFunc = time.Now // mockable

	textPolicy = bluemonday.StrictPolicy()
)

// Now returns the current UTC time truncated to the precision both database engines keep.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanText strips any markup from user supplied free text (descriptions, notes...).
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
