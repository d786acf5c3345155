package utils

import (
	"regexp"
	"strings"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the input, converts every run of non-alphanumeric
// characters to a single hyphen, and trims leading/trailing hyphens.
// "Belajar Next.js" becomes "belajar-next-js".
func Slugify(input string) string {
	s := strings.ToLower(input)
	s = slugSeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
