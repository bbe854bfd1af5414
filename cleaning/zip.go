package cleaning

import (
	"regexp"
	"strings"
)

var (
	zipJunk  = regexp.MustCompile(`^\D*|[a-zA-Z]`)
	zipShape = regexp.MustCompile(`^\d{5}(?:[-\s]?\d{4})?$`)
	nonDigit = regexp.MustCompile(`\D`)
)

// Disneyland is tagged by name instead of code often enough to special-case.
const disneylandZip = "92802"

// Zip returns a five digit code or a ZIP+4 code formatted as #####-####.
func Zip(raw string) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(raw), "disneyland") {
		return disneylandZip, true
	}

	s := zipJunk.ReplaceAllString(raw, "")
	if !zipShape.MatchString(s) {
		return "", false
	}

	digits := nonDigit.ReplaceAllString(s, "")
	switch len(digits) {
	case 5:
		return digits, true
	case 9:
		return digits[:5] + "-" + digits[5:], true
	default:
		return "", false
	}
}
