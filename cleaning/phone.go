package cleaning

import "strings"

// Phone reduces a phone number to its ten national digits. A leading US
// country code is dropped. The second result is false when the input does not
// hold exactly ten digits after that.
func Phone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}
