// Package cleaning canonicalizes free-text tag values: street names, phone
// numbers and postal codes.
//
// Every normalizer is total. Phone and postcode normalizers report values they
// do not recognize with a false second result instead of an error.
package cleaning

import (
	"regexp"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"osm-ingest/rules"
)

// StreetNormalizer rewrites a street name into its canonical form.
type StreetNormalizer interface {
	Normalize(name string) string
}

// Adjacent abbreviations share a separator, so a single regexp pass expands
// every other one. Expansions never contain an abbreviation with the default
// tables; the bound keeps custom tables from looping.
const maxDirectionPasses = 4

type directionRule struct {
	inner   *regexp.Regexp
	leading *regexp.Regexp
	spaced  string
	prefix  string
}

type suffixRule struct {
	re          *regexp.Regexp
	replacement string
}

// Street applies the rule tables in three stages: diacritic folding, direction
// expansion, street type expansion.
type Street struct {
	folding    map[rune]rune
	directions []directionRule
	suffixes   []suffixRule
}

// NewStreet compiles r. Later changes to r do not affect the returned value.
func NewStreet(r rules.Rules) *Street {
	s := &Street{folding: r.Folding()}

	for _, d := range r.Directions {
		quoted := regexp.QuoteMeta(d.From)
		s.directions = append(s.directions, directionRule{
			inner:   regexp.MustCompile(`(?i)\s` + quoted + `\s`),
			leading: regexp.MustCompile(`(?i)^` + quoted + `\s`),
			spaced:  " " + d.To + " ",
			prefix:  d.To + " ",
		})
	}

	for _, t := range r.StreetTypes {
		s.suffixes = append(s.suffixes, suffixRule{
			re:          regexp.MustCompile(`(?i)\s` + regexp.QuoteMeta(t.From) + `$`),
			replacement: " " + t.To,
		})
	}

	return s
}

func (s *Street) Normalize(name string) string {
	name = s.fold(name)
	name = s.expandDirections(name)
	return s.expandSuffix(name)
}

func (s *Street) fold(name string) string {
	folded, _, err := transform.String(runes.Map(s.foldRune), name)
	if err != nil {
		return name
	}
	return folded
}

func (s *Street) foldRune(r rune) rune {
	if to, ok := s.folding[r]; ok {
		return to
	}
	return r
}

func (s *Street) expandDirections(name string) string {
	for _, d := range s.directions {
		for i := 0; i < maxDirectionPasses; i++ {
			next := d.inner.ReplaceAllLiteralString(name, d.spaced)
			if next == name {
				break
			}
			name = next
		}
		name = d.leading.ReplaceAllLiteralString(name, d.prefix)
	}
	return name
}

func (s *Street) expandSuffix(name string) string {
	for _, sfx := range s.suffixes {
		if sfx.re.MatchString(name) {
			return sfx.re.ReplaceAllLiteralString(name, sfx.replacement)
		}
	}
	return name
}
