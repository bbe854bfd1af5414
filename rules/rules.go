// Package rules loads the lookup tables used to canonicalize OSM tag values.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultYAML []byte

var (
	ErrNoDirections      = errors.New("rules: at least one direction is required")
	ErrNoStreetTypes     = errors.New("rules: at least one street type is required")
	ErrInvalidDiacritic  = errors.New("rules: diacritic entries must map one rune to one rune")
	ErrEmptyAbbreviation = errors.New("rules: abbreviation and expansion must be non-empty")
)

// Abbreviation maps a short form to its spelled out expansion.
type Abbreviation struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rules is the full set of tables. Order matters for Directions and StreetTypes:
// they are tried in the order listed.
type Rules struct {
	Diacritics          map[string]string `yaml:"diacritics"`
	Directions          []Abbreviation    `yaml:"directions"`
	StreetTypes         []Abbreviation    `yaml:"street_types"`
	ExpectedStreetTypes []string          `yaml:"expected_street_types"`
}

// Default returns the tables embedded in the binary.
func Default() (Rules, error) {
	return Parse(defaultYAML)
}

// MustDefault is like Default but panics on error.
func MustDefault() Rules {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads tables from a YAML file.
func Load(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	for from, to := range r.Diacritics {
		if utf8.RuneCountInString(from) != 1 || utf8.RuneCountInString(to) != 1 {
			return fmt.Errorf("%w: %q -> %q", ErrInvalidDiacritic, from, to)
		}
	}

	if len(r.Directions) == 0 {
		return ErrNoDirections
	}
	if len(r.StreetTypes) == 0 {
		return ErrNoStreetTypes
	}

	for i, a := range r.Directions {
		if a.From == "" || a.To == "" {
			return fmt.Errorf("%w: directions[%d]", ErrEmptyAbbreviation, i)
		}
	}
	for i, a := range r.StreetTypes {
		if a.From == "" || a.To == "" {
			return fmt.Errorf("%w: street_types[%d]", ErrEmptyAbbreviation, i)
		}
	}

	return nil
}

// Folding returns a fresh rune-to-rune copy of the diacritic table.
func (r Rules) Folding() map[rune]rune {
	out := make(map[rune]rune, len(r.Diacritics))
	for from, to := range r.Diacritics {
		f, _ := utf8.DecodeRuneInString(from)
		t, _ := utf8.DecodeRuneInString(to)
		out[f] = t
	}
	return out
}

// IsExpectedStreetType reports whether typ is one of the canonical street types.
func (r Rules) IsExpectedStreetType(typ string) bool {
	for _, e := range r.ExpectedStreetTypes {
		if e == typ {
			return true
		}
	}
	return false
}
