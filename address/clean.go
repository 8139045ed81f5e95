// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package address post-processes address strings: symbol cleaning, diacritic
// folding, abbreviation normalization, completeness heuristics, postal code
// validation and enrichment through a geocoding provider.
package address

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	"github.com/geobatch/geobatch/utils/textutils"
	"golang.org/x/text/unicode/norm"
)

// Level selects how destructive cleaning is.
type Level int

const (
	// LevelNone leaves text untouched.
	LevelNone Level = iota
	// LevelConservative strips DefaultSymbols and collapses whitespace.
	LevelConservative
	// LevelAggressive also folds accented Latin characters.
	LevelAggressive
)

// LevelFromFlags maps the --clean/--aggressive pair to a Level. Aggressive
// only takes effect together with clean.
func LevelFromFlags(clean, aggressive bool) Level {
	switch {
	case !clean:
		return LevelNone
	case aggressive:
		return LevelAggressive
	default:
		return LevelConservative
	}
}

// ParseLevel is the inverse of Level.String. An empty string is LevelConservative.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LevelNone, nil
	case "", "conservative":
		return LevelConservative, nil
	case "aggressive":
		return LevelAggressive, nil
	default:
		return LevelNone, fmt.Errorf("unknown cleaning level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelConservative:
		return "conservative"
	case LevelAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// DefaultSymbols are removed at every cleaning level.
const DefaultSymbols = "?¿!¡@#$%^&*()_+=<>{}[]|\\/:;\"'`~"

// DefaultFoldTable maps accented Latin characters to their unaccented form.
var DefaultFoldTable = map[rune]string{
	'á': "a", 'é': "e", 'í': "i", 'ó': "o", 'ú': "u",
	'à': "a", 'è': "e", 'ì': "i", 'ò': "o", 'ù': "u",
	'ä': "a", 'ë': "e", 'ï': "i", 'ö': "o", 'ü': "u",
	'â': "a", 'ê': "e", 'î': "i", 'ô': "o", 'û': "u",
	'ã': "a", 'ẽ': "e", 'ĩ': "i", 'õ': "o", 'ũ': "u",
	'ñ': "n", 'ç': "c", 'ß': "ss",

	'Á': "A", 'É': "E", 'Í': "I", 'Ó': "O", 'Ú': "U",
	'À': "A", 'È': "E", 'Ì': "I", 'Ò': "O", 'Ù': "U",
	'Ä': "A", 'Ë': "E", 'Ï': "I", 'Ö': "O", 'Ü': "U",
	'Â': "A", 'Ê': "E", 'Î': "I", 'Ô': "O", 'Û': "U",
	'Ã': "A", 'Ẽ': "E", 'Ĩ': "I", 'Õ': "O", 'Ũ': "U",
	'Ñ': "N", 'Ç': "C", 'ẞ': "SS",
}

// Cleaner removes symbols and optionally folds diacritics.
type Cleaner struct {
	Level     Level
	Symbols   string
	FoldTable map[rune]string
}

// NewCleaner returns a Cleaner with the default symbol set and fold table.
func NewCleaner(level Level) *Cleaner {
	return &Cleaner{
		Level:     level,
		Symbols:   DefaultSymbols,
		FoldTable: maps.Clone(DefaultFoldTable),
	}
}

// Enabled reports whether Clean changes anything.
func (c *Cleaner) Enabled() bool {
	return c != nil && c.Level > LevelNone
}

// Clean applies the configured level to s. A nil Cleaner returns s unchanged.
// The result is in NFC and Clean(Clean(s)) == Clean(s).
func (c *Cleaner) Clean(s string) string {
	if !c.Enabled() || s == "" {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if !strings.ContainsRune(c.Symbols, r) {
			b.WriteRune(r)
		}
	}

	// composed after filtering: "a!" + U+0301 becomes 'á' only once '!' is gone
	s = norm.NFC.String(b.String())

	if c.Level >= LevelAggressive {
		s = c.fold(s)
	}

	return textutils.CollapseSpaces(s)
}

// fold maps s through FoldTable and drops combining marks left without a
// precomposed form.
func (c *Cleaner) fold(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if folded, ok := c.FoldTable[r]; ok {
			b.WriteString(folded)

			continue
		}

		if unicode.Is(unicode.Mn, r) {
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// CleanComponents cleans every value of m in place.
func (c *Cleaner) CleanComponents(m map[string]string) {
	if !c.Enabled() {
		return
	}

	for k, v := range m {
		m[k] = c.Clean(v)
	}
}
