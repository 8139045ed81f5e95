// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMaxSuggestions is used when SuggestCorrections gets max <= 0.
const DefaultMaxSuggestions = 3

type typo struct {
	re    *regexp.Regexp
	right string
}

func newTypo(wrong, right string) typo {
	return typo{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(wrong) + `\b`), right: right}
}

// typos are common misspellings, applied in order to whole words.
var typos = []typo{
	newTypo("callle", "calle"),
	newTypo("avenída", "avenida"),
	newTypo("avendia", "avenida"),
	newTypo("plasa", "plaza"),
	newTypo("carrrera", "carrera"),
	newTypo("stret", "street"),
	newTypo("streat", "street"),
	newTypo("avenu", "avenue"),
	newTypo("boulvard", "boulevard"),
}

// SuggestCorrections proposes up to max rewrites of address: one per typo
// fixed (cumulative) followed by the Spanish normalized form when it differs.
func SuggestCorrections(address string, max int) []string {
	if strings.TrimSpace(address) == "" {
		return nil
	}

	if max <= 0 {
		max = DefaultMaxSuggestions
	}

	title := cases.Title(language.Und)

	var suggestions []string

	corrected := strings.ToLower(address)

	for _, t := range typos {
		if !t.re.MatchString(corrected) {
			continue
		}

		corrected = t.re.ReplaceAllLiteralString(corrected, t.right)
		suggestions = append(suggestions, title.String(corrected))
	}

	if normalized := NormalizeFormat(address, "es"); normalized != address && !slices.Contains(suggestions, normalized) {
		suggestions = append(suggestions, normalized)
	}

	if len(suggestions) > max {
		suggestions = suggestions[:max]
	}

	return suggestions
}
