// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"regexp"
	"strings"
)

type postalPattern struct {
	country string
	re      *regexp.Regexp
}

// postalPatterns is ordered: without a country the first match wins.
var postalPatterns = []postalPattern{
	{"ES", regexp.MustCompile(`^\d{5}$`)},
	{"US", regexp.MustCompile(`^\d{5}(-\d{4})?$`)},
	{"CA", regexp.MustCompile(`^[A-Z]\d[A-Z]\s?\d[A-Z]\d$`)},
	{"MX", regexp.MustCompile(`^\d{5}$`)},
	{"GB", regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}$`)},
	{"FR", regexp.MustCompile(`^\d{5}$`)},
	{"DE", regexp.MustCompile(`^\d{5}$`)},
	{"IT", regexp.MustCompile(`^\d{5}$`)},
	{"BR", regexp.MustCompile(`^\d{5}-?\d{3}$`)},
	{"AR", regexp.MustCompile(`^[A-Z]?\d{4}[A-Z]{3}$|^\d{4}$`)},
	{"CO", regexp.MustCompile(`^\d{6}$`)},
}

// Reasons reported by ValidatePostalCode.
const (
	ReasonEmpty      = "empty_postal_code"
	ReasonNoMatch    = "no_pattern_match"
	ReasonBadPattern = "pattern_mismatch"
)

// PostalValidation is the result of ValidatePostalCode.
type PostalValidation struct {
	Valid bool `json:"is_valid"`

	// Code is the trimmed, upper-cased input.
	Code string `json:"cleaned_postal_code,omitempty"`

	// CountryCode is set when the caller supplied a known country.
	CountryCode string `json:"country_code,omitempty"`

	// PossibleCountry is the first country whose pattern matched when no
	// country was supplied.
	PossibleCountry string `json:"possible_country,omitempty"`

	Pattern string `json:"pattern,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SupportedPostalCountries lists the countries with a known pattern, in match order.
func SupportedPostalCountries() []string {
	out := make([]string, len(postalPatterns))
	for i, p := range postalPatterns {
		out[i] = p.country
	}

	return out
}

// ValidatePostalCode checks code against the pattern of country. When country
// is empty or unknown every pattern is tried in order.
func ValidatePostalCode(code, country string) PostalValidation {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PostalValidation{Reason: ReasonEmpty}
	}

	country = strings.ToUpper(strings.TrimSpace(country))

	for _, p := range postalPatterns {
		if p.country != country {
			continue
		}

		v := PostalValidation{
			Valid:       p.re.MatchString(code),
			Code:        code,
			CountryCode: country,
			Pattern:     p.re.String(),
		}
		if !v.Valid {
			v.Reason = ReasonBadPattern
		}

		return v
	}

	for _, p := range postalPatterns {
		if p.re.MatchString(code) {
			return PostalValidation{
				Valid:           true,
				Code:            code,
				PossibleCountry: p.country,
				Pattern:         p.re.String(),
			}
		}
	}

	return PostalValidation{Code: code, Reason: ReasonNoMatch}
}
