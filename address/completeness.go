// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"regexp"
	"strings"
)

// Address components checked by DetectIncomplete.
const (
	ComponentAddress      = "address"
	ComponentStreetNumber = "street_number"
	ComponentStreetName   = "street_name"
	ComponentCity         = "city"
	ComponentPostalCode   = "postal_code"
)

var (
	streetNumberRe = regexp.MustCompile(`\d+`)
	streetNameRe   = regexp.MustCompile(`(calle|avenida|street|avenue|road|drive|c/|av|st|rd)`)
	postalCodeRe   = regexp.MustCompile(`\b\d{5}(-\d{4})?\b|\b[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)
)

// Completeness is the result of DetectIncomplete.
type Completeness struct {
	IsComplete bool            `json:"is_complete"`
	Missing    []string        `json:"missing_components"`
	Confidence float64         `json:"confidence"`
	Found      map[string]bool `json:"components_found,omitempty"`
}

// DetectIncomplete guesses which components a free-text address lacks.
// Confidence is the fraction of the four components found.
func DetectIncomplete(address string) Completeness {
	if strings.TrimSpace(address) == "" {
		return Completeness{Missing: []string{ComponentAddress}}
	}

	found := map[string]bool{
		ComponentStreetNumber: streetNumberRe.MatchString(address),
		ComponentStreetName:   streetNameRe.MatchString(strings.ToLower(address)),
		ComponentCity:         len(strings.Split(address, ",")) > 1,
		ComponentPostalCode:   postalCodeRe.MatchString(address),
	}

	var missing []string

	for _, c := range []string{ComponentStreetNumber, ComponentStreetName, ComponentCity, ComponentPostalCode} {
		if !found[c] {
			missing = append(missing, c)
		}
	}

	return Completeness{
		IsComplete: len(missing) == 0,
		Missing:    missing,
		Confidence: float64(len(found)-len(missing)) / float64(len(found)),
		Found:      found,
	}
}
