// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIncomplete(t *testing.T) {
	tests := []struct {
		name           string
		in             string
		wantComplete   bool
		wantMissing    []string
		wantConfidence float64
	}{
		{
			name:           "complete spanish address",
			in:             "Calle Alcalá 17, 28014 Madrid",
			wantComplete:   true,
			wantConfidence: 1,
		},
		{
			name:           "canadian postal code",
			in:             "24 Sussex Drive, Ottawa K1M 1M4",
			wantComplete:   true,
			wantConfidence: 1,
		},
		{
			name:           "street only",
			in:             "Calle Mayor",
			wantMissing:    []string{ComponentStreetNumber, ComponentCity, ComponentPostalCode},
			wantConfidence: 0.25,
		},
		{
			name:           "number and city",
			in:             "Gran Vía 1, Madrid",
			wantMissing:    []string{ComponentStreetName, ComponentPostalCode},
			wantConfidence: 0.5,
		},
		{
			name:        "empty",
			in:          "  ",
			wantMissing: []string{ComponentAddress},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectIncomplete(tt.in)
			assert.Equal(t, tt.wantComplete, got.IsComplete)
			assert.Equal(t, tt.wantMissing, got.Missing)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}
