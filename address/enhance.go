// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geobatch/geobatch/geocoding"
	"github.com/geobatch/geobatch/spatial"
)

// Completion methods.
const (
	MethodNone    = "none"
	MethodReverse = "reverse_geocoding"
	MethodForward = "forward_geocoding"
)

const (
	reverseConfidence    = 0.9
	maxForwardConfidence = 0.8

	// addresses below this completeness score are completed through the provider
	completenessThreshold = 0.7

	// DefaultH3Resolution is roughly a city block.
	DefaultH3Resolution = 9
)

// Input is one address to enhance.
type Input struct {
	Index   int            `json:"index"`
	Address string         `json:"address"`
	Point   *spatial.Point `json:"point,omitempty"`

	// Err is set when the input row could not be parsed.
	Err error `json:"-"`
}

// Completion is the outcome of Enhancer.Complete.
type Completion struct {
	Original    string               `json:"original_address"`
	Completed   string               `json:"completed_address"`
	Method      string               `json:"method_used"`
	Confidence  float64              `json:"confidence"`
	Components  geocoding.Components `json:"components,omitempty"`
	Point       *spatial.Point       `json:"coordinates,omitempty"`
	Suggestions []string             `json:"suggestions,omitempty"`
	// DistanceMeters is how far a forward result lies from the input
	// coordinates whose reverse lookup found nothing.
	DistanceMeters *float64 `json:"distance_from_input_m,omitempty"`
}

// AdministrativeLevels is the administrative hierarchy of a location.
type AdministrativeLevels struct {
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
	State         string `json:"state"`
	StateCode     string `json:"state_code"`
	Province      string `json:"province"`
	County        string `json:"county"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
}

func administrativeLevels(c geocoding.Components) AdministrativeLevels {
	return AdministrativeLevels{
		Country:       c.Get("country"),
		CountryCode:   c.Get("country_code"),
		State:         c.Get("state"),
		StateCode:     c.Get("state_code"),
		Province:      c.Get("province"),
		County:        c.Get("county"),
		City:          c.Get("city"),
		Town:          c.Get("town"),
		Village:       c.Get("village"),
		Suburb:        c.Get("suburb"),
		Neighbourhood: c.Get("neighbourhood"),
	}
}

// Enrichment is the metadata Enhancer.Enrich attaches to a location.
type Enrichment struct {
	Point          *spatial.Point         `json:"coordinates,omitempty"`
	H3Cell         string                 `json:"h3_cell,omitempty"`
	Administrative *AdministrativeLevels  `json:"administrative_levels,omitempty"`
	Postcode       string                 `json:"postcode,omitempty"`
	Annotations    *geocoding.Annotations `json:"annotations,omitempty"`
	EnrichedAt     time.Time              `json:"enrichment_timestamp"`
}

// QualityMetrics summarizes how an address was processed.
type QualityMetrics struct {
	CompletenessScore float64   `json:"completeness_score"`
	HasCoordinates    bool      `json:"has_coordinates"`
	Method            string    `json:"method_used"`
	ProcessedAt       time.Time `json:"processing_timestamp"`
}

// Enhanced is one processed address.
type Enhanced struct {
	Input

	Completeness      Completeness      `json:"completeness"`
	Completion        *Completion       `json:"completion,omitempty"`
	NormalizedAddress string            `json:"normalized_address,omitempty"`
	PostalValidation  *PostalValidation `json:"postal_validation,omitempty"`
	Enrichment        *Enrichment       `json:"enrichment,omitempty"`
	Quality           QualityMetrics    `json:"quality_metrics"`
	Error             string            `json:"processing_error,omitempty"`
}

// EnhancerOptions configures an Enhancer.
type EnhancerOptions struct {
	// Language for provider results and abbreviation normalization.
	Language string

	// CountryCode biases provider results.
	CountryCode string

	// Cleaner is applied to provider output; nil disables cleaning.
	Cleaner *Cleaner

	// H3Resolution of Enrichment.H3Cell, DefaultH3Resolution when zero.
	H3Resolution int

	// Verbose logs every completion decision.
	Verbose bool
}

// Enhancer completes, normalizes, validates and enriches addresses.
type Enhancer struct {
	geocoder geocoding.Geocoder
	options  EnhancerOptions

	// now is replaced in tests.
	now func() time.Time
}

// NewEnhancer creates an Enhancer on top of g. Pacing between provider calls
// is the responsibility of g, see geocoding.PacedGeocoder.
func NewEnhancer(g geocoding.Geocoder, options *EnhancerOptions) *Enhancer {
	var opts EnhancerOptions
	if options != nil {
		opts = *options
	}

	if opts.H3Resolution == 0 {
		opts.H3Resolution = DefaultH3Resolution
	}

	return &Enhancer{
		geocoder: g,
		options:  opts,
		now:      time.Now,
	}
}

func (e *Enhancer) geoOptions(annotations bool) geocoding.Options {
	return geocoding.Options{
		Language:      e.options.Language,
		CountryCode:   e.options.CountryCode,
		NoAnnotations: !annotations,
	}
}

func (e *Enhancer) debugf(format string, args ...any) {
	if e.options.Verbose {
		log.Printf(format, args...)
	}
}

// Complete fills in a partial address. With coordinates the address comes
// from reverse geocoding; otherwise partial is forward geocoded. When neither
// yields a result the completion keeps the original text, with suggestions.
func (e *Enhancer) Complete(ctx context.Context, partial string, point *spatial.Point) (*Completion, error) {
	c := &Completion{
		Original:  partial,
		Completed: partial,
		Method:    MethodNone,
	}

	if point != nil {
		res, err := e.geocoder.Reverse(ctx, point.Lat, point.Lng, e.geoOptions(false))

		switch {
		case err == nil:
			formatted := e.options.Cleaner.Clean(res.Formatted)
			e.options.Cleaner.CleanComponents(res.Components)

			c.Completed = mergeAddress(partial, formatted)
			c.Method = MethodReverse
			c.Confidence = reverseConfidence
			c.Components = res.Components
			c.Point = point

			return c, nil
		case geocoding.IsNotFoundError(err):
			e.debugf("No reverse result for %f,%f, trying the address", point.Lat, point.Lng)
		default:
			return nil, fmt.Errorf("reverse geocoding %f,%f: %w", point.Lat, point.Lng, err)
		}
	}

	if strings.TrimSpace(partial) != "" {
		res, err := e.geocoder.Forward(ctx, partial, e.geoOptions(false))

		switch {
		case err == nil:
			e.options.Cleaner.CleanComponents(res.Components)

			p := res.Point
			c.Completed = e.options.Cleaner.Clean(res.Formatted)
			c.Method = MethodForward
			c.Confidence = min(float64(res.Confidence)/10, maxForwardConfidence)
			c.Components = res.Components
			c.Point = &p

			if point != nil {
				d := point.HaversineDistance(&p)
				c.DistanceMeters = &d

				e.debugf("Forward result for %q is %.0fm from %f,%f", partial, d, point.Lat, point.Lng)
			}
		case geocoding.IsNotFoundError(err):
			e.debugf("No forward result for %q", partial)
		default:
			return nil, fmt.Errorf("forward geocoding %q: %w", partial, err)
		}
	}

	c.Suggestions = SuggestCorrections(partial, DefaultMaxSuggestions)

	return c, nil
}

var digitsRe = regexp.MustCompile(`\d+`)

// mergeAddress prefixes full with the street number of partial when the
// provider's address lost it.
func mergeAddress(partial, full string) string {
	if strings.TrimSpace(partial) == "" {
		return full
	}

	fullWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(full)) {
		fullWords[w] = true
	}

	unique := false

	for _, w := range strings.Fields(strings.ToLower(partial)) {
		if !fullWords[w] {
			unique = true

			break
		}
	}

	if !unique {
		return full
	}

	if number := digitsRe.FindString(partial); number != "" && !digitsRe.MatchString(full) {
		return number + " " + full
	}

	return full
}

// Enrich adds the administrative hierarchy, annotations and H3 cell of a
// location. Without coordinates, address is forward geocoded first.
func (e *Enhancer) Enrich(ctx context.Context, address string, point *spatial.Point) (*Enrichment, error) {
	en := &Enrichment{}

	if point == nil && strings.TrimSpace(address) != "" {
		res, err := e.geocoder.Forward(ctx, address, e.geoOptions(false))

		switch {
		case err == nil:
			p := res.Point
			point = &p
		case !geocoding.IsNotFoundError(err):
			return nil, fmt.Errorf("forward geocoding %q: %w", address, err)
		}
	}

	if point != nil {
		en.Point = point

		cell, err := point.H3Cell(e.options.H3Resolution)
		if err != nil {
			return nil, err
		}

		en.H3Cell = strconv.FormatUint(cell, 16)

		res, err := e.geocoder.Reverse(ctx, point.Lat, point.Lng, e.geoOptions(true))

		switch {
		case err == nil:
			e.options.Cleaner.CleanComponents(res.Components)

			levels := administrativeLevels(res.Components)
			en.Administrative = &levels
			en.Postcode = res.Components.Get("postcode")
			en.Annotations = res.Annotations
		case !geocoding.IsNotFoundError(err):
			return nil, fmt.Errorf("reverse geocoding %f,%f: %w", point.Lat, point.Lng, err)
		}
	}

	en.EnrichedAt = e.now()

	return en, nil
}

// Process runs the whole pipeline on one input: completeness detection,
// completion when the address looks incomplete, normalization, postal code
// validation and enrichment.
func (e *Enhancer) Process(ctx context.Context, in Input) (*Enhanced, error) {
	out := &Enhanced{Input: in}
	if in.Err != nil {
		return out, in.Err
	}

	out.Completeness = DetectIncomplete(in.Address)

	completed := in.Address
	point := in.Point

	if !out.Completeness.IsComplete || out.Completeness.Confidence < completenessThreshold {
		c, err := e.Complete(ctx, in.Address, in.Point)
		if err != nil {
			return out, err
		}

		out.Completion = c
		completed = c.Completed

		if point == nil {
			point = c.Point
		}

		if pc := c.Components.Get("postcode"); pc != "" {
			v := ValidatePostalCode(pc, c.Components.Get("country_code"))
			out.PostalValidation = &v
		}
	}

	if completed != "" {
		out.NormalizedAddress = NormalizeFormat(completed, e.options.Language)
	}

	en, err := e.Enrich(ctx, in.Address, point)
	if err != nil {
		return out, err
	}

	out.Enrichment = en

	if point == nil {
		point = en.Point
	}

	method := MethodNone
	if out.Completion != nil {
		method = out.Completion.Method
	}

	out.Quality = QualityMetrics{
		CompletenessScore: out.Completeness.Confidence,
		HasCoordinates:    point != nil,
		Method:            method,
		ProcessedAt:       e.now(),
	}

	return out, nil
}

// ProcessBatch processes every input in order. A failing input is logged and
// kept with its error; only context cancellation stops the batch, in which
// case the inputs processed so far are returned with the context error.
func (e *Enhancer) ProcessBatch(ctx context.Context, inputs []Input) ([]*Enhanced, error) {
	out := make([]*Enhanced, 0, len(inputs))

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		log.Printf("[%d/%d] Processing address %q", i+1, len(inputs), in.Address)

		enhanced, err := e.Process(ctx, in)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}

			log.Printf("Error processing address %d: %v", i+1, err)
			enhanced.Error = err.Error()
		}

		out = append(out, enhanced)
	}

	return out, nil
}
