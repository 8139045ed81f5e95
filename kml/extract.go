// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package kml extracts flat placemark records (identifier, address and
// coordinates) out of KML documents such as the ones exported by BatchGeo.
package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"
)

// DefaultIDKey is the ExtendedData entry name holding the external identifier.
const DefaultIDKey = "id"

// ParseError is returned when the document is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing KML: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configures the extraction.
type Options struct {
	// IDKey is the name attribute of the ExtendedData entry holding the identifier
	IDKey string

	// Verbose enables per-placemark debug logging
	Verbose bool
}

// Extractor walks KML documents and produces one Record per placemark.
type Extractor struct {
	options Options
}

// NewExtractor creates an extractor. A nil options value uses the defaults.
func NewExtractor(options *Options) *Extractor {
	var o Options
	if options != nil {
		o = *options
	}

	if o.IDKey == "" {
		o.IDKey = DefaultIDKey
	}

	return &Extractor{options: o}
}

// node is a generic XML element, enough to navigate a Placemark subtree.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

// child returns the first direct child with the given local name.
func (n *node) child(local string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}

	return nil
}

// walk visits the descendants of n in document order until fn returns false.
func (n *node) walk(fn func(*node) bool) bool {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}

	return true
}

// find returns the first descendant with the given local name.
func (n *node) find(local string) *node {
	var found *node

	n.walk(func(c *node) bool {
		if c.XMLName.Local == local {
			found = c

			return false
		}

		return true
	})

	return found
}

func (n *node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}

	return ""
}

// ExtractFile opens path and extracts its placemarks.
func (e *Extractor) ExtractFile(path string) ([]*Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening KML file: %w", err)
	}
	defer f.Close()

	return e.Extract(f)
}

// Extract reads a whole KML document and returns its placemarks in document
// order. A malformed document yields a *ParseError and no records.
func (e *Extractor) Extract(r io.Reader) ([]*Record, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var records []*Record

	sawRoot := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &ParseError{Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		sawRoot = true

		if se.Name.Local != "Placemark" {
			continue
		}

		var placemark node
		if err := decoder.DecodeElement(&placemark, &se); err != nil {
			return nil, &ParseError{Err: err}
		}

		records = append(records, e.record(len(records)+1, &placemark))
	}

	if !sawRoot {
		return nil, &ParseError{Err: errors.New("document has no root element")}
	}

	log.Printf("Extracted %d placemarks", len(records))

	return records, nil
}

func (e *Extractor) record(index int, placemark *node) *Record {
	r := &Record{
		Index:   index,
		ID:      e.identifier(placemark),
		Address: address(placemark),
	}

	if c := placemark.find("coordinates"); c != nil {
		r.CoordinatesRaw = strings.TrimSpace(c.Text)
	}

	switch {
	case r.CoordinatesRaw == "":
		e.debugf("placemark %d: no coordinates", index)
	default:
		coords, err := ParseCoordinates(r.CoordinatesRaw)
		if err != nil {
			log.Printf("warning: placemark %d: parsing coordinates %q: %v", index, r.CoordinatesRaw, err)
		} else {
			r.setCoordinates(coords)
		}
	}

	if r.ID == "" {
		e.debugf("placemark %d: no %q entry in ExtendedData", index, e.options.IDKey)
	}

	if r.Address == "" {
		e.debugf("placemark %d: no address", index)
	}

	return r
}

// identifier looks for <Data name="key"><value>…</value></Data>, falling back
// to the schema form <SimpleData name="key">…</SimpleData>.
func (e *Extractor) identifier(placemark *node) string {
	extended := placemark.find("ExtendedData")
	if extended == nil {
		return ""
	}

	var id string

	extended.walk(func(c *node) bool {
		if c.attr("name") != e.options.IDKey {
			return true
		}

		switch c.XMLName.Local {
		case "Data":
			if v := c.child("value"); v != nil {
				id = strings.TrimSpace(v.Text)
			}
		case "SimpleData":
			id = strings.TrimSpace(c.Text)
		}

		return id == ""
	})

	return id
}

func address(placemark *node) string {
	if a := placemark.child("address"); a != nil {
		return strings.TrimSpace(a.Text)
	}

	return ""
}

func (e *Extractor) debugf(format string, args ...any) {
	if e.options.Verbose {
		log.Printf("debug: "+format, args...)
	}
}
