// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"strings"

	"github.com/geobatch/geobatch/utils/textutils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// abbreviations maps a target language to the abbreviations expanded for it.
var abbreviations = map[string]map[string][]string{
	"es": {
		"calle":       {"c/", "c\\", "cl", "cl.", "call"},
		"avenida":     {"av", "av.", "avda", "avda.", "aven"},
		"plaza":       {"pl", "pl.", "plz"},
		"paseo":       {"ps", "ps.", "pso"},
		"carrera":     {"cr", "cr.", "cra", "cra."},
		"diagonal":    {"dg", "dg.", "diag"},
		"transversal": {"tv", "tv.", "trans"},
	},
	"en": {
		"street":    {"st", "st.", "str", "str."},
		"avenue":    {"ave", "ave.", "av"},
		"boulevard": {"blvd", "blvd.", "boul"},
		"road":      {"rd", "rd."},
		"drive":     {"dr", "dr."},
		"lane":      {"ln", "ln."},
		"court":     {"ct", "ct."},
		"place":     {"pl", "pl."},
	},
}

// expansions inverts abbreviations: language -> abbreviation -> full word.
var expansions = func() map[string]map[string]string {
	out := make(map[string]map[string]string, len(abbreviations))

	for lang, words := range abbreviations {
		m := make(map[string]string)

		for full, abbrevs := range words {
			for _, a := range abbrevs {
				m[a] = full
			}
		}

		out[lang] = m
	}

	return out
}()

// NormalizeFormat lowercases address, expands the street-type abbreviations of
// lang ("es" or "en"), title-cases every word and collapses whitespace.
// Unknown languages only get the casing and whitespace treatment.
func NormalizeFormat(address, lang string) string {
	if strings.TrimSpace(address) == "" {
		return address
	}

	words := strings.Fields(strings.ToLower(address))
	table := expansions[lang]

	for i, w := range words {
		words[i] = expandWord(w, table)
	}

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}

	return textutils.CollapseSpaces(cases.Title(tag).String(strings.Join(words, " ")))
}

// expandWord replaces w when it is an abbreviation, keeping a trailing comma.
func expandWord(w string, table map[string]string) string {
	if len(table) == 0 {
		return w
	}

	core, suffix := w, ""
	if strings.HasSuffix(core, ",") {
		core, suffix = strings.TrimSuffix(core, ","), ","
	}

	if full, ok := table[core]; ok {
		return full + suffix
	}

	// "c/mayor" style, the abbreviation glued to the name
	for _, glued := range []string{"c/", "c\\"} {
		if full, ok := table[glued]; ok && strings.HasPrefix(core, glued) && len(core) > len(glued) {
			return full + " " + core[len(glued):] + suffix
		}
	}

	return w
}
