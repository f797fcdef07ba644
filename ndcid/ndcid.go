// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ndcid generates and normalizes the identifier strings that NDC
// 21.3 messages expect. Every function is deterministic: the same input
// always yields the same output, so a request can be rebuilt for a retry
// without changing any cross reference.
package ndcid

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// MarketingPrefix marks a dated marketing segment id.
	MarketingPrefix = "Mkt-"

	// OperatingPrefix marks a dated operating segment id.
	OperatingPrefix = "Opr-"

	// ordinalWidth is fixed by the airline protocol.
	ordinalWidth = 9
)

// Kind selects the prefix of a synthetic identifier.
type Kind string

const (
	KindSegment        Kind = "seg"
	KindJourney        Kind = "fl"
	KindService        Kind = "srv"
	KindOfferItem      Kind = "oi"
	KindPassiveSegment Kind = "pseg"
	KindPassiveJourney Kind = "pfl"
)

// SegmentForms holds the three textual forms of one segment id.
type SegmentForms struct {
	Clean     string `json:"clean"`
	Marketing string `json:"marketing"`
	Operating string `json:"operating"`
}

// Recognized reports whether the forms were derived rather than passed through.
func (f SegmentForms) Recognized() bool {
	return f.Marketing != f.Clean
}

// NormalizeSegmentID returns the clean, marketing and operating forms of raw.
// Leading Mkt-/Opr- prefixes are stripped (repeatedly, so a doubled prefix
// collapses) and re-added. Empty ids and ids containing whitespace or control
// characters are not recognized and are returned unchanged in all three forms.
func NormalizeSegmentID(raw string) SegmentForms {
	if !wellFormed(raw) {
		return SegmentForms{Clean: raw, Marketing: raw, Operating: raw}
	}

	clean := raw
	for {
		switch {
		case strings.HasPrefix(clean, MarketingPrefix):
			clean = strings.TrimPrefix(clean, MarketingPrefix)
			continue
		case strings.HasPrefix(clean, OperatingPrefix):
			clean = strings.TrimPrefix(clean, OperatingPrefix)
			continue
		}
		break
	}

	if clean == "" {
		return SegmentForms{Clean: raw, Marketing: raw, Operating: raw}
	}

	return SegmentForms{
		Clean:     clean,
		Marketing: MarketingPrefix + clean,
		Operating: OperatingPrefix + clean,
	}
}

// HasRecognizedPrefix reports whether raw carries a Mkt- or Opr- prefix.
func HasRecognizedPrefix(raw string) bool {
	return strings.HasPrefix(raw, MarketingPrefix) || strings.HasPrefix(raw, OperatingPrefix)
}

// SyntheticID renders kind followed by the ordinal zero-padded to nine digits,
// e.g. seg000000001. Ordinals start at 1.
func SyntheticID(kind Kind, ordinal int) string {
	return fmt.Sprintf("%s%0*d", kind, ordinalWidth, ordinal)
}

// SyntheticPaxID renders a passenger id from its type code and its zero based
// position among passengers of the same type, e.g. ADT0, CHD1.
func SyntheticPaxID(ptc string, index int) string {
	return fmt.Sprintf("%s%d", strings.ToUpper(ptc), index)
}

// LegID renders the per-leg form of a segment id, e.g. seg000000001-leg1.
// Legs are numbered from 1.
func LegID(segmentID string, leg int) string {
	return fmt.Sprintf("%s-leg%d", NormalizeSegmentID(segmentID).Clean, leg)
}

// PaxTypeOf recovers the passenger type code from an id rendered by
// SyntheticPaxID. It returns "" when the id does not start with ADT, CHD or
// INF followed by digits.
func PaxTypeOf(paxID string) string {
	id := strings.ToUpper(strings.TrimSpace(paxID))
	for _, ptc := range []string{"ADT", "CHD", "INF"} {
		rest := strings.TrimPrefix(id, ptc)
		if rest == id || rest == "" {
			continue
		}
		if strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			return ptc
		}
	}
	return ""
}

func wellFormed(raw string) bool {
	if raw == "" {
		return false
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
