// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndcid

import (
	"testing"
)

func TestNormalizeSegmentID(t *testing.T) {
	tests := []struct {
		raw  string
		want SegmentForms
	}{
		{"seg000000001", SegmentForms{"seg000000001", "Mkt-seg000000001", "Opr-seg000000001"}},
		{"Mkt-seg000000001", SegmentForms{"seg000000001", "Mkt-seg000000001", "Opr-seg000000001"}},
		{"Opr-seg000000001", SegmentForms{"seg000000001", "Mkt-seg000000001", "Opr-seg000000001"}},
		{"Mkt-Opr-ABC123", SegmentForms{"ABC123", "Mkt-ABC123", "Opr-ABC123"}},
		{"Mkt-Mkt-x", SegmentForms{"x", "Mkt-x", "Opr-x"}},
		{"", SegmentForms{"", "", ""}},
		{"Mkt-", SegmentForms{"Mkt-", "Mkt-", "Mkt-"}},
		{"seg 1", SegmentForms{"seg 1", "seg 1", "seg 1"}},
	}

	for _, tc := range tests {
		got := NormalizeSegmentID(tc.raw)
		if got != tc.want {
			t.Errorf("NormalizeSegmentID(%q): expected %+v, got %+v", tc.raw, tc.want, got)
		}
	}
}

func TestNormalizeSegmentIDIdempotent(t *testing.T) {
	inputs := []string{
		"seg000000001", "Mkt-seg000000001", "Opr-seg000000001", "Mkt-Opr-seg9",
		"0d5c7a1e-3f", "", "Mkt-", "has space", "Leg-1",
	}

	for _, raw := range inputs {
		first := NormalizeSegmentID(raw)

		for _, form := range []string{first.Clean, first.Marketing, first.Operating} {
			again := NormalizeSegmentID(form)
			if again != first {
				t.Errorf("input %q: normalizing form %q gave %+v, expected %+v", raw, form, again, first)
			}
		}

		if NormalizeSegmentID(first.Marketing).Clean != NormalizeSegmentID(first.Operating).Clean {
			t.Errorf("input %q: marketing and operating forms derive different clean ids", raw)
		}
	}
}

func TestSyntheticID(t *testing.T) {
	tests := []struct {
		kind    Kind
		ordinal int
		want    string
	}{
		{KindSegment, 1, "seg000000001"},
		{KindSegment, 2, "seg000000002"},
		{KindJourney, 1, "fl000000001"},
		{KindJourney, 123456789, "fl123456789"},
		{KindService, 10, "srv000000010"},
		{KindPassiveSegment, 3, "pseg000000003"},
	}

	for _, tc := range tests {
		if got := SyntheticID(tc.kind, tc.ordinal); got != tc.want {
			t.Errorf("SyntheticID(%s, %d): expected %s, got %s", tc.kind, tc.ordinal, tc.want, got)
		}
		if SyntheticID(tc.kind, tc.ordinal) != SyntheticID(tc.kind, tc.ordinal) {
			t.Errorf("SyntheticID(%s, %d) is not deterministic", tc.kind, tc.ordinal)
		}
	}
}

func TestSyntheticPaxID(t *testing.T) {
	if got := SyntheticPaxID("adt", 0); got != "ADT0" {
		t.Errorf("Expected ADT0, got %s", got)
	}
	if got := SyntheticPaxID("CHD", 1); got != "CHD1" {
		t.Errorf("Expected CHD1, got %s", got)
	}
}

func TestLegID(t *testing.T) {
	for _, id := range []string{"seg000000001", "Mkt-seg000000001", "Opr-seg000000001"} {
		if got := LegID(id, 2); got != "seg000000001-leg2" {
			t.Errorf("LegID(%q, 2): expected seg000000001-leg2, got %s", id, got)
		}
	}
}

func TestPaxTypeOf(t *testing.T) {
	tests := map[string]string{
		"ADT0":                   "ADT",
		"chd1":                   "CHD",
		" INF12 ":                "INF",
		SyntheticPaxID("ADT", 3): "ADT",
		"ADT":                    "",
		"ADTX":                   "",
		"PAX1":                   "",
		"":                       "",
	}

	for id, want := range tests {
		if got := PaxTypeOf(id); got != want {
			t.Errorf("PaxTypeOf(%q): expected %q, got %q", id, want, got)
		}
	}
}

func TestClassifyIdentitySource(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want IdentitySource
	}{
		{"no ids", nil, Standalone},
		{"empty ids", []string{"", ""}, Standalone},
		{"bare ids", []string{"seg1", "seg2"}, Standalone},
		{"mixed", []string{"Mkt-seg1", "seg2"}, Standalone},
		{"prefix only", []string{"Mkt-"}, Standalone},
		{"marketing ids", []string{"Mkt-seg1", "Mkt-seg2"}, OrderContinuation},
		{"operating ids", []string{"Opr-abc"}, OrderContinuation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyIdentitySource(tc.ids...); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}
