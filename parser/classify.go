// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"regexp"
	"strings"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// seatSSRCodes are SSR codes that mention seating but are requests, not seat
// ancillaries. They must be matched before the SEAT keyword.
var seatSSRCodes = map[string]bool{
	"RQST": true,
	"NSST": true,
	"NSSA": true,
	"NSSW": true,
	"NSSB": true,
	"EXST": true,
	"CBBG": true,
	"BSCT": true,
	"SMST": true,
	"SMSA": true,
	"SMSW": true,
}

var bundleCode = regexp.MustCompile(`^[PSMB]\d{3}$`)

type serviceText struct {
	code string
	name string
	rfic string
	text string
}

type classificationRule struct {
	name     string
	category ndc.Category
	match    func(serviceText) bool
}

func anyKeyword(keywords ...string) func(serviceText) bool {
	return func(s serviceText) bool {
		for _, k := range keywords {
			if strings.Contains(s.text, k) {
				return true
			}
		}
		return false
	}
}

// classificationRules is evaluated top to bottom; the first match wins.
var classificationRules = []classificationRule{
	{"rfic-p", ndc.CategorySSR, func(s serviceText) bool { return s.rfic == "P" }},
	{"seat-ssr", ndc.CategorySSR, func(s serviceText) bool { return seatSSRCodes[s.code] }},
	{"baggage", ndc.CategoryBaggage, anyKeyword("BAG", "LUGGAGE", "KG")},
	{"seat", ndc.CategorySeat, anyKeyword("SEAT")},
	{"meal", ndc.CategoryMeal, anyKeyword("MEAL", "FOOD", "SNACK")},
	{"lounge", ndc.CategoryLounge, anyKeyword("LOUNGE")},
	{"insurance", ndc.CategoryInsurance, anyKeyword("INSURANCE", "INS")},
	{"bundle", ndc.CategoryBundle, func(s serviceText) bool {
		return anyKeyword("BUNDLE", "PLUS", "MAX", "STARTER")(s) || bundleCode.MatchString(s.code)
	}},
}

// ClassifyService derives a service category from the code, name and RFIC of
// a service definition. Anything no rule recognizes is OTHER.
func ClassifyService(code, name, rfic string) ndc.Category {
	category, _ := classify(code, name, rfic)
	return category
}

func classify(code, name, rfic string) (ndc.Category, string) {
	s := serviceText{
		code: ndc.NormalizeCode(code),
		name: strings.ToUpper(strings.TrimSpace(name)),
		rfic: ndc.NormalizeCode(rfic),
	}
	s.text = s.code + " " + s.name
	for _, r := range classificationRules {
		if r.match(s) {
			return r.category, r.name
		}
	}
	return ndc.CategoryOther, "default"
}
