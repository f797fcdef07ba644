// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package pricing compares the fare captured at shopping time with the fare
// the airline returns when the offer is priced.
package pricing

import (
	"fmt"
	"math"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// Tolerance is the smallest difference, in currency units, that is reported.
const Tolerance = 0.10

// Difference is the outcome of comparing two fares.
type Difference struct {
	EstimateStep      string  `json:"estimateStep,omitempty"`
	AuthoritativeStep string  `json:"authoritativeStep,omitempty"`
	Estimate          float64 `json:"estimate"`
	Authoritative     float64 `json:"authoritative"`
	Currency          string  `json:"currency"`

	// Amount is authoritative minus estimate.
	Amount float64 `json:"amount"`

	// Percent is Amount relative to the mean magnitude of both fares.
	Percent float64 `json:"percent"`

	CurrencyMismatch bool `json:"currencyMismatch,omitempty"`
	Reported         bool `json:"reported"`
}

func (d Difference) String() string {
	if d.CurrencyMismatch {
		return fmt.Sprintf("currency mismatch between %s and %s", d.EstimateStep, d.AuthoritativeStep)
	}
	if !d.Reported {
		return "no price difference"
	}
	return fmt.Sprintf("%+.2f %s (%+.2f%%)", d.Amount, d.Currency, d.Percent)
}

// Reconcile compares the fare-only amounts of two snapshots. Bundles and other
// services are excluded on both sides. Differences under Tolerance are not
// reported; a currency mismatch always is.
func Reconcile(estimate, authoritative ndc.PriceSnapshot) Difference {
	est := estimate.Fare()
	auth := authoritative.Fare()

	d := Difference{
		EstimateStep:      estimate.Step,
		AuthoritativeStep: authoritative.Step,
		Estimate:          est,
		Authoritative:     auth,
		Currency:          authoritative.Total.Currency,
		Amount:            ndc.Round2(auth - est),
	}
	if d.Currency == "" {
		d.Currency = estimate.Total.Currency
	}

	if mean := (math.Abs(est) + math.Abs(auth)) / 2; mean != 0 {
		d.Percent = ndc.Round2(d.Amount / mean * 100)
	}

	cur1, cur2 := estimate.Total.Currency, authoritative.Total.Currency
	d.CurrencyMismatch = cur1 != "" && cur2 != "" && cur1 != cur2
	d.Reported = d.CurrencyMismatch || math.Abs(d.Amount) >= Tolerance
	return d
}
