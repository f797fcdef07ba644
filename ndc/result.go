// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndc

// Message is an Error or Warning element reported by the airline.
type Message struct {
	Code        string `json:"code,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// Result is the outcome envelope embedded in every parsed response.
type Result struct {
	Success  bool      `json:"success"`
	Errors   []Message `json:"errors,omitempty"`
	Warnings []Message `json:"warnings,omitempty"`
}

// Settle fills the envelope from the airline's errors and warnings. A parse
// that recovered usable data succeeds and keeps the errors as warnings; one
// that recovered nothing fails if the airline reported any error.
func Settle(recovered bool, errs, warnings []Message) Result {
	r := Result{Success: true}
	if len(warnings) > 0 {
		r.Warnings = append(r.Warnings, warnings...)
	}
	if len(errs) == 0 {
		return r
	}
	if recovered {
		r.Warnings = append(r.Warnings, errs...)
		return r
	}
	r.Success = false
	r.Errors = append(r.Errors, errs...)
	return r
}

// Airline returns every airline message carried by the result.
func (r Result) Airline() []Message {
	out := make([]Message, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}
