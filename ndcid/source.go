// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndcid

// IdentitySource tells a builder where its correlation keys come from.
type IdentitySource int

const (
	// Standalone requests have no prior airline response; ids are synthesized.
	Standalone IdentitySource = iota

	// OrderContinuation requests reuse the airline's own ids verbatim.
	OrderContinuation
)

func (s IdentitySource) String() string {
	switch s {
	case OrderContinuation:
		return "order_continuation"
	default:
		return "standalone"
	}
}

// ClassifyIdentitySource inspects the segment ids a caller supplied. Only when
// every id carries a recognized Mkt-/Opr- prefix is the request treated as a
// continuation of an existing airline order; anything else (no ids, bare ids,
// a mix) falls back to synthetic ids.
func ClassifyIdentitySource(segmentIDs ...string) IdentitySource {
	if len(segmentIDs) == 0 {
		return Standalone
	}
	for _, id := range segmentIDs {
		if !HasRecognizedPrefix(id) || !NormalizeSegmentID(id).Recognized() {
			return Standalone
		}
	}
	return OrderContinuation
}
