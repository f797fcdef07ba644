// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// passiveSegmentTypeCode tags operating segments that were added by hand and
// never validated by the airline.
const passiveSegmentTypeCode = "2"

func validateSegment(s ndc.Segment) error {
	switch {
	case s.Origin == "" || s.Destination == "":
		return ndc.Errorf(ndc.InvalidRequestErr, "segment %q has no origin or destination", s.SegmentID)
	case s.MarketingCarrier == "" || s.FlightNumber == "":
		return ndc.Errorf(ndc.InvalidRequestErr, "segment %q has no marketing carrier or flight number", s.SegmentID)
	}
	return nil
}

func scheduled(s ndc.Segment) (dep, arr string) {
	if !s.Departure.IsZero() {
		dep = s.Departure.Format(ndc.DateTimeLayout)
	}
	if !s.Arrival.IsZero() {
		arr = s.Arrival.Format(ndc.DateTimeLayout)
	}
	return dep, arr
}

// appendSegment writes s into the marketing, operating and pax segment lists
// at the same index, cross referenced through its three id forms.
func appendSegment(dl *wireDataLists, forms ndcid.SegmentForms, s ndc.Segment, cabin, segmentType string) {
	dep, arr := scheduled(s)

	dl.MarketingSegments = append(dl.MarketingSegments, wireMarketingSegment{
		ID:                    forms.Marketing,
		Dep:                   stationOf(s.Origin, dep),
		Arrival:               stationOf(s.Destination, arr),
		CarrierDesigCode:      ndc.NormalizeCode(s.MarketingCarrier),
		FlightNumber:          s.FlightNumber,
		OperatingSegmentRefID: forms.Operating,
	})
	dl.OperatingSegments = append(dl.OperatingSegments, wireOperatingSegment{
		ID:               forms.Operating,
		CarrierDesigCode: ndc.NormalizeCode(s.Operator()),
		FlightNumber:     s.FlightNumber,
		SegmentTypeCode:  segmentType,
		Duration:         s.Duration,
		// Direct flights only; a segment is flown as a single leg.
		Legs: []wireOperatingLeg{{
			ID:      ndcid.LegID(forms.Clean, 1),
			Dep:     stationOf(s.Origin, dep),
			Arrival: stationOf(s.Destination, arr),
		}},
	})
	dl.PaxSegments = append(dl.PaxSegments, wirePaxSegment{
		ID:                    forms.Clean,
		CabinTypeCode:         cabin,
		MarketingSegmentRefID: forms.Marketing,
		RBD:                   s.RBD,
		FareBasisCode:         s.FareBasisCode,
	})
}
