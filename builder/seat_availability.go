// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// SeatAvailabilityRequest asks for seat maps. It has two shapes: a single
// offer whose items all share SegmentRefIDs, or one offer per direction with
// no shared refs. It carries no shopping response id; the airline drops
// session continuity when one is sent.
type SeatAvailabilityRequest struct {
	Offers        []SeatOffer `json:"offers"`
	SegmentRefIDs []string    `json:"segmentRefIds,omitempty"`
}

// SeatOffer is one offer and the items to request seat maps for.
type SeatOffer struct {
	OfferID      string   `json:"offerId"`
	OwnerCode    string   `json:"ownerCode,omitempty"`
	OfferItemIDs []string `json:"offerItemIds"`
}

type seatAvailabilityRQ struct {
	XMLName xml.Name `xml:"IATA_SeatAvailabilityRQ"`
	ndc.Envelope
	Request seatAvailabilityRequest `xml:"Request"`
}

type seatAvailabilityRequest struct {
	Offers []wireSeatOffer `xml:"cns:SeatAvailCoreRequest>cns:OfferRequest>cns:Offer"`
}

type wireSeatOffer struct {
	OfferID    string              `xml:"cns:OfferID"`
	OwnerCode  string              `xml:"cns:OwnerCode"`
	OfferItems []wireSeatOfferItem `xml:"cns:OfferItem"`
}

type wireSeatOfferItem struct {
	OfferItemID      string   `xml:"cns:OfferItemID"`
	PaxSegmentRefIDs []string `xml:"cns:PaxSegmentRefID"`
}

// SeatAvailability renders a seat map request in either shape.
func SeatAvailability(req SeatAvailabilityRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}

	switch {
	case len(req.Offers) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "seat availability needs at least one offer")
	case len(req.Offers) > 1 && len(req.SegmentRefIDs) > 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "shared segment refs apply to a single offer only, got %d offers", len(req.Offers))
	}

	offers := make([]wireSeatOffer, 0, len(req.Offers))
	for _, o := range req.Offers {
		if o.OfferID == "" || len(o.OfferItemIDs) == 0 {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "seat offer %q has no id or no offer items", o.OfferID)
		}
		owner := ndc.NormalizeCode(o.OwnerCode)
		if owner == "" {
			owner = cfg.OwnerCode
		}
		if owner == "" {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "seat offer %q has no owner code", o.OfferID)
		}

		wo := wireSeatOffer{OfferID: o.OfferID, OwnerCode: owner}
		for _, item := range o.OfferItemIDs {
			wo.OfferItems = append(wo.OfferItems, wireSeatOfferItem{
				OfferItemID:      item,
				PaxSegmentRefIDs: req.SegmentRefIDs,
			})
		}
		offers = append(offers, wo)
	}

	logrus.WithFields(logrus.Fields{
		"operation":   ndc.OpSeatAvailability,
		"offers":      len(offers),
		"shared-refs": len(req.SegmentRefIDs),
	}).Debug("Built SeatAvailability request.")

	return ndc.Marshal(seatAvailabilityRQ{
		Envelope: env,
		Request:  seatAvailabilityRequest{Offers: offers},
	})
}
