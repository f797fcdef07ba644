// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// StepAirShopping names snapshots taken from an AirShopping response.
const StepAirShopping = "AirShopping"

// ShopOfferItem is one offer item of a shopping offer.
type ShopOfferItem struct {
	OfferItemID   string    `json:"offerItemId"`
	PaxRefIDs     []string  `json:"paxRefIds"`
	JourneyRefIDs []string  `json:"journeyRefIds,omitempty"`
	Price         ndc.Money `json:"price"`
}

// ShopOffer is one priced offer returned by shopping.
type ShopOffer struct {
	OfferID       string          `json:"offerId"`
	OwnerCode     string          `json:"ownerCode"`
	Total         ndc.Money       `json:"total"`
	Base          float64         `json:"base"`
	Taxes         float64         `json:"taxes"`
	Fees          float64         `json:"fees"`
	JourneyRefIDs []string        `json:"journeyRefIds,omitempty"`
	Items         []ShopOfferItem `json:"items"`
}

// ShoppingResult is a parsed AirShopping response.
type ShoppingResult struct {
	ndc.Result
	ShoppingResponseID string          `json:"shoppingResponseId,omitempty"`
	Offers             []ShopOffer     `json:"offers"`
	Segments           []ndc.Segment   `json:"segments,omitempty"`
	Journeys           []ndc.Journey   `json:"journeys,omitempty"`
	Passengers         []ndc.Passenger `json:"passengers,omitempty"`
}

// Offer returns the offer with the given id.
func (r *ShoppingResult) Offer(offerID string) (ShopOffer, bool) {
	for _, o := range r.Offers {
		if o.OfferID == offerID {
			return o, true
		}
	}
	return ShopOffer{}, false
}

// Estimate returns the shopping-time price of an offer. Shopping offers never
// carry bundles, so the whole total is fare.
func (r *ShoppingResult) Estimate(offerID string) (ndc.PriceSnapshot, bool) {
	o, ok := r.Offer(offerID)
	if !ok {
		return ndc.PriceSnapshot{}, false
	}
	return ndc.PriceSnapshot{
		Step:  StepAirShopping,
		Total: o.Total,
		Breakdown: ndc.PriceBreakdown{
			Base:  o.Base,
			Taxes: o.Taxes,
			Fees:  o.Fees,
		},
	}, true
}

type xmlShopOfferItem struct {
	OfferItemID     string          `xml:"OfferItemID"`
	OfferItemIDAttr string          `xml:"OfferItemID,attr"`
	Price           *ndc.Amount     `xml:"Price>TotalAmount"`
	FareDetails     []xmlFareDetail `xml:"FareDetail"`
	Services        []struct {
		PaxRefIDs    []string               `xml:"PaxRefID"`
		Associations xmlServiceAssociations `xml:"ServiceAssociations"`
	} `xml:"Service"`
}

type xmlShopOffer struct {
	OfferID       string             `xml:"OfferID"`
	OfferIDAttr   string             `xml:"OfferID,attr"`
	OwnerCode     string             `xml:"OwnerCode"`
	TotalPrice    *ndc.Amount        `xml:"OfferPrice>TotalAmount"`
	TotalPriceAlt *ndc.Amount        `xml:"TotalPrice>TotalAmount"`
	JourneyRefs   []string           `xml:"JourneyOverview>JourneyPriceClass>PaxJourneyRefID"`
	Items         []xmlShopOfferItem `xml:"OfferItem"`
}

type xmlShopSegment struct {
	PaxSegmentID     string `xml:"PaxSegmentID"`
	DepLocation      string `xml:"Dep>IATA_LocationCode"`
	DepTime          string `xml:"Dep>AircraftScheduledDateTime"`
	ArrivalLocation  string `xml:"Arrival>IATA_LocationCode"`
	ArrivalTime      string `xml:"Arrival>AircraftScheduledDateTime"`
	MarketingCarrier string `xml:"MarketingCarrierInfo>CarrierDesigCode"`
	FlightNumber     string `xml:"MarketingCarrierInfo>MarketingCarrierFlightNumberText"`
	OperatingCarrier string `xml:"OperatingCarrierInfo>CarrierDesigCode"`
	CabinTypeCode    string `xml:"CabinType>CabinTypeCode"`
	Duration         string `xml:"Duration"`
}

func (s xmlShopSegment) segment() ndc.Segment {
	return ndc.Segment{
		SegmentID:        ndcid.NormalizeSegmentID(strings.TrimSpace(s.PaxSegmentID)).Clean,
		Origin:           ndc.NormalizeCode(s.DepLocation),
		Destination:      ndc.NormalizeCode(s.ArrivalLocation),
		Departure:        parseTime(s.DepTime),
		Arrival:          parseTime(s.ArrivalTime),
		MarketingCarrier: ndc.NormalizeCode(s.MarketingCarrier),
		OperatingCarrier: ndc.NormalizeCode(s.OperatingCarrier),
		FlightNumber:     strings.TrimSpace(s.FlightNumber),
		CabinCode:        strings.TrimSpace(s.CabinTypeCode),
		Duration:         strings.TrimSpace(s.Duration),
	}
}

type xmlAirShoppingRS struct {
	ShoppingResponseID string           `xml:"Response>ShoppingResponse>ShoppingResponseID"`
	CarrierOffers      []xmlShopOffer   `xml:"Response>OffersGroup>CarrierOffers>Offer"`
	AirlineOffers      []xmlShopOffer   `xml:"Response>OffersGroup>AirlineOffers>Offer"`
	Segments           []xmlShopSegment `xml:"Response>DataLists>PaxSegmentList>PaxSegment"`
	Journeys           []xmlPaxJourney  `xml:"Response>DataLists>PaxJourneyList>PaxJourney"`
	Paxs               []xmlPax         `xml:"Response>DataLists>PaxList>Pax"`
}

// ParseAirShopping parses an AirShopping response into offers and the data
// lists they reference. Segment ids are reported in their clean form.
func ParseAirShopping(doc string) (*ShoppingResult, error) {
	s, err := scan(doc, ndc.OpAirShopping.ResponseRoot())
	if err != nil {
		return nil, err
	}

	var rs xmlAirShoppingRS
	if err := unmarshal(doc, &rs); err != nil {
		return nil, err
	}

	res := &ShoppingResult{ShoppingResponseID: strings.TrimSpace(rs.ShoppingResponseID)}

	segments := map[string]ndc.Segment{}
	for _, xs := range rs.Segments {
		seg := xs.segment()
		segments[seg.SegmentID] = seg
		res.Segments = append(res.Segments, seg)
	}
	for _, xj := range rs.Journeys {
		id := strings.TrimSpace(xj.PaxJourneyID)
		var segs []ndc.Segment
		for _, ref := range trimAll(xj.SegmentRefIDs) {
			if seg, ok := segments[ndcid.NormalizeSegmentID(ref).Clean]; ok {
				segs = append(segs, seg)
			}
		}
		j, err := ndc.NewJourney(id, segs...)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"journey-id": id,
			}).Debug("Skipping journey without resolvable segments.")
			continue
		}
		res.Journeys = append(res.Journeys, j)
	}
	for _, p := range rs.Paxs {
		res.Passengers = append(res.Passengers, p.passenger())
	}

	for _, o := range append(rs.CarrierOffers, rs.AirlineOffers...) {
		res.Offers = append(res.Offers, shopOffer(o))
	}

	recovered := len(res.Offers) > 0 || res.ShoppingResponseID != ""
	res.Result = settle(ndc.OpAirShopping, s, recovered)
	return res, nil
}

func shopOffer(o xmlShopOffer) ShopOffer {
	total := o.TotalPrice
	if total == nil {
		total = o.TotalPriceAlt
	}
	cur := ""
	if total != nil {
		cur = strings.TrimSpace(total.CurCode)
	}

	offer := ShopOffer{
		OfferID:       first(o.OfferID, o.OfferIDAttr),
		OwnerCode:     ndc.NormalizeCode(o.OwnerCode),
		JourneyRefIDs: trimAll(o.JourneyRefs),
	}

	var fare FareAmounts
	var itemsTotal float64
	for _, it := range o.Items {
		item := ShopOfferItem{
			OfferItemID: first(it.OfferItemID, it.OfferItemIDAttr),
			Price:       it.Price.Money(cur),
		}
		for _, svc := range it.Services {
			item.PaxRefIDs = append(item.PaxRefIDs, trimAll(svc.PaxRefIDs)...)
			item.JourneyRefIDs = append(item.JourneyRefIDs, trimAll(svc.Associations.PaxJourneyRefID)...)
		}
		item.PaxRefIDs = dedupe(item.PaxRefIDs)
		item.JourneyRefIDs = dedupe(item.JourneyRefIDs)
		for _, j := range item.JourneyRefIDs {
			if !contains(offer.JourneyRefIDs, j) {
				offer.JourneyRefIDs = append(offer.JourneyRefIDs, j)
			}
		}

		for _, fd := range it.FareDetails {
			count := len(trimAll(fd.PaxRefIDs))
			if count == 0 {
				count = 1
			}
			fare = fare.add(fd.price().amounts().times(count))
		}
		itemsTotal += item.Price.Amount
		offer.Items = append(offer.Items, item)
	}

	if total != nil {
		offer.Total = total.Money(cur)
	} else {
		offer.Total = ndc.Money{Amount: ndc.Round2(itemsTotal), Currency: cur}
	}
	offer.Taxes = fare.Taxes
	offer.Fees = ndc.Round2(fare.Fees + fare.Surcharges)
	if fare.Total != 0 {
		offer.Base = ndc.Round2(fare.Total - offer.Taxes - offer.Fees)
	} else {
		offer.Base = fare.Base
	}
	return offer
}
