// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"strings"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// StepOfferPrice names snapshots taken from an OfferPrice response.
const StepOfferPrice = "OfferPrice"

// FareAmounts are the fare parts of one passenger type or one flight.
type FareAmounts struct {
	Base           float64 `json:"base"`
	DiscountedBase float64 `json:"discountedBase,omitempty"`
	Surcharges     float64 `json:"surcharges"`
	Adjustments    float64 `json:"adjustments"`
	Taxes          float64 `json:"taxes"`
	Fees           float64 `json:"fees"`
	Total          float64 `json:"total"`
}

func (a FareAmounts) add(o FareAmounts) FareAmounts {
	return FareAmounts{
		Base:           ndc.Round2(a.Base + o.Base),
		DiscountedBase: ndc.Round2(a.DiscountedBase + o.DiscountedBase),
		Surcharges:     ndc.Round2(a.Surcharges + o.Surcharges),
		Adjustments:    ndc.Round2(a.Adjustments + o.Adjustments),
		Taxes:          ndc.Round2(a.Taxes + o.Taxes),
		Fees:           ndc.Round2(a.Fees + o.Fees),
		Total:          ndc.Round2(a.Total + o.Total),
	}
}

func (a FareAmounts) times(n int) FareAmounts {
	f := float64(n)
	return FareAmounts{
		Base:           ndc.Round2(a.Base * f),
		DiscountedBase: ndc.Round2(a.DiscountedBase * f),
		Surcharges:     ndc.Round2(a.Surcharges * f),
		Adjustments:    ndc.Round2(a.Adjustments * f),
		Taxes:          ndc.Round2(a.Taxes * f),
		Fees:           ndc.Round2(a.Fees * f),
		Total:          ndc.Round2(a.Total * f),
	}
}

// PaxTypePrice is the price of one passenger of a type, and how many
// passengers of the type it applies to.
type PaxTypePrice struct {
	PaxType     string      `json:"paxType"`
	PaxRefIDs   []string    `json:"paxRefIds,omitempty"`
	PaxCount    int         `json:"paxCount"`
	OfferItemID string      `json:"offerItemId"`
	PerPax      FareAmounts `json:"perPax"`
}

// FlightPrice accumulates the fare of every passenger on one journey. Flights
// whose journey cannot be determined share the empty JourneyID.
type FlightPrice struct {
	JourneyID string         `json:"journeyId"`
	Amounts   FareAmounts    `json:"amounts"`
	PaxTypes  []PaxTypePrice `json:"paxTypes"`
}

// PricedService is a non-fare offer item of a priced offer.
type PricedService struct {
	OfferItemID            string       `json:"offerItemId"`
	ServiceDefinitionRefID string       `json:"serviceDefinitionRefId,omitempty"`
	ServiceCode            string       `json:"serviceCode,omitempty"`
	Category               ndc.Category `json:"category"`
	PaxRefIDs              []string     `json:"paxRefIds,omitempty"`
	JourneyRefID           string       `json:"journeyRefId,omitempty"`
	Price                  ndc.Money    `json:"price"`
}

// OfferPriceResult is a parsed OfferPrice response.
type OfferPriceResult struct {
	ndc.Result
	OfferID   string          `json:"offerId,omitempty"`
	OwnerCode string          `json:"ownerCode,omitempty"`
	Total     ndc.Money       `json:"total"`
	Flights   []FlightPrice   `json:"flights"`
	Services  []PricedService `json:"services,omitempty"`
}

// Snapshot returns the authoritative price. Fare parts come from the flights
// only; bundles and other services are kept in their own buckets.
func (r *OfferPriceResult) Snapshot() ndc.PriceSnapshot {
	var fare FareAmounts
	for _, f := range r.Flights {
		fare = fare.add(f.Amounts)
	}
	fees := ndc.Round2(fare.Fees + fare.Surcharges)

	var b ndc.PriceBreakdown
	b.Taxes = fare.Taxes
	b.Fees = fees
	if fare.Total != 0 {
		b.Base = ndc.Round2(fare.Total - fare.Taxes - fees)
	} else {
		b.Base = fare.Base
	}
	for _, s := range r.Services {
		if s.Category == ndc.CategoryBundle {
			b.Bundle = ndc.Round2(b.Bundle + s.Price.Amount)
		} else {
			b.Services = ndc.Round2(b.Services + s.Price.Amount)
		}
	}
	return ndc.PriceSnapshot{Step: StepOfferPrice, Total: r.Total, Breakdown: b}
}

type xmlFarePrice struct {
	BaseAmount           *ndc.Amount  `xml:"BaseAmount"`
	DiscountedBaseAmount *ndc.Amount  `xml:"DiscountedBaseAmount"`
	Surcharges           []ndc.Amount `xml:"Surcharge>TotalAmount"`
	Discounts            []ndc.Amount `xml:"Discount>DiscountAmount"`
	TotalTaxAmount       *ndc.Amount  `xml:"TaxSummary>TotalTaxAmount"`
	Taxes                []ndc.Amount `xml:"TaxSummary>Tax>Amount"`
	Fees                 []ndc.Amount `xml:"Fee>Amount"`
	TotalAmount          *ndc.Amount  `xml:"TotalAmount"`
}

func sumAmounts(as []ndc.Amount) float64 {
	var total float64
	for i := range as {
		total += as[i].Money("").Amount
	}
	return ndc.Round2(total)
}

func (p xmlFarePrice) amounts() FareAmounts {
	a := FareAmounts{
		Base:           p.BaseAmount.Money("").Amount,
		DiscountedBase: p.DiscountedBaseAmount.Money("").Amount,
		Surcharges:     sumAmounts(p.Surcharges),
		Adjustments:    sumAmounts(p.Discounts),
		Fees:           sumAmounts(p.Fees),
		Total:          p.TotalAmount.Money("").Amount,
	}
	if p.TotalTaxAmount != nil {
		a.Taxes = p.TotalTaxAmount.Money("").Amount
	} else {
		a.Taxes = sumAmounts(p.Taxes)
	}
	if p.TotalAmount == nil {
		base := a.Base
		if p.DiscountedBaseAmount != nil {
			base = a.DiscountedBase
		}
		a.Total = ndc.Round2(base + a.Surcharges + a.Taxes + a.Fees)
	}
	return a
}

func (p xmlFarePrice) currency() string {
	for _, a := range []*ndc.Amount{p.TotalAmount, p.BaseAmount} {
		if a != nil && strings.TrimSpace(a.CurCode) != "" {
			return strings.TrimSpace(a.CurCode)
		}
	}
	return ""
}

type xmlFareDetail struct {
	PaxRefIDs     []string     `xml:"PaxRefID"`
	Price         xmlFarePrice `xml:"Price"`
	FarePriceType xmlFarePrice `xml:"FarePriceType>Price"`
}

// price prefers the FarePriceType block when it carries a total.
func (d xmlFareDetail) price() xmlFarePrice {
	if d.FarePriceType.TotalAmount != nil || d.FarePriceType.BaseAmount != nil {
		return d.FarePriceType
	}
	return d.Price
}

type xmlServiceAssociations struct {
	PaxJourneyRefID        []string `xml:"PaxJourneyRefID"`
	PaxSegmentRefID        []string `xml:"PaxSegmentRefID"`
	ServiceDefinitionRefID string   `xml:"ServiceDefinitionRef>ServiceDefinitionRefID"`
	ServiceDefinitionRef   string   `xml:"ServiceDefinitionRefID"`
}

type xmlPricedOfferItem struct {
	OfferItemID     string          `xml:"OfferItemID"`
	OfferItemIDAttr string          `xml:"OfferItemID,attr"`
	Price           *ndc.Amount     `xml:"Price>TotalAmount"`
	FareDetails     []xmlFareDetail `xml:"FareDetail"`
	Services        []struct {
		PaxRefIDs    []string               `xml:"PaxRefID"`
		Associations xmlServiceAssociations `xml:"ServiceAssociations"`
	} `xml:"Service"`
}

type xmlPricedOffer struct {
	OfferID     string               `xml:"OfferID"`
	OfferIDAttr string               `xml:"OfferID,attr"`
	OwnerCode   string               `xml:"OwnerCode"`
	TotalPrice  *ndc.Amount          `xml:"TotalPrice>TotalAmount"`
	Items       []xmlPricedOfferItem `xml:"OfferItem"`
}

type xmlPaxJourney struct {
	PaxJourneyID  string   `xml:"PaxJourneyID"`
	SegmentRefIDs []string `xml:"PaxSegmentRefID"`
}

type xmlOfferPriceRS struct {
	Offers      []xmlPricedOffer       `xml:"Response>PricedOffer"`
	Journeys    []xmlPaxJourney        `xml:"Response>DataLists>PaxJourneyList>PaxJourney"`
	Paxs        []xmlPax               `xml:"Response>DataLists>PaxList>Pax"`
	Definitions []xmlServiceDefinition `xml:"Response>DataLists>ServiceDefinitionList>ServiceDefinition"`
}

// journeyOfSegment indexes journeys by the segments they contain.
func journeyOfSegment(journeys []xmlPaxJourney) map[string]string {
	out := map[string]string{}
	for _, j := range journeys {
		id := strings.TrimSpace(j.PaxJourneyID)
		for _, seg := range trimAll(j.SegmentRefIDs) {
			if _, ok := out[seg]; !ok {
				out[seg] = id
			}
		}
	}
	return out
}

// ParseOfferPrice parses an OfferPrice response into per-journey fare totals
// and priced services. Offer items carrying fare details are flights; any
// other item is a service, and counts as a bundle when its definition
// classifies as one.
func ParseOfferPrice(doc string) (*OfferPriceResult, error) {
	s, err := scan(doc, ndc.OpOfferPrice.ResponseRoot())
	if err != nil {
		return nil, err
	}

	var rs xmlOfferPriceRS
	if err := unmarshal(doc, &rs); err != nil {
		return nil, err
	}

	res := &OfferPriceResult{}
	recovered := false
	if len(rs.Offers) > 0 {
		recovered = true
		parsePricedOffer(res, rs.Offers[0], rs)
	}

	res.Result = settle(ndc.OpOfferPrice, s, recovered)
	return res, nil
}

func parsePricedOffer(res *OfferPriceResult, o xmlPricedOffer, rs xmlOfferPriceRS) {
	res.OfferID = first(o.OfferID, o.OfferIDAttr)
	res.OwnerCode = ndc.NormalizeCode(o.OwnerCode)

	cur := ""
	if o.TotalPrice != nil {
		cur = strings.TrimSpace(o.TotalPrice.CurCode)
	}

	ptcs := paxTypes(rs.Paxs)
	segJourney := journeyOfSegment(rs.Journeys)
	defs := map[string]ndc.ServiceDefinition{}
	for _, d := range rs.Definitions {
		def := d.definition()
		defs[def.ServiceID] = def
	}

	flights := map[string]int{}
	var itemsTotal float64
	for _, it := range o.Items {
		id := first(it.OfferItemID, it.OfferItemIDAttr)

		journey := ""
		var defRef string
		var svcPax []string
		for _, svc := range it.Services {
			svcPax = append(svcPax, trimAll(svc.PaxRefIDs)...)
			if defRef == "" {
				defRef = first(svc.Associations.ServiceDefinitionRefID, svc.Associations.ServiceDefinitionRef)
			}
			if journey != "" {
				continue
			}
			if refs := trimAll(svc.Associations.PaxJourneyRefID); len(refs) > 0 {
				journey = refs[0]
				continue
			}
			for _, seg := range trimAll(svc.Associations.PaxSegmentRefID) {
				if j, ok := segJourney[seg]; ok {
					journey = j
					break
				}
			}
		}

		if len(it.FareDetails) == 0 {
			def := defs[defRef]
			category := def.Category
			if category == "" {
				category = ndc.CategoryOther
			}
			price := it.Price.Money(cur)
			if cur == "" {
				cur = price.Currency
			}
			itemsTotal += price.Amount
			res.Services = append(res.Services, PricedService{
				OfferItemID:            id,
				ServiceDefinitionRefID: defRef,
				ServiceCode:            def.ServiceCode,
				Category:               category,
				PaxRefIDs:              dedupe(svcPax),
				JourneyRefID:           journey,
				Price:                  price,
			})
			continue
		}

		i, ok := flights[journey]
		if !ok {
			i = len(res.Flights)
			flights[journey] = i
			res.Flights = append(res.Flights, FlightPrice{JourneyID: journey})
		}
		f := &res.Flights[i]
		for _, fd := range it.FareDetails {
			p := fd.price()
			if cur == "" {
				cur = p.currency()
			}
			refs := trimAll(fd.PaxRefIDs)
			count := len(refs)
			if count == 0 {
				count = 1
			}
			ptc := ""
			if len(refs) > 0 {
				ptc = paxType(ptcs, refs[0])
			}
			perPax := p.amounts()
			f.PaxTypes = append(f.PaxTypes, PaxTypePrice{
				PaxType:     ptc,
				PaxRefIDs:   refs,
				PaxCount:    count,
				OfferItemID: id,
				PerPax:      perPax,
			})
			all := perPax.times(count)
			f.Amounts = f.Amounts.add(all)
			itemsTotal += all.Total
		}
	}

	if o.TotalPrice != nil {
		res.Total = o.TotalPrice.Money(cur)
	} else {
		res.Total = ndc.Money{Amount: ndc.Round2(itemsTotal), Currency: cur}
	}
	for i := range res.Services {
		if res.Services[i].Price.Currency == "" {
			res.Services[i].Price.Currency = cur
		}
	}
}

func dedupe(values []string) []string {
	var out []string
	for _, v := range values {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
