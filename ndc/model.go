// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ndc holds the value types shared by the NDC 21.3 message builders,
// parsers and price reconciliation. Every value is created by one build or
// parse call and never mutated afterwards.
package ndc

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateTimeLayout is the local date-time form used for scheduled times.
const DateTimeLayout = "2006-01-02T15:04:05"

// DateLayout is used for birth dates and document expiry.
const DateLayout = "2006-01-02"

// PaxType is the passenger type code.
type PaxType string

const (
	PaxAdult  PaxType = "ADT"
	PaxChild  PaxType = "CHD"
	PaxInfant PaxType = "INF"
)

// Valid reports whether t is one of ADT, CHD or INF.
func (t PaxType) Valid() bool {
	switch t {
	case PaxAdult, PaxChild, PaxInfant:
		return true
	}
	return false
}

// Segment is a single flown leg.
type Segment struct {
	SegmentID        string    `json:"segmentId"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	Departure        time.Time `json:"departure"`
	Arrival          time.Time `json:"arrival"`
	MarketingCarrier string    `json:"marketingCarrier"`
	OperatingCarrier string    `json:"operatingCarrier,omitempty"`
	FlightNumber     string    `json:"flightNumber"`
	CabinCode        string    `json:"cabinCode,omitempty"`
	RBD              string    `json:"rbd,omitempty"`
	FareBasisCode    string    `json:"fareBasisCode,omitempty"`
	Duration         string    `json:"duration,omitempty"`
}

// Operator returns the operating carrier, falling back to the marketing one.
func (s Segment) Operator() string {
	if s.OperatingCarrier != "" {
		return s.OperatingCarrier
	}
	return s.MarketingCarrier
}

// Journey is one direction of travel.
type Journey struct {
	JourneyID   string   `json:"journeyId"`
	SegmentIDs  []string `json:"segmentIds"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
}

// NewJourney builds a journey over segments, which must be in flight order.
func NewJourney(id string, segments ...Segment) (Journey, error) {
	if len(segments) == 0 {
		return Journey{}, Errorf(InvalidRequestErr, "journey %q has no segments", id)
	}
	ids := make([]string, 0, len(segments))
	for _, s := range segments {
		ids = append(ids, s.SegmentID)
	}
	return Journey{
		JourneyID:   id,
		SegmentIDs:  ids,
		Origin:      segments[0].Origin,
		Destination: segments[len(segments)-1].Destination,
	}, nil
}

// IdentityDocument is a passenger's travel document. Type uses the caller's
// codes; builders translate them to the airline's.
type IdentityDocument struct {
	Type           string `json:"type"`
	Number         string `json:"number"`
	IssuingCountry string `json:"issuingCountry,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	Expiry         string `json:"expiry,omitempty"`
}

type LoyaltyAccount struct {
	AirlineCode   string `json:"airlineCode"`
	AccountNumber string `json:"accountNumber"`
}

// Passenger is a traveller declared in a message.
type Passenger struct {
	PaxID     string            `json:"paxId"`
	Type      PaxType           `json:"type"`
	Title     string            `json:"title,omitempty"`
	GivenName string            `json:"givenName,omitempty"`
	Surname   string            `json:"surname,omitempty"`
	Gender    string            `json:"gender,omitempty"`
	Birthdate string            `json:"birthdate,omitempty"`
	Document  *IdentityDocument `json:"document,omitempty"`
	Loyalty   *LoyaltyAccount   `json:"loyalty,omitempty"`

	// AccompanyingPaxID links an infant to its adult.
	AccompanyingPaxID string `json:"accompanyingPaxId,omitempty"`
}

// AssociationType tells which flight reference list an offer item uses.
type AssociationType string

const (
	AssociationSegment AssociationType = "segment"
	AssociationJourney AssociationType = "journey"
	AssociationLeg     AssociationType = "leg"
	AssociationUnknown AssociationType = "unknown"
)

// Money is an amount rounded to cents with its currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Add returns m plus o. The currency of m wins unless m has none.
func (m Money) Add(o Money) Money {
	cur := m.Currency
	if cur == "" {
		cur = o.Currency
	}
	return Money{Amount: Round2(m.Amount + o.Amount), Currency: cur}
}

// Times multiplies the amount by n.
func (m Money) Times(n int) Money {
	return Money{Amount: Round2(m.Amount * float64(n)), Currency: m.Currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OfferItem is the smallest priced, selectable unit of an offer. Exactly one
// of the reference lists is populated, matching Association.
type OfferItem struct {
	OfferItemID   string          `json:"offerItemId"`
	PaxRefIDs     []string        `json:"paxRefIds"`
	Price         Money           `json:"price"`
	Association   AssociationType `json:"associationType"`
	SegmentRefIDs []string        `json:"segmentRefIds,omitempty"`
	JourneyRefIDs []string        `json:"journeyRefIds,omitempty"`
	LegRefIDs     []string        `json:"legRefIds,omitempty"`

	ServiceDefinitionRefID string `json:"serviceDefinitionRefId,omitempty"`
}

// Refs returns the reference list selected by the association type.
func (o OfferItem) Refs() []string {
	switch o.Association {
	case AssociationSegment:
		return o.SegmentRefIDs
	case AssociationJourney:
		return o.JourneyRefIDs
	case AssociationLeg:
		return o.LegRefIDs
	}
	return nil
}

// Category is the closed set of ancillary service categories.
type Category string

const (
	CategoryBaggage   Category = "BAGGAGE"
	CategorySeat      Category = "SEAT"
	CategoryMeal      Category = "MEAL"
	CategoryLounge    Category = "LOUNGE"
	CategoryInsurance Category = "INSURANCE"
	CategoryBundle    Category = "BUNDLE"
	CategorySSR       Category = "SSR"
	CategoryOther     Category = "OTHER"
)

// ServiceDefinition is a catalog entry describing what an offer item buys.
type ServiceDefinition struct {
	ServiceID   string   `json:"serviceId"`
	ServiceCode string   `json:"serviceCode"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RFIC        string   `json:"rfic,omitempty"`
	RFISC       string   `json:"rfisc,omitempty"`
	Category    Category `json:"category"`

	// IncludedServiceIDs is only set on bundles.
	IncludedServiceIDs []string `json:"includedServiceIds,omitempty"`
}

// AncillaryOffer is one purchasable ancillary as presented to the caller.
// Bundles sold to several passenger types collapse into a single value.
type AncillaryOffer struct {
	OfferID             string          `json:"offerId"`
	OfferItemID         string          `json:"offerItemId"`
	GroupedOfferItemIDs []string        `json:"groupedOfferItemIds,omitempty"`
	ServiceID           string          `json:"serviceId"`
	ServiceCode         string          `json:"serviceCode"`
	Name                string          `json:"name"`
	Category            Category        `json:"category"`
	PaxRefIDs           []string        `json:"paxRefIds"`
	Association         AssociationType `json:"associationType"`
	SegmentRefIDs       []string        `json:"segmentRefIds,omitempty"`
	JourneyRefIDs       []string        `json:"journeyRefIds,omitempty"`
	LegRefIDs           []string        `json:"legRefIds,omitempty"`
	Price               Money           `json:"price"`
	IncludedServiceIDs  []string        `json:"includedServiceIds,omitempty"`
}

// PriceBreakdown splits a total into its parts.
type PriceBreakdown struct {
	Base     float64 `json:"base"`
	Taxes    float64 `json:"taxes"`
	Fees     float64 `json:"fees"`
	Bundle   float64 `json:"bundle"`
	Services float64 `json:"services"`
}

// PriceSnapshot is a point-in-time total tied to the step that produced it.
type PriceSnapshot struct {
	Step      string         `json:"step"`
	Total     Money          `json:"total"`
	Breakdown PriceBreakdown `json:"breakdown"`
}

// Fare returns the fare-only amount: base, taxes and fees when any of them is
// known, otherwise the total with bundle and services taken out.
func (p PriceSnapshot) Fare() float64 {
	b := p.Breakdown
	if b.Base != 0 || b.Taxes != 0 || b.Fees != 0 {
		return Round2(b.Base + b.Taxes + b.Fees)
	}
	return Round2(p.Total.Amount - b.Bundle - b.Services)
}

// NormalizeCode upper-cases and trims an airline code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
