// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// contactInfoID is the single contact record every passenger points at.
const contactInfoID = "CI1"

// identityDocTypes translates caller document codes to the airline's. Codes
// not listed pass through.
var identityDocTypes = map[string]string{
	"PP": "PT",
}

// OrderCreateRequest turns selected offers into an order.
type OrderCreateRequest struct {
	Offers             []SelectedOffer `json:"offers"`
	ShoppingResponseID string          `json:"shoppingResponseId,omitempty"`
	Passengers         []ndc.Passenger `json:"passengers"`
	Contact            Contact         `json:"contact"`

	// PassiveSegments are added by hand and not validated by the airline.
	PassiveSegments []ndc.Segment `json:"passiveSegments,omitempty"`

	Payment *Payment `json:"payment,omitempty"`
}

// SelectedOffer is an offer chosen earlier in the workflow.
type SelectedOffer struct {
	OfferID   string              `json:"offerId"`
	OwnerCode string              `json:"ownerCode,omitempty"`
	Items     []SelectedOfferItem `json:"items"`
}

type SelectedOfferItem struct {
	OfferItemID string      `json:"offerItemId"`
	PaxIDs      []string    `json:"paxIds,omitempty"`
	Seat        *SeatChoice `json:"seat,omitempty"`
}

// SeatChoice picks a seat for the item's passenger on one segment.
type SeatChoice struct {
	SegmentRefID string `json:"segmentRefId"`
	Row          int    `json:"row"`
	Column       string `json:"column"`
}

// Contact is rendered once and shared by every passenger.
type Contact struct {
	Email              string `json:"email"`
	CountryDialingCode string `json:"countryDialingCode,omitempty"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	Street             string `json:"street,omitempty"`
	City               string `json:"city,omitempty"`
	PostalCode         string `json:"postalCode,omitempty"`
	CountryCode        string `json:"countryCode,omitempty"`
}

// Payment settles the order. TypeCode defaults to CA (cash/agency account).
type Payment struct {
	TypeCode string    `json:"typeCode,omitempty"`
	Amount   ndc.Money `json:"amount"`
}

type orderCreateRQ struct {
	XMLName xml.Name `xml:"IATA_OrderCreateRQ"`
	ndc.Envelope
	Request orderCreateRequest `xml:"Request"`
}

type orderCreateRequest struct {
	Offers           []wireSelectedOffer   `xml:"cns:CreateOrder>cns:SelectedOffer"`
	DataLists        wireDataLists         `xml:"cns:DataLists"`
	PaymentFunctions *wirePaymentFunctions `xml:"cns:PaymentFunctions,omitempty"`
}

type wireSelectedOffer struct {
	OfferRefID            string                  `xml:"cns:OfferRefID"`
	OwnerCode             string                  `xml:"cns:OwnerCode"`
	ShoppingResponseRefID string                  `xml:"cns:ShoppingResponseRefID,omitempty"`
	Items                 []wireSelectedOfferItem `xml:"cns:SelectedOfferItem"`
}

type wireSelectedOfferItem struct {
	OfferItemRefID string            `xml:"cns:OfferItemRefID"`
	PaxRefIDs      []string          `xml:"cns:PaxRefID"`
	Seat           *wireSelectedSeat `xml:"cns:SelectedALaCarteOfferItem>cns:SelectedSeat,omitempty"`
}

type wireSelectedSeat struct {
	ColumnID        string `xml:"cns:ColumnID"`
	PaxSegmentRefID string `xml:"cns:PaxSegmentRefID"`
	SeatRowNumber   string `xml:"cns:SeatRowNumber"`
}

type wirePaymentFunctions struct {
	Amount          *ndc.Amount `xml:"cns:PaymentProcessingSummary>cns:Amount"`
	PaymentTypeCode string      `xml:"cns:PaymentProcessingSummary>cns:PaymentTypeCode"`
}

// OrderCreate renders an order creation request.
func OrderCreate(req OrderCreateRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}

	switch {
	case len(req.Offers) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "order create needs at least one offer")
	case len(req.Passengers) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "order create needs at least one passenger")
	case strings.TrimSpace(req.Contact.Email) == "" && strings.TrimSpace(req.Contact.PhoneNumber) == "":
		return "", ndc.Errorf(ndc.InvalidRequestErr, "order create needs an email or phone contact")
	}

	order, paxIDs, err := orderPassengerIDs(req.Passengers)
	if err != nil {
		return "", err
	}

	var lists wireDataLists
	lists.ContactInfos = []wireContactInfo{renderContact(req.Contact)}

	for i, p := range req.Passengers {
		pax, err := renderPassenger(p, order[i], paxIDs)
		if err != nil {
			return "", err
		}
		lists.Paxs = append(lists.Paxs, pax)
	}

	for i, s := range req.PassiveSegments {
		if err := validateSegment(s); err != nil {
			return "", err
		}
		forms := ndcid.NormalizeSegmentID(ndcid.SyntheticID(ndcid.KindPassiveSegment, i+1))
		appendSegment(&lists, forms, s, cfg.CabinOr(s.CabinCode), passiveSegmentTypeCode)
		lists.PaxJourneys = append(lists.PaxJourneys, wirePaxJourney{
			ID:            ndcid.SyntheticID(ndcid.KindPassiveJourney, i+1),
			SegmentRefIDs: []string{forms.Clean},
		})
	}

	offers, err := renderSelectedOffers(req, cfg, paxIDs)
	if err != nil {
		return "", err
	}

	doc := orderCreateRQ{
		Envelope: env,
		Request: orderCreateRequest{
			Offers:    offers,
			DataLists: lists,
		},
	}
	if req.Payment != nil {
		code := ndc.NormalizeCode(req.Payment.TypeCode)
		if code == "" {
			code = "CA"
		}
		amount := req.Payment.Amount
		amount.Currency = cfg.CurrencyOr(amount.Currency)
		doc.Request.PaymentFunctions = &wirePaymentFunctions{
			Amount:          ndc.NewAmount(amount),
			PaymentTypeCode: code,
		}
	}

	logrus.WithFields(logrus.Fields{
		"operation":        ndc.OpOrderCreate,
		"passengers":       len(lists.Paxs),
		"passive-segments": len(req.PassiveSegments),
	}).Debug("Built OrderCreate request.")

	return ndc.Marshal(doc)
}

// orderPassengerIDs keeps the airline's passenger ids, synthesizing one only
// when a passenger has none. It returns the ids in passenger order and an
// index from every accepted reference to its id.
func orderPassengerIDs(passengers []ndc.Passenger) ([]string, map[string]string, error) {
	order := make([]string, 0, len(passengers))
	index := map[string]string{}
	perType := map[ndc.PaxType]int{}
	for _, p := range passengers {
		if !p.Type.Valid() {
			return nil, nil, ndc.Errorf(ndc.InvalidRequestErr, "passenger %q has unsupported type %q", p.PaxID, p.Type)
		}
		id := p.PaxID
		if id == "" {
			id = ndcid.SyntheticPaxID(string(p.Type), perType[p.Type])
		}
		perType[p.Type]++
		if _, dup := index[id]; dup {
			return nil, nil, ndc.Errorf(ndc.InvalidRequestErr, "passenger id %q declared twice", id)
		}
		index[id] = id
		order = append(order, id)
	}
	return order, index, nil
}

func renderContact(c Contact) wireContactInfo {
	ci := wireContactInfo{ID: contactInfoID, Email: strings.TrimSpace(c.Email)}
	if c.PhoneNumber != "" {
		ci.Phone = &wirePhone{CountryDialingCode: c.CountryDialingCode, PhoneNumber: c.PhoneNumber}
	}
	if c.Street != "" || c.City != "" || c.PostalCode != "" || c.CountryCode != "" {
		ci.Postal = &wirePostal{
			CityName:    c.City,
			CountryCode: ndc.NormalizeCode(c.CountryCode),
			PostalCode:  c.PostalCode,
			StreetText:  c.Street,
		}
	}
	return ci
}

func renderPassenger(p ndc.Passenger, id string, ids map[string]string) (wirePax, error) {
	pax := wirePax{
		ID:               id,
		PTC:              string(p.Type),
		ContactInfoRefID: contactInfoID,
	}
	if p.Surname != "" {
		pax.Individual = &wireIndividual{
			Birthdate:  p.Birthdate,
			GenderCode: ndc.NormalizeCode(p.Gender),
			GivenName:  p.GivenName,
			Surname:    p.Surname,
			TitleName:  p.Title,
		}
	}
	if d := p.Document; d != nil && d.Number != "" {
		pax.IdentityDoc = &wireIdentityDoc{
			ExpiryDate:             d.Expiry,
			IdentityDocID:          d.Number,
			IdentityDocTypeCode:    IdentityDocTypeCode(d.Type),
			IssuingCountryCode:     ndc.NormalizeCode(d.IssuingCountry),
			CitizenshipCountryCode: ndc.NormalizeCode(d.Nationality),
		}
	}
	if l := p.Loyalty; l != nil && l.AccountNumber != "" {
		pax.Loyalty = &wireLoyalty{AirlineDesigCode: ndc.NormalizeCode(l.AirlineCode), AccountNumber: l.AccountNumber}
	}
	if p.Type == ndc.PaxInfant && p.AccompanyingPaxID != "" {
		adult, ok := ids[p.AccompanyingPaxID]
		if !ok {
			return wirePax{}, ndc.Errorf(ndc.UnresolvedReferenceErr, "infant %q travels with undeclared passenger %q", id, p.AccompanyingPaxID)
		}
		pax.PaxRefID = adult
	}
	return pax, nil
}

// IdentityDocTypeCode returns the airline's code for a caller document type.
func IdentityDocTypeCode(docType string) string {
	code := ndc.NormalizeCode(docType)
	if mapped, ok := identityDocTypes[code]; ok {
		return mapped
	}
	return code
}

func renderSelectedOffers(req OrderCreateRequest, cfg ndc.PartyConfig, paxIDs map[string]string) ([]wireSelectedOffer, error) {
	out := make([]wireSelectedOffer, 0, len(req.Offers))
	for _, o := range req.Offers {
		if o.OfferID == "" || len(o.Items) == 0 {
			return nil, ndc.Errorf(ndc.InvalidRequestErr, "selected offer %q has no id or no items", o.OfferID)
		}
		owner := ndc.NormalizeCode(o.OwnerCode)
		if owner == "" {
			owner = cfg.OwnerCode
		}
		if owner == "" {
			return nil, ndc.Errorf(ndc.InvalidRequestErr, "selected offer %q has no owner code", o.OfferID)
		}

		wo := wireSelectedOffer{
			OfferRefID:            o.OfferID,
			OwnerCode:             owner,
			ShoppingResponseRefID: req.ShoppingResponseID,
		}
		for _, item := range o.Items {
			if item.OfferItemID == "" {
				return nil, ndc.Errorf(ndc.InvalidRequestErr, "selected offer %q has an item without id", o.OfferID)
			}
			wi := wireSelectedOfferItem{OfferItemRefID: item.OfferItemID}
			for _, ref := range item.PaxIDs {
				id, ok := paxIDs[ref]
				if !ok {
					return nil, ndc.Errorf(ndc.UnresolvedReferenceErr, "offer item %q refers to undeclared passenger %q", item.OfferItemID, ref)
				}
				wi.PaxRefIDs = append(wi.PaxRefIDs, id)
			}
			if s := item.Seat; s != nil {
				if s.Row <= 0 || s.Column == "" || s.SegmentRefID == "" {
					return nil, ndc.Errorf(ndc.InvalidRequestErr, "seat on offer item %q is incomplete", item.OfferItemID)
				}
				wi.Seat = &wireSelectedSeat{
					ColumnID:        ndc.NormalizeCode(s.Column),
					PaxSegmentRefID: s.SegmentRefID,
					SeatRowNumber:   strconv.Itoa(s.Row),
				}
			}
			wo.Items = append(wo.Items, wi)
		}
		out = append(out, wo)
	}
	return out, nil
}
