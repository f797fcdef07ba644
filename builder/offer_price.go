// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// LongSellRequest carries everything previously sold for an itinerary so it
// can be repriced in one self-contained OfferPrice request. Items refer to
// segments, journeys and passengers by the ids used in this request.
type LongSellRequest struct {
	Segments   []ndc.Segment   `json:"segments"`
	Journeys   []ndc.Journey   `json:"journeys"`
	Passengers []ndc.Passenger `json:"passengers"`

	Flights []FlightSelection `json:"flights"`
	Bundles []BundleSelection `json:"bundles,omitempty"`
	SSRs    []SSRSelection    `json:"ssrs,omitempty"`
	Seats   []SeatSelection   `json:"seats,omitempty"`

	// CardBrand names the card the surcharge is calculated for, e.g. VI.
	CardBrand string `json:"cardBrand"`
	OwnerCode string `json:"ownerCode,omitempty"`

	// Annotate adds comment lines describing each offer item.
	Annotate bool `json:"annotate,omitempty"`
}

// FlightSelection sells one journey. An empty PaxIDs sells it to everyone.
type FlightSelection struct {
	JourneyID   string   `json:"journeyId"`
	OfferItemID string   `json:"offerItemId,omitempty"`
	PaxIDs      []string `json:"paxIds,omitempty"`
}

// BundleSelection sells a bundle on one journey. Infants are never included.
type BundleSelection struct {
	JourneyID   string   `json:"journeyId"`
	ServiceCode string   `json:"serviceCode"`
	ServiceName string   `json:"serviceName,omitempty"`
	OfferItemID string   `json:"offerItemId,omitempty"`
	PaxIDs      []string `json:"paxIds"`
}

// SSRSelection sells a special service on one segment for one passenger.
type SSRSelection struct {
	SegmentID   string `json:"segmentId"`
	PaxID       string `json:"paxId"`
	ServiceCode string `json:"serviceCode"`
	ServiceName string `json:"serviceName,omitempty"`
}

// SeatSelection sells a seat on one segment for one passenger.
type SeatSelection struct {
	SegmentID   string `json:"segmentId"`
	PaxID       string `json:"paxId"`
	Row         int    `json:"row"`
	Column      string `json:"column"`
	OfferItemID string `json:"offerItemId,omitempty"`
}

type offerPriceRQ struct {
	XMLName xml.Name `xml:"IATA_OfferPriceRQ"`
	ndc.Envelope
	Request offerPriceRequest `xml:"Request"`
}

type offerPriceRequest struct {
	DataLists     wireDataLists       `xml:"cns:DataLists"`
	PaymentMethod wirePaymentCriteria `xml:"cns:PaymentMethodCriteria"`
	PricedOffer   wirePricedOffer     `xml:"cns:PricedOffer"`
}

type wirePaymentCriteria struct {
	PaymentTypeCode  string `xml:"cns:PaymentTypeCode"`
	PaymentBrandCode string `xml:"cns:PaymentBrandCode"`
}

type wirePricedOffer struct {
	OfferItems []wireSellItem `xml:"cns:OfferItem"`
}

type wireSellItem struct {
	Comment     string            `xml:",comment"`
	OfferItemID string            `xml:"cns:OfferItemID"`
	OwnerCode   string            `xml:"cns:OwnerCode"`
	PaxRefIDs   []string          `xml:"cns:PaxRefID"`
	Services    []wireSellService `xml:"cns:Service"`
}

type wireSellService struct {
	ServiceID              string   `xml:"cns:ServiceID"`
	PaxRefIDs              []string `xml:"cns:PaxRefID"`
	PaxJourneyRefID        string   `xml:"cns:ServiceAssociations>cns:PaxJourneyRefID,omitempty"`
	PaxSegmentRefID        string   `xml:"cns:ServiceAssociations>cns:PaxSegmentRefID,omitempty"`
	ServiceDefinitionRefID string   `xml:"cns:ServiceAssociations>cns:ServiceDefinitionRefID,omitempty"`
	SeatRowNumber          string   `xml:"cns:ServiceAssociations>cns:SelectedSeat>cns:SeatRowNumber,omitempty"`
	SeatColumnID           string   `xml:"cns:ServiceAssociations>cns:SelectedSeat>cns:ColumnID,omitempty"`
}

// paymentTypeCard is the only payment type a long sell prices.
const paymentTypeCard = "CC"

// OfferPriceLongSell renders a standalone OfferPrice request for a complete
// set of previously sold items. When every segment id carries a Mkt-/Opr-
// prefix the airline's ids are reused verbatim; otherwise segment, journey
// and passenger ids are synthesized.
func OfferPriceLongSell(req LongSellRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}

	switch {
	case len(req.Segments) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "long sell needs at least one segment")
	case len(req.Passengers) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "long sell needs at least one passenger")
	case len(req.Flights) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "long sell needs at least one flight")
	case strings.TrimSpace(req.CardBrand) == "":
		return "", ndc.Errorf(ndc.InvalidRequestErr, "long sell needs a card brand")
	}

	owner := ndc.NormalizeCode(req.OwnerCode)
	if owner == "" {
		owner = cfg.OwnerCode
	}
	if owner == "" {
		owner = ndc.NormalizeCode(req.Segments[0].MarketingCarrier)
	}

	ids, err := resolveIdentities(req.Segments, req.Journeys, req.Passengers)
	if err != nil {
		return "", err
	}

	b := &longSell{req: req, cfg: cfg, ids: ids, owner: owner}
	if err := b.dataLists(); err != nil {
		return "", err
	}
	if err := b.offerItems(); err != nil {
		return "", err
	}

	doc := offerPriceRQ{
		Envelope: env,
		Request: offerPriceRequest{
			DataLists: b.lists,
			PaymentMethod: wirePaymentCriteria{
				PaymentTypeCode:  paymentTypeCard,
				PaymentBrandCode: ndc.NormalizeCode(req.CardBrand),
			},
			PricedOffer: wirePricedOffer{OfferItems: b.items},
		},
	}

	logrus.WithFields(logrus.Fields{
		"operation":       ndc.OpOfferPrice,
		"identity-source": ids.source.String(),
		"offer-items":     len(b.items),
	}).Debug("Built long sell OfferPrice request.")

	return ndc.Marshal(doc)
}

type longSell struct {
	req   LongSellRequest
	cfg   ndc.PartyConfig
	ids   *identities
	owner string

	lists wireDataLists
	items []wireSellItem

	// service definitions by code, in first-use order
	definitions map[string]string

	nextItem    int
	nextService int
}

func (b *longSell) dataLists() error {
	for i, s := range b.req.Segments {
		if err := validateSegment(s); err != nil {
			return err
		}
		appendSegment(&b.lists, b.ids.segments[i], s, b.cfg.CabinOr(s.CabinCode), "")
	}

	for i, j := range b.req.Journeys {
		if len(j.SegmentIDs) == 0 {
			return ndc.Errorf(ndc.InvalidRequestErr, "journey %q has no segments", j.JourneyID)
		}
		pj := wirePaxJourney{ID: b.ids.journeys[i]}
		for _, ref := range j.SegmentIDs {
			forms, err := b.ids.segment(ref)
			if err != nil {
				return err
			}
			pj.SegmentRefIDs = append(pj.SegmentRefIDs, forms.Clean)
		}
		b.lists.PaxJourneys = append(b.lists.PaxJourneys, pj)
	}

	for i, p := range b.req.Passengers {
		pax := wirePax{ID: b.ids.pax[i], PTC: string(p.Type)}
		if p.Type == ndc.PaxInfant && p.AccompanyingPaxID != "" {
			adult, _, err := b.ids.passenger(p.AccompanyingPaxID)
			if err != nil {
				return err
			}
			pax.PaxRefID = adult
		}
		b.lists.Paxs = append(b.lists.Paxs, pax)
	}
	return nil
}

func (b *longSell) offerItemID(explicit string) string {
	b.nextItem++
	if explicit != "" {
		return explicit
	}
	return ndcid.SyntheticID(ndcid.KindOfferItem, b.nextItem)
}

func (b *longSell) serviceID() string {
	b.nextService++
	return ndcid.SyntheticID(ndcid.KindService, b.nextService)
}

// definition registers a service definition for code and returns its id.
func (b *longSell) definition(code, name string) string {
	code = ndc.NormalizeCode(code)
	if b.definitions == nil {
		b.definitions = map[string]string{}
	}
	if id, ok := b.definitions[code]; ok {
		return id
	}
	if name == "" {
		name = code
	}
	b.definitions[code] = code
	b.lists.ServiceDefinitions = append(b.lists.ServiceDefinitions, wireServiceDefinition{
		ID:          code,
		OwnerCode:   b.owner,
		Name:        name,
		ServiceCode: code,
		Description: name,
	})
	return code
}

func (b *longSell) comment(format string, args ...interface{}) string {
	if !b.req.Annotate {
		return ""
	}
	return ndc.Comment(fmt.Sprintf(format, args...))
}

func (b *longSell) offerItems() error {
	for _, f := range b.req.Flights {
		journey, err := b.ids.journey(f.JourneyID)
		if err != nil {
			return err
		}
		pax, err := b.ids.passengers(f.PaxIDs)
		if err != nil {
			return err
		}
		b.items = append(b.items, wireSellItem{
			Comment:     b.comment("flight %s", journey),
			OfferItemID: b.offerItemID(f.OfferItemID),
			OwnerCode:   b.owner,
			PaxRefIDs:   pax,
			Services: []wireSellService{{
				ServiceID:       b.serviceID(),
				PaxRefIDs:       pax,
				PaxJourneyRefID: journey,
			}},
		})
	}

	for _, bundle := range b.req.Bundles {
		if bundle.ServiceCode == "" {
			return ndc.Errorf(ndc.InvalidRequestErr, "bundle on journey %q has no service code", bundle.JourneyID)
		}
		journey, err := b.ids.journey(bundle.JourneyID)
		if err != nil {
			return err
		}
		pax, err := b.bundlePassengers(bundle)
		if err != nil {
			return err
		}
		def := b.definition(bundle.ServiceCode, bundle.ServiceName)
		b.items = append(b.items, wireSellItem{
			Comment:     b.comment("bundle %s on %s", def, journey),
			OfferItemID: b.offerItemID(bundle.OfferItemID),
			OwnerCode:   b.owner,
			PaxRefIDs:   pax,
			Services: []wireSellService{{
				ServiceID:              b.serviceID(),
				PaxRefIDs:              pax,
				PaxJourneyRefID:        journey,
				ServiceDefinitionRefID: def,
			}},
		})
	}

	for _, ssr := range b.req.SSRs {
		if ssr.ServiceCode == "" {
			return ndc.Errorf(ndc.InvalidRequestErr, "ssr on segment %q has no service code", ssr.SegmentID)
		}
		forms, err := b.ids.segment(ssr.SegmentID)
		if err != nil {
			return err
		}
		pax, _, err := b.ids.passenger(ssr.PaxID)
		if err != nil {
			return err
		}
		def := b.definition(ssr.ServiceCode, ssr.ServiceName)
		b.items = append(b.items, wireSellItem{
			Comment:     b.comment("ssr %s for %s on %s", def, pax, forms.Clean),
			OfferItemID: b.offerItemID(""),
			OwnerCode:   b.owner,
			PaxRefIDs:   []string{pax},
			Services: []wireSellService{{
				ServiceID:              b.serviceID(),
				PaxRefIDs:              []string{pax},
				PaxSegmentRefID:        forms.Clean,
				ServiceDefinitionRefID: def,
			}},
		})
	}

	for _, seat := range b.req.Seats {
		if seat.Row <= 0 || strings.TrimSpace(seat.Column) == "" {
			return ndc.Errorf(ndc.InvalidRequestErr, "seat on segment %q has no row or column", seat.SegmentID)
		}
		forms, err := b.ids.segment(seat.SegmentID)
		if err != nil {
			return err
		}
		pax, _, err := b.ids.passenger(seat.PaxID)
		if err != nil {
			return err
		}
		row, col := strconv.Itoa(seat.Row), ndc.NormalizeCode(seat.Column)
		b.items = append(b.items, wireSellItem{
			Comment:     b.comment("seat %s%s for %s on %s", row, col, pax, forms.Clean),
			OfferItemID: b.offerItemID(seat.OfferItemID),
			OwnerCode:   b.owner,
			PaxRefIDs:   []string{pax},
			Services: []wireSellService{{
				ServiceID:       b.serviceID(),
				PaxRefIDs:       []string{pax},
				PaxSegmentRefID: forms.Clean,
				SeatRowNumber:   row,
				SeatColumnID:    col,
			}},
		})
	}
	return nil
}

// bundlePassengers resolves a bundle's passengers and leaves out infants.
func (b *longSell) bundlePassengers(bundle BundleSelection) ([]string, error) {
	if len(bundle.PaxIDs) == 0 {
		return nil, ndc.Errorf(ndc.InvalidRequestErr, "bundle %s on journey %q lists no passengers", bundle.ServiceCode, bundle.JourneyID)
	}
	var out []string
	seen := map[string]bool{}
	for _, ref := range bundle.PaxIDs {
		id, ptc, err := b.ids.passenger(ref)
		if err != nil {
			return nil, err
		}
		if ptc == ndc.PaxInfant {
			logrus.WithFields(logrus.Fields{"bundle": bundle.ServiceCode, "pax": id}).Debug("Skipping infant on bundle.")
			continue
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, ndc.Errorf(ndc.InvalidRequestErr, "bundle %s on journey %q has no paying passengers", bundle.ServiceCode, bundle.JourneyID)
	}
	return out, nil
}
