// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// ServiceListResult holds the ancillary catalog of a ServiceList response.
type ServiceListResult struct {
	ndc.Result
	ShoppingResponseID string                  `json:"shoppingResponseId,omitempty"`
	Services           []ndc.ServiceDefinition `json:"services"`
	OfferItems         []ndc.OfferItem         `json:"offerItems"`
	Ancillaries        []ndc.AncillaryOffer    `json:"ancillaries"`
}

// xmlRefList captures the text of every child element of a reference block.
type xmlRefList struct {
	Refs []string `xml:",any"`
}

type xmlFlightAssociations struct {
	PaxJourneyRef        *xmlRefList `xml:"PaxJourneyRef"`
	PaxSegmentReferences *xmlRefList `xml:"PaxSegmentReferences"`
	DatedOperatingLegRef *xmlRefList `xml:"DatedOperatingLegRef"`
}

type xmlEligibility struct {
	PaxRefIDs          []string              `xml:"PaxRefID"`
	FlightAssociations xmlFlightAssociations `xml:"FlightAssociations"`
	xmlFlightAssociations
}

// association picks the reference block of an eligibility. When more than one
// is present journey wins over segment, and segment over leg.
func (e xmlEligibility) association(offerItemID string) (ndc.AssociationType, []string) {
	journey := firstRefList(e.PaxJourneyRef, e.FlightAssociations.PaxJourneyRef)
	segment := firstRefList(e.PaxSegmentReferences, e.FlightAssociations.PaxSegmentReferences)
	leg := firstRefList(e.DatedOperatingLegRef, e.FlightAssociations.DatedOperatingLegRef)

	present := 0
	for _, l := range []*xmlRefList{journey, segment, leg} {
		if l != nil {
			present++
		}
	}
	if present > 1 {
		logrus.WithFields(logrus.Fields{
			"offer-item-id": offerItemID,
			"blocks":        present,
		}).Debug("Eligibility carries more than one association block.")
	}

	switch {
	case journey != nil:
		return ndc.AssociationJourney, trimAll(journey.Refs)
	case segment != nil:
		return ndc.AssociationSegment, trimAll(segment.Refs)
	case leg != nil:
		return ndc.AssociationLeg, trimAll(leg.Refs)
	}
	return ndc.AssociationUnknown, nil
}

func firstRefList(lists ...*xmlRefList) *xmlRefList {
	for _, l := range lists {
		if l != nil {
			return l
		}
	}
	return nil
}

type xmlALaCarteOfferItem struct {
	OfferItemID     string         `xml:"OfferItemID"`
	OfferItemIDAttr string         `xml:"OfferItemID,attr"`
	Eligibility     xmlEligibility `xml:"Eligibility"`
	UnitPrice       *ndc.Amount    `xml:"UnitPrice>TotalAmount"`
	Price           *ndc.Amount    `xml:"Price>TotalAmount"`
	Service         struct {
		ServiceID              string `xml:"ServiceID"`
		ServiceDefinitionRefID string `xml:"ServiceDefinitionRefID"`
		ServiceDefinitionRef   string `xml:"ServiceDefinitionRef>ServiceDefinitionRefID"`
		ServiceRefID           string `xml:"ServiceRefID"`
	} `xml:"Service"`
}

func (it xmlALaCarteOfferItem) id() string {
	return first(it.OfferItemID, it.OfferItemIDAttr)
}

func (it xmlALaCarteOfferItem) price() *ndc.Amount {
	if it.UnitPrice != nil {
		return it.UnitPrice
	}
	return it.Price
}

func (it xmlALaCarteOfferItem) definitionRef() string {
	return first(it.Service.ServiceDefinitionRefID, it.Service.ServiceDefinitionRef, it.Service.ServiceRefID)
}

type xmlALaCarteOffer struct {
	OfferID     string                 `xml:"OfferID"`
	OfferIDAttr string                 `xml:"OfferID,attr"`
	OwnerCode   string                 `xml:"OwnerCode"`
	Items       []xmlALaCarteOfferItem `xml:"ALaCarteOfferItem"`
}

type xmlServiceDefinition struct {
	ServiceDefinitionID     string   `xml:"ServiceDefinitionID"`
	ServiceDefinitionIDAttr string   `xml:"ServiceDefinitionID,attr"`
	ServiceID               string   `xml:"ServiceID"`
	Name                    string   `xml:"Name"`
	ServiceCode             string   `xml:"ServiceCode"`
	Code                    string   `xml:"Encoding>Code"`
	RFIC                    string   `xml:"RFIC"`
	EncodingRFIC            string   `xml:"Encoding>RFIC"`
	RFISC                   string   `xml:"RFISC"`
	SubCode                 string   `xml:"Encoding>SubCode"`
	DescText                []string `xml:"Desc>DescText"`
	BundleRefs              []string `xml:"ServiceDefinitionAssociation>ServiceBundle>ServiceDefinitionRefID"`
}

func (d xmlServiceDefinition) definition() ndc.ServiceDefinition {
	def := ndc.ServiceDefinition{
		ServiceID:          first(d.ServiceDefinitionID, d.ServiceDefinitionIDAttr, d.ServiceID),
		ServiceCode:        ndc.NormalizeCode(first(d.ServiceCode, d.Code, d.RFISC, d.SubCode)),
		Name:               strings.TrimSpace(d.Name),
		RFIC:               ndc.NormalizeCode(first(d.RFIC, d.EncodingRFIC)),
		RFISC:              ndc.NormalizeCode(first(d.RFISC, d.SubCode)),
		IncludedServiceIDs: trimAll(d.BundleRefs),
	}
	if len(d.DescText) > 0 {
		def.Description = strings.TrimSpace(d.DescText[0])
	}
	def.Category = ClassifyService(def.ServiceCode, def.Name, def.RFIC)
	return def
}

type xmlServiceListRS struct {
	ShoppingResponseID string                 `xml:"Response>ShoppingResponse>ShoppingResponseID"`
	Offers             []xmlALaCarteOffer     `xml:"Response>ALaCarteOffer"`
	Definitions        []xmlServiceDefinition `xml:"Response>DataLists>ServiceDefinitionList>ServiceDefinition"`
}

// ParseServiceList parses a ServiceList response: service definitions are
// classified, every offer item is returned raw, and items are folded into
// caller-facing ancillaries with bundles grouped across passenger types.
func ParseServiceList(doc string) (*ServiceListResult, error) {
	s, err := scan(doc, ndc.OpServiceList.ResponseRoot())
	if err != nil {
		return nil, err
	}

	var rs xmlServiceListRS
	if err := unmarshal(doc, &rs); err != nil {
		return nil, err
	}

	res := &ServiceListResult{ShoppingResponseID: strings.TrimSpace(rs.ShoppingResponseID)}

	defs := map[string]ndc.ServiceDefinition{}
	for _, d := range rs.Definitions {
		def := d.definition()
		res.Services = append(res.Services, def)
		if def.ServiceID != "" {
			defs[def.ServiceID] = def
		}
	}

	var raw []rawItem
	for _, o := range rs.Offers {
		offerID := first(o.OfferID, o.OfferIDAttr)
		for _, it := range o.Items {
			id := it.id()
			assoc, refs := it.Eligibility.association(id)
			item := ndc.OfferItem{
				OfferItemID:            id,
				PaxRefIDs:              dedupe(trimAll(it.Eligibility.PaxRefIDs)),
				Price:                  it.price().Money(""),
				Association:            assoc,
				ServiceDefinitionRefID: it.definitionRef(),
			}
			switch assoc {
			case ndc.AssociationJourney:
				item.JourneyRefIDs = refs
			case ndc.AssociationSegment:
				item.SegmentRefIDs = refs
			case ndc.AssociationLeg:
				item.LegRefIDs = refs
			}
			res.OfferItems = append(res.OfferItems, item)
			raw = append(raw, rawItem{offerID: offerID, item: item, def: defs[item.ServiceDefinitionRefID]})
		}
	}

	res.Ancillaries = groupAncillaries(raw)

	recovered := len(res.Services) > 0 || len(res.OfferItems) > 0
	res.Result = settle(ndc.OpServiceList, s, recovered)
	return res, nil
}

type rawItem struct {
	offerID string
	item    ndc.OfferItem
	def     ndc.ServiceDefinition
}

func ancillaryOf(r rawItem) ndc.AncillaryOffer {
	category := r.def.Category
	if category == "" {
		category = ndc.CategoryOther
	}
	return ndc.AncillaryOffer{
		OfferID:            r.offerID,
		OfferItemID:        r.item.OfferItemID,
		ServiceID:          r.def.ServiceID,
		ServiceCode:        r.def.ServiceCode,
		Name:               r.def.Name,
		Category:           category,
		PaxRefIDs:          append([]string(nil), r.item.PaxRefIDs...),
		Association:        r.item.Association,
		SegmentRefIDs:      r.item.SegmentRefIDs,
		JourneyRefIDs:      r.item.JourneyRefIDs,
		LegRefIDs:          r.item.LegRefIDs,
		Price:              r.item.Price,
		IncludedServiceIDs: r.def.IncludedServiceIDs,
	}
}

// groupAncillaries folds raw items into ancillaries. The airline sends one
// bundle item per passenger type; items with the same service code and the
// same flight references become one ancillary whose passengers are the
// union of the items', represented by the first item's id. Everything else
// maps one to one.
func groupAncillaries(raw []rawItem) []ndc.AncillaryOffer {
	var out []ndc.AncillaryOffer
	groups := map[string]int{}

	for _, r := range raw {
		a := ancillaryOf(r)
		if a.Category != ndc.CategoryBundle {
			out = append(out, a)
			continue
		}

		key := bundleKey(a)
		i, ok := groups[key]
		if !ok {
			a.GroupedOfferItemIDs = []string{a.OfferItemID}
			groups[key] = len(out)
			out = append(out, a)
			continue
		}

		g := &out[i]
		g.GroupedOfferItemIDs = append(g.GroupedOfferItemIDs, a.OfferItemID)
		for _, pax := range a.PaxRefIDs {
			if !contains(g.PaxRefIDs, pax) {
				g.PaxRefIDs = append(g.PaxRefIDs, pax)
			}
		}
	}
	return out
}

func bundleKey(a ndc.AncillaryOffer) string {
	var refs []string
	switch a.Association {
	case ndc.AssociationJourney:
		refs = a.JourneyRefIDs
	case ndc.AssociationSegment:
		refs = a.SegmentRefIDs
	case ndc.AssociationLeg:
		refs = a.LegRefIDs
	}
	sorted := append([]string(nil), refs...)
	sort.Strings(sorted)
	return a.ServiceCode + "|" + string(a.Association) + "|" + strings.Join(sorted, ",")
}
