// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// occupationFree is the occupation status of a seat that can be sold.
const occupationFree = "F"

// SeatOfferItem is a priced seat offer item and the passenger types it may be
// sold to.
type SeatOfferItem struct {
	OfferID     string    `json:"offerId"`
	OfferItemID string    `json:"offerItemId"`
	Price       ndc.Money `json:"price"`
	PaxTypes    []string  `json:"paxTypes,omitempty"`
}

// Seat is one seat of a seat map.
type Seat struct {
	Row                   int                  `json:"row"`
	Column                string               `json:"column"`
	Available             bool                 `json:"available"`
	Occupation            string               `json:"occupation,omitempty"`
	Characteristics       []string             `json:"characteristics,omitempty"`
	OfferItemIDsByPaxType map[string]string    `json:"offerItemIdsByPaxType"`
	PriceByPaxType        map[string]ndc.Money `json:"priceByPaxType,omitempty"`
}

// Designator renders the seat as row and column, e.g. 12C.
func (s Seat) Designator() string {
	return strconv.Itoa(s.Row) + s.Column
}

// SeatMap is the seat layout of one segment.
type SeatMap struct {
	SegmentRefID string `json:"segmentRefId"`
	Cabin        string `json:"cabin,omitempty"`
	Seats        []Seat `json:"seats"`
}

// SeatAvailabilityResult is a parsed SeatAvailability response.
type SeatAvailabilityResult struct {
	ndc.Result
	OfferItems map[string]SeatOfferItem `json:"offerItems"`
	SeatMaps   []SeatMap                `json:"seatMaps"`
}

type xmlSeat struct {
	ColumnID             string   `xml:"ColumnID"`
	ColumnIDAttr         string   `xml:"ColumnID,attr"`
	OccupationStatusCode string   `xml:"OccupationStatusCode"`
	SeatStatusCode       string   `xml:"SeatStatusCode"`
	Characteristics      []string `xml:"SeatCharacteristicCode"`
	OfferItemRefIDs      []string `xml:"OfferItemRefID"`
}

type xmlSeatRow struct {
	RowNumber     string    `xml:"RowNumber"`
	RowNumberAttr string    `xml:"RowNumber,attr"`
	Seats         []xmlSeat `xml:"Seat"`
}

type xmlCabinCompartment struct {
	CabinTypeCode string       `xml:"CabinType>CabinTypeCode"`
	Rows          []xmlSeatRow `xml:"SeatRow"`
}

type xmlSeatMap struct {
	PaxSegmentRefID string                `xml:"PaxSegmentRefID"`
	SegmentRefAttr  string                `xml:"PaxSegmentRefID,attr"`
	Cabins          []xmlCabinCompartment `xml:"CabinCompartment"`
}

type xmlSeatAvailabilityRS struct {
	Offers   []xmlALaCarteOffer `xml:"Response>ALaCarteOffer"`
	SeatMaps []xmlSeatMap       `xml:"Response>SeatMap"`
	Paxs     []xmlPax           `xml:"Response>DataLists>PaxList>Pax"`
}

// ParseSeatAvailability parses a SeatAvailability response. Seat offer items
// are indexed first; each seat's item references are then resolved against
// that index into one item per passenger type. Seats whose references cannot
// be resolved are kept with an empty table.
func ParseSeatAvailability(doc string) (*SeatAvailabilityResult, error) {
	s, err := scan(doc, ndc.OpSeatAvailability.ResponseRoot())
	if err != nil {
		return nil, err
	}

	var rs xmlSeatAvailabilityRS
	if err := unmarshal(doc, &rs); err != nil {
		return nil, err
	}

	res := &SeatAvailabilityResult{
		OfferItems: indexSeatOfferItems(rs.Offers, paxTypes(rs.Paxs)),
	}

	unresolved := 0
	for _, m := range rs.SeatMaps {
		sm := SeatMap{SegmentRefID: first(m.PaxSegmentRefID, m.SegmentRefAttr)}
		for _, c := range m.Cabins {
			if sm.Cabin == "" {
				sm.Cabin = strings.TrimSpace(c.CabinTypeCode)
			}
			for _, row := range c.Rows {
				n, _ := strconv.Atoi(first(row.RowNumber, row.RowNumberAttr))
				for _, xs := range row.Seats {
					seat, missed := resolveSeat(n, xs, res.OfferItems)
					unresolved += missed
					sm.Seats = append(sm.Seats, seat)
				}
			}
		}
		res.SeatMaps = append(res.SeatMaps, sm)
	}

	if unresolved > 0 {
		logrus.WithFields(logrus.Fields{
			"references": unresolved,
		}).Debug("Seat offer item references did not resolve.")
	}

	recovered := len(res.SeatMaps) > 0 || len(res.OfferItems) > 0
	res.Result = settle(ndc.OpSeatAvailability, s, recovered)
	return res, nil
}

// indexSeatOfferItems maps every a la carte offer item to its price and the
// passenger types of its eligible passengers. An item naming no passengers is
// eligible for every passenger type in the response.
func indexSeatOfferItems(offers []xmlALaCarteOffer, ptcs map[string]string) map[string]SeatOfferItem {
	var everyone []string
	for _, ptc := range ptcs {
		if ptc != "" && !contains(everyone, ptc) {
			everyone = append(everyone, ptc)
		}
	}
	sort.Strings(everyone)

	out := map[string]SeatOfferItem{}
	for _, o := range offers {
		offerID := first(o.OfferID, o.OfferIDAttr)
		for _, it := range o.Items {
			id := it.id()
			if id == "" {
				continue
			}
			item := SeatOfferItem{
				OfferID:     offerID,
				OfferItemID: id,
				Price:       it.price().Money(""),
			}
			refs := trimAll(it.Eligibility.PaxRefIDs)
			if len(refs) == 0 {
				item.PaxTypes = append([]string(nil), everyone...)
			}
			for _, ref := range refs {
				if ptc := paxType(ptcs, ref); ptc != "" && !contains(item.PaxTypes, ptc) {
					item.PaxTypes = append(item.PaxTypes, ptc)
				}
			}
			out[id] = item
		}
	}
	return out
}

// resolveSeat builds a seat and returns how many of its references were not
// found in items. The first item seen for a passenger type wins.
func resolveSeat(row int, xs xmlSeat, items map[string]SeatOfferItem) (Seat, int) {
	seat := Seat{
		Row:                   row,
		Column:                ndc.NormalizeCode(first(xs.ColumnID, xs.ColumnIDAttr)),
		Occupation:            ndc.NormalizeCode(first(xs.OccupationStatusCode, xs.SeatStatusCode)),
		Characteristics:       trimAll(xs.Characteristics),
		OfferItemIDsByPaxType: map[string]string{},
	}

	missed := 0
	for _, ref := range trimAll(xs.OfferItemRefIDs) {
		item, ok := items[ref]
		if !ok {
			missed++
			continue
		}
		for _, ptc := range item.PaxTypes {
			if _, taken := seat.OfferItemIDsByPaxType[ptc]; taken {
				continue
			}
			seat.OfferItemIDsByPaxType[ptc] = item.OfferItemID
			if seat.PriceByPaxType == nil {
				seat.PriceByPaxType = map[string]ndc.Money{}
			}
			seat.PriceByPaxType[ptc] = item.Price
		}
	}

	seat.Available = seat.Occupation == occupationFree ||
		(seat.Occupation == "" && len(seat.OfferItemIDsByPaxType) > 0)
	return seat, missed
}
