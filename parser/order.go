// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parser

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// BookingRef is an airline or GDS record locator.
type BookingRef struct {
	BookingID   string `json:"bookingId"`
	AirlineCode string `json:"airlineCode,omitempty"`
}

// GenericResult is what can be read from any NDC response.
type GenericResult struct {
	ndc.Result
	Root        string       `json:"root"`
	OrderID     string       `json:"orderId,omitempty"`
	OwnerCode   string       `json:"ownerCode,omitempty"`
	BookingRefs []BookingRef `json:"bookingRefs,omitempty"`
}

// OrderItem is one priced item of an order.
type OrderItem struct {
	OrderItemID string    `json:"orderItemId"`
	Status      string    `json:"status,omitempty"`
	Price       ndc.Money `json:"price"`
	PaxRefIDs   []string  `json:"paxRefIds,omitempty"`
	ServiceIDs  []string  `json:"serviceIds,omitempty"`
}

// OrderResult is a parsed order view.
type OrderResult struct {
	ndc.Result
	OrderID     string          `json:"orderId,omitempty"`
	OwnerCode   string          `json:"ownerCode,omitempty"`
	Status      string          `json:"status,omitempty"`
	BookingRefs []BookingRef    `json:"bookingRefs,omitempty"`
	Items       []OrderItem     `json:"items,omitempty"`
	Total       ndc.Money       `json:"total"`
	Passengers  []ndc.Passenger `json:"passengers,omitempty"`
}

type xmlOrderID struct {
	Owner     string `xml:"Owner,attr"`
	OwnerCode string `xml:"OwnerCode,attr"`
	Value     string `xml:",chardata"`
}

type xmlBookingRef struct {
	BookingID        string `xml:"BookingID"`
	BookingIDAttr    string `xml:"BookingID,attr"`
	AirlineDesigCode string `xml:"BookingEntity>Carrier>AirlineDesigCode"`
	AirlineID        string `xml:"AirlineID"`
	CarrierCode      string `xml:"CarrierDesigCode"`
}

type xmlOrder struct {
	OrderID     xmlOrderID      `xml:"OrderID"`
	OwnerCode   string          `xml:"OwnerCode"`
	StatusCode  string          `xml:"StatusCode"`
	Status      string          `xml:"OrderStatus"`
	BookingRefs []xmlBookingRef `xml:"BookingRef"`
	TotalPrice  *ndc.Amount     `xml:"TotalPrice>TotalAmount"`
	Items       []struct {
		OrderItemID string      `xml:"OrderItemID"`
		StatusCode  string      `xml:"StatusCode"`
		Price       *ndc.Amount `xml:"Price>TotalAmount"`
		Services    []struct {
			ServiceID string `xml:"ServiceID"`
			PaxRefID  string `xml:"PaxRefID"`
		} `xml:"Service"`
	} `xml:"OrderItem"`
}

// ownerCode reads the owner from the OrderID attribute, falling back to the
// sibling OwnerCode element.
func (o xmlOrder) ownerCode() string {
	return ndc.NormalizeCode(first(o.OrderID.Owner, o.OrderID.OwnerCode, o.OwnerCode))
}

func (o xmlOrder) bookingRefs() []BookingRef {
	var out []BookingRef
	for _, b := range o.BookingRefs {
		id := first(b.BookingID, b.BookingIDAttr)
		if id == "" {
			continue
		}
		out = append(out, BookingRef{
			BookingID:   id,
			AirlineCode: ndc.NormalizeCode(first(b.AirlineDesigCode, b.AirlineID, b.CarrierCode)),
		})
	}
	return out
}

type xmlOrderViewRS struct {
	Order []xmlOrder `xml:"Response>Order"`
	Paxs  []xmlPax   `xml:"Response>DataLists>PaxList>Pax"`
}

// ParseOrder parses an order view returned for OrderCreate or OrderRetrieve.
func ParseOrder(doc string) (*OrderResult, error) {
	s, err := scan(doc, ndc.OpOrderRetrieve.ResponseRoot())
	if err != nil {
		return nil, err
	}

	var rs xmlOrderViewRS
	if err := unmarshal(doc, &rs); err != nil {
		return nil, err
	}

	res := &OrderResult{}
	if len(rs.Order) > 0 {
		o := rs.Order[0]
		res.OrderID = strings.TrimSpace(o.OrderID.Value)
		res.OwnerCode = o.ownerCode()
		res.Status = first(o.StatusCode, o.Status)
		res.BookingRefs = o.bookingRefs()

		cur := ""
		if o.TotalPrice != nil {
			cur = strings.TrimSpace(o.TotalPrice.CurCode)
		}
		res.Total = o.TotalPrice.Money(cur)

		for _, it := range o.Items {
			item := OrderItem{
				OrderItemID: strings.TrimSpace(it.OrderItemID),
				Status:      strings.TrimSpace(it.StatusCode),
				Price:       it.Price.Money(cur),
			}
			seen := map[string]bool{}
			for _, svc := range it.Services {
				if id := strings.TrimSpace(svc.ServiceID); id != "" {
					item.ServiceIDs = append(item.ServiceIDs, id)
				}
				if pax := strings.TrimSpace(svc.PaxRefID); pax != "" && !seen[pax] {
					seen[pax] = true
					item.PaxRefIDs = append(item.PaxRefIDs, pax)
				}
			}
			res.Items = append(res.Items, item)
		}
	}
	for _, p := range rs.Paxs {
		res.Passengers = append(res.Passengers, p.passenger())
	}

	recovered := res.OrderID != "" || len(res.BookingRefs) > 0 || len(res.Items) > 0
	res.Result = settle(ndc.OpOrderRetrieve, s, recovered)
	return res, nil
}

// ParseGeneric reads the order id, owner and booking references from any
// response, wherever they appear. It serves operations without a dedicated
// parser.
func ParseGeneric(doc string) (*GenericResult, error) {
	s, err := scan(doc)
	if err != nil {
		return nil, err
	}

	res := &GenericResult{Root: s.root}
	hasPayload, inResponse := false, false

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed response document"))
		}
		if ee, ok := tok.(xml.EndElement); ok && ee.Name.Local == "Response" {
			inResponse = false
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		// Only a Response with content other than messages counts as
		// recovered data.
		if inResponse {
			switch se.Name.Local {
			case "Error", "Errors", "Warning", "Warnings":
				if err := dec.Skip(); err != nil {
					return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed response document"))
				}
				continue
			}
			hasPayload = true
		}

		switch se.Name.Local {
		case "Order":
			var o xmlOrder
			if err := dec.DecodeElement(&o, &se); err != nil {
				return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed Order element"))
			}
			if res.OrderID == "" {
				res.OrderID = strings.TrimSpace(o.OrderID.Value)
				res.OwnerCode = o.ownerCode()
			}
			res.BookingRefs = append(res.BookingRefs, o.bookingRefs()...)
		case "OrderID":
			var id xmlOrderID
			if err := dec.DecodeElement(&id, &se); err != nil {
				return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed OrderID element"))
			}
			if res.OrderID == "" {
				res.OrderID = strings.TrimSpace(id.Value)
				res.OwnerCode = ndc.NormalizeCode(first(id.Owner, id.OwnerCode))
			}
		case "BookingRef":
			var b xmlBookingRef
			if err := dec.DecodeElement(&b, &se); err != nil {
				return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed BookingRef element"))
			}
			res.BookingRefs = append(res.BookingRefs, xmlOrder{BookingRefs: []xmlBookingRef{b}}.bookingRefs()...)
		case "Response":
			inResponse = true
		}
	}

	recovered := res.OrderID != "" || len(res.BookingRefs) > 0 || hasPayload
	res.Result = settle(ndc.Operation(strings.TrimSuffix(strings.TrimPrefix(s.root, "IATA_"), "RS")), s, recovered)
	return res, nil
}
