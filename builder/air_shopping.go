// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// AirShoppingRequest searches flights for one or more directions.
type AirShoppingRequest struct {
	Legs          []OriginDestination `json:"legs"`
	Passengers    []ndc.Passenger     `json:"passengers"`
	CabinTypeCode string              `json:"cabinTypeCode,omitempty"`
	Currency      string              `json:"currency,omitempty"`
}

// OriginDestination is one searched direction. Date is YYYY-MM-DD.
type OriginDestination struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type airShoppingRQ struct {
	XMLName xml.Name `xml:"IATA_AirShoppingRQ"`
	ndc.Envelope
	Request airShoppingRequest `xml:"Request"`
}

type airShoppingRequest struct {
	OriginDestCriteria []wireOriginDestCriteria `xml:"cns:FlightRequest>cns:FlightRequestOriginDestinationsCriteria>cns:OriginDestCriteria"`
	Paxs               []wirePax                `xml:"cns:Paxs>cns:Pax"`
	RequestedCurCode   string                   `xml:"cns:ResponseParameters>cns:CurParameter>cns:RequestedCurCode"`
}

type wireOriginDestCriteria struct {
	OriginDate    string `xml:"cns:OriginDepCriteria>cns:Date"`
	OriginCode    string `xml:"cns:OriginDepCriteria>cns:IATA_LocationCode"`
	DestCode      string `xml:"cns:DestArrivalCriteria>cns:IATA_LocationCode"`
	OriginDestID  string `xml:"cns:OriginDestID"`
	CabinTypeCode string `xml:"cns:PreferredCabinType>cns:CabinTypeCode"`
}

// AirShopping renders a flight search. Passenger ids are synthesized from
// type and position since no airline ids exist yet.
func AirShopping(req AirShoppingRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}

	switch {
	case len(req.Legs) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "air shopping needs at least one origin and destination")
	case len(req.Passengers) == 0:
		return "", ndc.Errorf(ndc.InvalidRequestErr, "air shopping needs at least one passenger")
	}

	cabin := cfg.CabinOr(req.CabinTypeCode)

	var rq airShoppingRequest
	for i, leg := range req.Legs {
		if leg.Origin == "" || leg.Destination == "" || leg.Date == "" {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "leg %d needs origin, destination and date", i+1)
		}
		rq.OriginDestCriteria = append(rq.OriginDestCriteria, wireOriginDestCriteria{
			OriginDate:    leg.Date,
			OriginCode:    ndc.NormalizeCode(leg.Origin),
			DestCode:      ndc.NormalizeCode(leg.Destination),
			OriginDestID:  fmt.Sprintf("OD%d", i+1),
			CabinTypeCode: cabin,
		})
	}

	perType := map[ndc.PaxType]int{}
	for _, p := range req.Passengers {
		if !p.Type.Valid() {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "passenger has unsupported type %q", p.Type)
		}
		rq.Paxs = append(rq.Paxs, wirePax{
			ID:  ndcid.SyntheticPaxID(string(p.Type), perType[p.Type]),
			PTC: string(p.Type),
		})
		perType[p.Type]++
	}
	rq.RequestedCurCode = cfg.CurrencyOr(req.Currency)

	logrus.WithFields(logrus.Fields{
		"operation":  ndc.OpAirShopping,
		"legs":       len(rq.OriginDestCriteria),
		"passengers": len(rq.Paxs),
	}).Debug("Built AirShopping request.")

	return ndc.Marshal(airShoppingRQ{Envelope: env, Request: rq})
}
