// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndc

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"github.com/open-policy-agent/opa-ndc-plugin/airline_dc"
)

const (
	// MessageNamespace is the default namespace of every message root.
	MessageNamespace = "http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage"

	// CommonTypesNamespace is bound to the cns prefix for nested blocks.
	CommonTypesNamespace = "http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersCommonTypes"
)

// Operation names an NDC request/response pair.
type Operation string

const (
	OpAirShopping      Operation = "AirShopping"
	OpOfferPrice       Operation = "OfferPrice"
	OpServiceList      Operation = "ServiceList"
	OpSeatAvailability Operation = "SeatAvailability"
	OpOrderCreate      Operation = "OrderCreate"
	OpOrderRetrieve    Operation = "OrderRetrieve"
)

// RequestRoot is the root element name of the operation's request.
func (o Operation) RequestRoot() string {
	return "IATA_" + string(o) + "RQ"
}

// ResponseRoot is the root element name the airline answers with. Order
// operations both answer with an order view.
func (o Operation) ResponseRoot() string {
	switch o {
	case OpOrderCreate, OpOrderRetrieve:
		return "IATA_OrderViewRS"
	}
	return "IATA_" + string(o) + "RS"
}

// Envelope is embedded first in every outbound message root. Its fields
// render the namespace declarations, the distribution chain, the payload
// attributes and the optional point of sale, in that order.
type Envelope struct {
	XMLNS             string                `xml:"xmlns,attr"`
	CNS               string                `xml:"xmlns:cns,attr"`
	DistributionChain *airline_dc.WireChain `xml:"DistributionChain"`
	PayloadAttributes PayloadAttributes     `xml:"PayloadAttributes"`
	POS               *WirePOS              `xml:"POS,omitempty"`
}

type PayloadAttributes struct {
	VersionNumber string `xml:"cns:VersionNumber"`
}

type WirePOS struct {
	CountryCode string `xml:"cns:Country>cns:CountryCode"`
	CityCode    string `xml:"cns:City>cns:IATA_LocationCode,omitempty"`
}

// NewEnvelope renders the configured party into the common message header.
// Distribution chain problems map to missing_distribution_chain and
// invalid_distribution_chain.
func NewEnvelope(cfg PartyConfig) (Envelope, error) {
	cfg = cfg.WithDefaults()

	chain, err := airline_dc.Render(cfg.DistributionChain)
	switch {
	case errors.Is(err, airline_dc.ErrEmptyChain):
		return Envelope{}, NewError(MissingDistributionChainErr, err)
	case err != nil:
		return Envelope{}, NewError(InvalidDistributionChainErr, err)
	}

	env := Envelope{
		XMLNS:             MessageNamespace,
		CNS:               CommonTypesNamespace,
		DistributionChain: chain,
		PayloadAttributes: PayloadAttributes{VersionNumber: cfg.VersionNumber},
	}
	if cfg.POS != nil && cfg.POS.CountryCode != "" {
		env.POS = &WirePOS{
			CountryCode: NormalizeCode(cfg.POS.CountryCode),
			CityCode:    NormalizeCode(cfg.POS.CityCode),
		}
	}
	return env, nil
}

// Amount is a currency-tagged amount, used both when rendering and decoding.
type Amount struct {
	CurCode string `xml:"CurCode,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// NewAmount renders m with two decimals.
func NewAmount(m Money) *Amount {
	return &Amount{
		CurCode: m.Currency,
		Value:   strconv.FormatFloat(Round2(m.Amount), 'f', 2, 64),
	}
}

// Money converts a decoded amount. A nil or unparseable amount is zero in
// the fallback currency.
func (a *Amount) Money(fallbackCurrency string) Money {
	if a == nil {
		return Money{Currency: fallbackCurrency}
	}
	cur := strings.TrimSpace(a.CurCode)
	if cur == "" {
		cur = fallbackCurrency
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		return Money{Currency: cur}
	}
	return Money{Amount: Round2(v), Currency: cur}
}

// Comment sanitizes text for use in an xml comment field.
func Comment(text string) string {
	text = strings.ReplaceAll(text, "--", "- -")
	if strings.HasSuffix(text, "-") {
		text += " "
	}
	return " " + text + " "
}

// Marshal encodes doc as an indented XML document with a declaration.
func Marshal(doc interface{}) (string, error) {
	bs, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", NewError(MarshalErr, err)
	}
	return xml.Header + string(bs) + "\n", nil
}
