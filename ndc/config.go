// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndc

import (
	"github.com/open-policy-agent/opa/v1/util"

	"github.com/open-policy-agent/opa-ndc-plugin/airline_dc"
)

const (
	defaultCurrency      = "AUD"
	defaultCabinTypeCode = "5"

	// VersionNumber is the NDC schema version every message declares.
	VersionNumber = "21.3"
)

// PartyConfig is the immutable configuration handed to every builder call.
type PartyConfig struct {
	DistributionChain airline_dc.DistributionChain `json:"distributionChain"`
	OwnerCode         string                       `json:"ownerCode"`
	Currency          string                       `json:"currency"`
	CabinTypeCode     string                       `json:"cabinTypeCode"`
	VersionNumber     string                       `json:"versionNumber"`
	POS               *PointOfSale                 `json:"pos,omitempty"`
}

// PointOfSale is rendered only when configured.
type PointOfSale struct {
	CountryCode string `json:"countryCode"`
	CityCode    string `json:"cityCode,omitempty"`
}

// DefaultPartyConfig returns a configuration carrying only the defaults.
func DefaultPartyConfig() PartyConfig {
	return PartyConfig{
		Currency:      defaultCurrency,
		CabinTypeCode: defaultCabinTypeCode,
		VersionNumber: VersionNumber,
	}
}

// ParsePartyConfig decodes a YAML or JSON party configuration and fills in
// defaults for anything left unset.
func ParsePartyConfig(bs []byte) (PartyConfig, error) {

	cfg := DefaultPartyConfig()

	if err := util.Unmarshal(bs, &cfg); err != nil {
		return PartyConfig{}, NewError(InvalidRequestErr, err)
	}

	return cfg.WithDefaults(), nil
}

// WithDefaults returns a copy of c with empty fields defaulted.
func (c PartyConfig) WithDefaults() PartyConfig {
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.CabinTypeCode == "" {
		c.CabinTypeCode = defaultCabinTypeCode
	}
	if c.VersionNumber == "" {
		c.VersionNumber = VersionNumber
	}
	c.OwnerCode = NormalizeCode(c.OwnerCode)
	return c
}

// CurrencyOr returns cur, or the configured currency when cur is empty.
func (c PartyConfig) CurrencyOr(cur string) string {
	if cur != "" {
		return cur
	}
	if c.Currency != "" {
		return c.Currency
	}
	return defaultCurrency
}

// CabinOr returns cabin, or the configured cabin type code when it is empty.
func (c PartyConfig) CabinOr(cabin string) string {
	if cabin != "" {
		return cabin
	}
	if c.CabinTypeCode != "" {
		return c.CabinTypeCode
	}
	return defaultCabinTypeCode
}
