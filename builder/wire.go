// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package builder renders NDC 21.3 request documents. Every builder is a pure
// function of its request and the party configuration.
package builder

import (
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// Wire shapes shared by several requests. Nested elements all live in the
// common types namespace and carry the cns prefix.

type wireDataLists struct {
	ContactInfos       []wireContactInfo       `xml:"cns:ContactInfoList>cns:ContactInfo"`
	MarketingSegments  []wireMarketingSegment  `xml:"cns:DatedMarketingSegmentList>cns:DatedMarketingSegment"`
	OperatingSegments  []wireOperatingSegment  `xml:"cns:DatedOperatingSegmentList>cns:DatedOperatingSegment"`
	PaxJourneys        []wirePaxJourney        `xml:"cns:PaxJourneyList>cns:PaxJourney"`
	Paxs               []wirePax               `xml:"cns:PaxList>cns:Pax"`
	PaxSegments        []wirePaxSegment        `xml:"cns:PaxSegmentList>cns:PaxSegment"`
	ServiceDefinitions []wireServiceDefinition `xml:"cns:ServiceDefinitionList>cns:ServiceDefinition"`
}

type wireStation struct {
	IATALocationCode  string `xml:"cns:IATA_LocationCode"`
	ScheduledDateTime string `xml:"cns:AircraftScheduledDateTime,omitempty"`
}

type wireMarketingSegment struct {
	ID                    string      `xml:"cns:DatedMarketingSegmentId"`
	Dep                   wireStation `xml:"cns:Dep"`
	Arrival               wireStation `xml:"cns:Arrival"`
	CarrierDesigCode      string      `xml:"cns:CarrierDesigCode"`
	FlightNumber          string      `xml:"cns:MarketingCarrierFlightNumberText"`
	OperatingSegmentRefID string      `xml:"cns:DatedOperatingSegmentRefId"`
}

type wireOperatingSegment struct {
	ID               string             `xml:"cns:DatedOperatingSegmentId"`
	CarrierDesigCode string             `xml:"cns:CarrierDesigCode"`
	FlightNumber     string             `xml:"cns:OperatingCarrierFlightNumberText"`
	SegmentTypeCode  string             `xml:"cns:SegmentTypeCode,omitempty"`
	Duration         string             `xml:"cns:Duration,omitempty"`
	Legs             []wireOperatingLeg `xml:"cns:DatedOperatingLeg"`
}

type wireOperatingLeg struct {
	ID      string      `xml:"cns:DatedOperatingLegID"`
	Dep     wireStation `xml:"cns:Dep"`
	Arrival wireStation `xml:"cns:Arrival"`
}

type wirePaxJourney struct {
	ID            string   `xml:"cns:PaxJourneyID"`
	SegmentRefIDs []string `xml:"cns:PaxSegmentRefID"`
}

type wirePaxSegment struct {
	ID                    string `xml:"cns:PaxSegmentID"`
	CabinTypeCode         string `xml:"cns:CabinType>cns:CabinTypeCode"`
	MarketingSegmentRefID string `xml:"cns:DatedMarketingSegmentRefId"`
	RBD                   string `xml:"cns:MarketingCarrierRBD>cns:RBD_Code,omitempty"`
	FareBasisCode         string `xml:"cns:FareBasisCode,omitempty"`
}

type wirePax struct {
	ID               string           `xml:"cns:PaxID"`
	PTC              string           `xml:"cns:PTC"`
	ContactInfoRefID string           `xml:"cns:ContactInfoRefID,omitempty"`
	IdentityDoc      *wireIdentityDoc `xml:"cns:IdentityDoc,omitempty"`
	Individual       *wireIndividual  `xml:"cns:Individual,omitempty"`
	Loyalty          *wireLoyalty     `xml:"cns:LoyaltyProgramAccount,omitempty"`
	PaxRefID         string           `xml:"cns:PaxRefID,omitempty"`
}

type wireIdentityDoc struct {
	ExpiryDate             string `xml:"cns:ExpiryDate,omitempty"`
	IdentityDocID          string `xml:"cns:IdentityDocID"`
	IdentityDocTypeCode    string `xml:"cns:IdentityDocTypeCode"`
	IssuingCountryCode     string `xml:"cns:IssuingCountryCode,omitempty"`
	CitizenshipCountryCode string `xml:"cns:CitizenshipCountryCode,omitempty"`
}

type wireIndividual struct {
	Birthdate  string `xml:"cns:Birthdate,omitempty"`
	GenderCode string `xml:"cns:GenderCode,omitempty"`
	GivenName  string `xml:"cns:GivenName,omitempty"`
	Surname    string `xml:"cns:Surname"`
	TitleName  string `xml:"cns:TitleName,omitempty"`
}

type wireLoyalty struct {
	AirlineDesigCode string `xml:"cns:Carrier>cns:AirlineDesigCode"`
	AccountNumber    string `xml:"cns:AccountNumber"`
}

type wireServiceDefinition struct {
	ID          string `xml:"cns:ServiceDefinitionID"`
	OwnerCode   string `xml:"cns:OwnerCode"`
	Name        string `xml:"cns:Name"`
	ServiceCode string `xml:"cns:ServiceCode"`
	Description string `xml:"cns:Desc>cns:DescText"`
}

type wireContactInfo struct {
	ID     string      `xml:"cns:ContactInfoID"`
	Email  string      `xml:"cns:EmailAddress>cns:EmailAddressText,omitempty"`
	Phone  *wirePhone  `xml:"cns:Phone,omitempty"`
	Postal *wirePostal `xml:"cns:PostalAddress,omitempty"`
}

type wirePhone struct {
	CountryDialingCode string `xml:"cns:CountryDialingCode,omitempty"`
	PhoneNumber        string `xml:"cns:PhoneNumber"`
}

type wirePostal struct {
	CityName    string `xml:"cns:CityName,omitempty"`
	CountryCode string `xml:"cns:CountryCode,omitempty"`
	PostalCode  string `xml:"cns:PostalCode,omitempty"`
	StreetText  string `xml:"cns:StreetText,omitempty"`
}

// stationOf renders one end of a segment.
func stationOf(code string, when string) wireStation {
	return wireStation{IATALocationCode: ndc.NormalizeCode(code), ScheduledDateTime: when}
}
