// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package airline_dc

// DistributionChain is the ordered list of organizations that took part in
// selling an NDC offer or order. The same model is decoded from inbound
// messages, loaded from party configuration and rendered into outbound ones.
type DistributionChain struct {
	DistributionChainLink []DistributionChainLink `json:"distributionChainLink,omitempty"`
}

// Link returns the first link with the given role.
func (dc DistributionChain) Link(role string) (DistributionChainLink, bool) {
	for _, link := range dc.DistributionChainLink {
		if link.OrgRole == role {
			return link, true
		}
	}
	return DistributionChainLink{}, false
}

// DistributionChainLink is one party of the chain. Ordinal orders the links
// from the seller (1) towards the carrier.
type DistributionChainLink struct {
	Ordinal          int               `json:"ordinal,omitempty"`
	OrgRole          string            `json:"orgRole,omitempty"`
	ParticipatingOrg *ParticipatingOrg `json:"participatingOrg,omitempty"`
	SalesAgent       *SalesAgent       `json:"salesAgent,omitempty"`
	SalesBranch      *SalesBranch      `json:"salesBranch,omitempty"`

	// Decoded from inbound messages only.
	ContactInfo *ContactInfo `json:"contactInfo,omitempty"`
}

type ParticipatingOrg struct {
	OrgID string `json:"orgID,omitempty"`
	Name  string `json:"name,omitempty"`
}

type SalesAgent struct {
	SalesAgentID string `json:"salesAgentID,omitempty"`
}

type SalesBranch struct {
	SalesBranchID string `json:"salesBranchID,omitempty"`
}

// ContactInfo is how the airline reaches the seller about a booking.
type ContactInfo struct {
	ContactInfoID string         `json:"contactInfoID,omitempty"`
	EmailAddress  []EmailAddress `json:"emailAddress,omitempty"`
	Phone         []Phone        `json:"phone,omitempty"`
}

type EmailAddress struct {
	EmailAddressText string `json:"emailAddressText,omitempty"`
}

type Phone struct {
	CountryDialingCode string `json:"countryDialingCode,omitempty"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
}
