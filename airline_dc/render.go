// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package airline_dc

import (
	"errors"
	"fmt"
)

// Organization roles accepted in an outbound distribution chain.
const (
	RoleSeller      = "Seller"
	RoleDistributor = "Distributor"
	RoleCarrier     = "Carrier"
)

var (
	// ErrEmptyChain is returned when a message would carry no DistributionChainLink.
	ErrEmptyChain = errors.New("distribution chain has no links")

	// ErrInvalidChain is returned for links that break ordinal, role or org id rules.
	ErrInvalidChain = errors.New("invalid distribution chain")
)

// WireChain is the DistributionChain block as it is written inside the root
// of every outbound message.
type WireChain struct {
	Links []WireLink `xml:"cns:DistributionChainLink"`
}

type WireLink struct {
	Ordinal          int         `xml:"cns:Ordinal"`
	OrgRole          string      `xml:"cns:OrgRole"`
	ParticipatingOrg WireOrg     `xml:"cns:ParticipatingOrg"`
	SalesAgent       *WireAgent  `xml:"cns:SalesAgent,omitempty"`
	SalesBranch      *WireBranch `xml:"cns:SalesBranch,omitempty"`
}

type WireOrg struct {
	Name  string `xml:"cns:Name,omitempty"`
	OrgID string `xml:"cns:OrgID"`
}

type WireAgent struct {
	SalesAgentID string `xml:"cns:SalesAgentID"`
}

type WireBranch struct {
	SalesBranchID string `xml:"cns:SalesBranchID"`
}

// Render validates dc and converts it to its wire form. When every link has
// a zero ordinal the links are numbered by position; otherwise ordinals must
// start at 1 and strictly ascend.
func Render(dc DistributionChain) (*WireChain, error) {
	links, err := Normalize(dc)
	if err != nil {
		return nil, err
	}

	out := &WireChain{Links: make([]WireLink, 0, len(links))}
	for _, link := range links {
		wl := WireLink{
			Ordinal: link.Ordinal,
			OrgRole: link.OrgRole,
			ParticipatingOrg: WireOrg{
				Name:  link.ParticipatingOrg.Name,
				OrgID: link.ParticipatingOrg.OrgID,
			},
		}
		if link.SalesAgent != nil && link.SalesAgent.SalesAgentID != "" {
			wl.SalesAgent = &WireAgent{SalesAgentID: link.SalesAgent.SalesAgentID}
		}
		if link.SalesBranch != nil && link.SalesBranch.SalesBranchID != "" {
			wl.SalesBranch = &WireBranch{SalesBranchID: link.SalesBranch.SalesBranchID}
		}
		out.Links = append(out.Links, wl)
	}
	return out, nil
}

// Normalize returns a copy of the chain's links with ordinals assigned and
// every rule checked.
func Normalize(dc DistributionChain) ([]DistributionChainLink, error) {
	if len(dc.DistributionChainLink) == 0 {
		return nil, ErrEmptyChain
	}

	links := make([]DistributionChainLink, len(dc.DistributionChainLink))
	copy(links, dc.DistributionChainLink)

	autoNumber := true
	for _, link := range links {
		if link.Ordinal != 0 {
			autoNumber = false
			break
		}
	}
	if autoNumber {
		for i := range links {
			links[i].Ordinal = i + 1
		}
	}

	for i, link := range links {
		if i == 0 && link.Ordinal != 1 {
			return nil, fmt.Errorf("%w: first ordinal is %d, expected 1", ErrInvalidChain, link.Ordinal)
		}
		if i > 0 && link.Ordinal <= links[i-1].Ordinal {
			return nil, fmt.Errorf("%w: ordinal %d does not ascend after %d", ErrInvalidChain, link.Ordinal, links[i-1].Ordinal)
		}
		switch link.OrgRole {
		case RoleSeller, RoleDistributor, RoleCarrier:
		default:
			return nil, fmt.Errorf("%w: link %d has unsupported role %q", ErrInvalidChain, link.Ordinal, link.OrgRole)
		}
		if link.ParticipatingOrg == nil || link.ParticipatingOrg.OrgID == "" {
			return nil, fmt.Errorf("%w: link %d has no participating org id", ErrInvalidChain, link.Ordinal)
		}
	}
	return links, nil
}
