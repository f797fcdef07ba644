// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// ServiceListRequest asks for the ancillaries available on offers obtained
// earlier in the workflow.
type ServiceListRequest struct {
	Offers             []OfferRef `json:"offers"`
	ShoppingResponseID string     `json:"shoppingResponseId,omitempty"`
}

// OfferRef points at one offer item of an earlier response. ServiceID is
// synthesized when empty.
type OfferRef struct {
	OfferID     string `json:"offerId"`
	OwnerCode   string `json:"ownerCode,omitempty"`
	OfferItemID string `json:"offerItemId"`
	ServiceID   string `json:"serviceId,omitempty"`
}

type serviceListRQ struct {
	XMLName xml.Name `xml:"IATA_ServiceListRQ"`
	ndc.Envelope
	Request serviceListRequest `xml:"Request"`
}

type serviceListRequest struct {
	Offers             []wireServiceListOffer `xml:"cns:OfferRequest>cns:Offer"`
	ShoppingResponseID string                 `xml:"cns:ShoppingResponse>cns:ShoppingResponseID,omitempty"`
}

type wireServiceListOffer struct {
	OfferID   string                   `xml:"cns:OfferID"`
	OwnerCode string                   `xml:"cns:OwnerCode"`
	OfferItem wireServiceListOfferItem `xml:"cns:OfferItem"`
}

// Service references only: passenger and flight associations come back in
// the response.
type wireServiceListOfferItem struct {
	OfferItemID string `xml:"cns:OfferItemID"`
	ServiceID   string `xml:"cns:Service>cns:ServiceID"`
}

// ServiceList renders one Offer/OfferItem pair per offer reference.
func ServiceList(req ServiceListRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}
	if len(req.Offers) == 0 {
		return "", ndc.Errorf(ndc.InvalidRequestErr, "service list needs at least one offer")
	}

	offers := make([]wireServiceListOffer, 0, len(req.Offers))
	for i, ref := range req.Offers {
		if ref.OfferID == "" || ref.OfferItemID == "" {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "offer reference %d has no offer or offer item id", i+1)
		}
		owner := ndc.NormalizeCode(ref.OwnerCode)
		if owner == "" {
			owner = cfg.OwnerCode
		}
		if owner == "" {
			return "", ndc.Errorf(ndc.InvalidRequestErr, "offer %q has no owner code", ref.OfferID)
		}
		serviceID := ref.ServiceID
		if serviceID == "" {
			serviceID = ndcid.SyntheticID(ndcid.KindService, i+1)
		}
		offers = append(offers, wireServiceListOffer{
			OfferID:   ref.OfferID,
			OwnerCode: owner,
			OfferItem: wireServiceListOfferItem{
				OfferItemID: ref.OfferItemID,
				ServiceID:   serviceID,
			},
		})
	}

	logrus.WithFields(logrus.Fields{
		"operation": ndc.OpServiceList,
		"offers":    len(offers),
	}).Debug("Built ServiceList request.")

	return ndc.Marshal(serviceListRQ{
		Envelope: env,
		Request: serviceListRequest{
			Offers:             offers,
			ShoppingResponseID: req.ShoppingResponseID,
		},
	})
}
