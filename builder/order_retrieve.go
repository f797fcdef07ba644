// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"encoding/xml"
	"strings"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// OrderRetrieveRequest names the order to fetch.
type OrderRetrieveRequest struct {
	OrderID   string `json:"orderId"`
	OwnerCode string `json:"ownerCode,omitempty"`
}

type orderRetrieveRQ struct {
	XMLName xml.Name `xml:"IATA_OrderRetrieveRQ"`
	ndc.Envelope
	Request orderRetrieveRequest `xml:"Request"`
}

type orderRetrieveRequest struct {
	OrderID   string `xml:"cns:OrderFilterCriteria>cns:Order>cns:OrderID"`
	OwnerCode string `xml:"cns:OrderFilterCriteria>cns:Order>cns:OwnerCode"`
}

// OrderRetrieve renders an order lookup. Every configured distribution chain
// link is rendered.
func OrderRetrieve(req OrderRetrieveRequest, cfg ndc.PartyConfig) (string, error) {
	cfg = cfg.WithDefaults()

	env, err := ndc.NewEnvelope(cfg)
	if err != nil {
		return "", err
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return "", ndc.Errorf(ndc.InvalidRequestErr, "order retrieve needs an order id")
	}
	owner := ndc.NormalizeCode(req.OwnerCode)
	if owner == "" {
		owner = cfg.OwnerCode
	}
	if owner == "" {
		return "", ndc.Errorf(ndc.InvalidRequestErr, "order retrieve needs an owner code")
	}

	return ndc.Marshal(orderRetrieveRQ{
		Envelope: env,
		Request: orderRetrieveRequest{
			OrderID:   orderID,
			OwnerCode: owner,
		},
	})
}
