// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package airline_dc

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Extract returns the first DistributionChain found in an NDC document,
// whatever namespace prefix the sender used for it or its links.
func Extract(inputXML string) (DistributionChain, error) {
	return getDcNode(inputXML)
}

func getDcNode(inputXML string) (DistributionChain, error) {
	if strings.TrimSpace(inputXML) == "" {
		return DistributionChain{}, fmt.Errorf("input XML cannot be empty")
	}

	decoder := xml.NewDecoder(strings.NewReader(inputXML))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "DistributionChain" {
			continue
		}

		var dc DistributionChain
		if err := decoder.DecodeElement(&dc, &se); err != nil {
			return DistributionChain{}, fmt.Errorf("failed to decode DistributionChain: %w", err)
		}
		return dc, nil
	}
	return DistributionChain{}, fmt.Errorf("DistributionChain not found in XML")
}

// ParseXmlDc is the parse_xml_dc rego builtin: it takes an NDC message string
// and returns its distribution chain as an object.
func ParseXmlDc(bctx rego.BuiltinContext, a *ast.Term) (*ast.Term, error) {

	var inputXML string

	if err := ast.As(a.Value, &inputXML); err != nil {
		return nil, err
	}
	dc, err := getDcNode(inputXML)

	if err != nil {
		return nil, err
	}

	v, err := ast.InterfaceToValue(dc)
	if err != nil {
		return nil, err
	}
	return ast.NewTerm(v), nil
}
