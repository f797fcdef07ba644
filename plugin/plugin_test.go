// Copyright 2020 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package plugin

import (
	"testing"

	"github.com/open-policy-agent/opa/v1/plugins"
	"github.com/open-policy-agent/opa/v1/storage/inmem"

	"github.com/open-policy-agent/opa-ndc-plugin/internal"
)

const config = `{
	"client": {"endpoint": "https://ndc.example.com/api"},
	"party": {
		"ownerCode": "JQ",
		"distributionChain": {
			"distributionChainLink": [
				{"ordinal": 1, "orgRole": "Seller", "participatingOrg": {"orgID": "55778878"}}
			]
		}
	}
}`

func TestFactory(t *testing.T) {
	m, err := plugins.New([]byte{}, "test", inmem.New())
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Factory{}.Validate(m, []byte(config))
	if err != nil {
		t.Fatal(err)
	}

	p, ok := Factory{}.New(m, cfg).(*internal.Plugin)
	if !ok {
		t.Fatal("Expected the NDC plugin")
	}
	if p.Client() == nil {
		t.Fatal("Expected a configured client")
	}
}

func TestFactoryInvalid(t *testing.T) {
	if _, err := (Factory{}).Validate(nil, []byte(`{"client": {}}`)); err == nil {
		t.Fatal("Expected a configuration without endpoints to be rejected")
	}
}
