// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builtins

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/open-policy-agent/opa/v1/rego"
)

const serviceListRS = `<ns2:IATA_ServiceListRS xmlns:ns2="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <ns2:Response>
    <ns2:ALaCarteOffer>
      <ns2:OfferID>SL-OF-1</ns2:OfferID>
      <ns2:OwnerCode>JQ</ns2:OwnerCode>
      <ns2:ALaCarteOfferItem>
        <ns2:OfferItemID>BAG-1</ns2:OfferItemID>
        <ns2:Eligibility>
          <ns2:PaxRefID>ADT0</ns2:PaxRefID>
          <ns2:FlightAssociations><ns2:PaxSegmentReferences><ns2:PaxSegmentRefID>seg000000001</ns2:PaxSegmentRefID></ns2:PaxSegmentReferences></ns2:FlightAssociations>
        </ns2:Eligibility>
        <ns2:UnitPrice><ns2:TotalAmount CurCode="AUD">45.00</ns2:TotalAmount></ns2:UnitPrice>
        <ns2:Service><ns2:ServiceDefinitionRefID>SD-BAG</ns2:ServiceDefinitionRefID></ns2:Service>
      </ns2:ALaCarteOfferItem>
    </ns2:ALaCarteOffer>
    <ns2:DataLists>
      <ns2:ServiceDefinitionList>
        <ns2:ServiceDefinition>
          <ns2:ServiceDefinitionID>SD-BAG</ns2:ServiceDefinitionID>
          <ns2:Name>Checked bag 20kg</ns2:Name>
          <ns2:ServiceCode>BG20</ns2:ServiceCode>
        </ns2:ServiceDefinition>
      </ns2:ServiceDefinitionList>
    </ns2:DataLists>
  </ns2:Response>
</ns2:IATA_ServiceListRS>`

const orderViewRS = `<IATA_OrderViewRS xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <Response>
    <Order>
      <OrderID Owner="JQ">ORD123</OrderID>
      <BookingRef><BookingID>ABC123</BookingID></BookingRef>
    </Order>
  </Response>
</IATA_OrderViewRS>`

const errorRS = `<IATA_OfferPriceRS xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <Error><Code>OF001</Code><DescText>Offer expired</DescText></Error>
</IATA_OfferPriceRS>`

const distributionChainRQ = `<IATA_OrderRetrieveRQ xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <DistributionChain>
    <DistributionChainLink>
      <Ordinal>1</Ordinal>
      <OrgRole>Seller</OrgRole>
      <ParticipatingOrg><OrgID>55778878</OrgID><Name>Travel Agency</Name></ParticipatingOrg>
    </DistributionChainLink>
  </DistributionChain>
</IATA_OrderRetrieveRQ>`

func eval(t *testing.T, query string, input interface{}) rego.ResultSet {
	t.Helper()

	Register()

	opts := []func(*rego.Rego){
		rego.Query(query),
		rego.StrictBuiltinErrors(true),
	}
	if input != nil {
		opts = append(opts, rego.Input(input))
	}

	rs, err := rego.New(opts...).Eval(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error evaluating %q: %v", query, err)
	}
	return rs
}

func evalErr(t *testing.T, query string, input interface{}) error {
	t.Helper()

	Register()

	_, err := rego.New(
		rego.Query(query),
		rego.Input(input),
		rego.StrictBuiltinErrors(true),
	).Eval(context.Background())
	return err
}

func TestRegisterTwice(t *testing.T) {
	Register()
	Register()
	eval(t, `ndc.classify_service("WIFI", "Onboard wifi", "") == "OTHER"`, nil)
}

func TestNormalizeSegmentID(t *testing.T) {
	rs := eval(t, `x := ndc.normalize_segment_id("Mkt-seg000000001")`, nil)
	if len(rs) != 1 {
		t.Fatalf("Expected one result, got %d", len(rs))
	}

	expected := map[string]interface{}{
		"clean":     "seg000000001",
		"marketing": "Mkt-seg000000001",
		"operating": "Opr-seg000000001",
	}
	if diff := cmp.Diff(expected, rs[0].Bindings["x"]); diff != "" {
		t.Fatalf("Unexpected forms (-want +got):\n%s", diff)
	}
}

func TestClassifyService(t *testing.T) {
	tests := map[string]string{
		`ndc.classify_service("WCHR", "Wheelchair", "P")`:    "SSR",
		`ndc.classify_service("BG20", "Checked bag 20", "")`: "BAGGAGE",
		`ndc.classify_service("P200", "", "")`:               "BUNDLE",
		`ndc.classify_service("WIFI", "Onboard wifi", "")`:   "OTHER",
	}

	for query, expected := range tests {
		t.Run(expected, func(t *testing.T) {
			rs := eval(t, "x := "+query, nil)
			if got := rs[0].Bindings["x"]; got != expected {
				t.Fatalf("Expected %s, got %v", expected, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	rs := eval(t, `r := ndc.parse_errors(input.doc)
		r.success == false
		r.root == "IATA_OfferPriceRS"
		r.errors[0].code == "OF001"`, map[string]interface{}{"doc": errorRS})
	if len(rs) != 1 {
		t.Fatal("Expected airline errors to be reported in the result")
	}
}

func TestParseServiceList(t *testing.T) {
	rs := eval(t, `r := ndc.parse_service_list(input.doc)
		r.success
		a := r.ancillaries[_]
		a.category == "BAGGAGE"
		a.associationType == "segment"`, map[string]interface{}{"doc": serviceListRS})
	if len(rs) != 1 {
		t.Fatalf("Expected one baggage ancillary, got %d results", len(rs))
	}
}

func TestParseOrder(t *testing.T) {
	rs := eval(t, `r := ndc.parse_order(input.doc)
		r.orderId == "ORD123"
		r.ownerCode == "JQ"
		r.bookingRefs[0].bookingId == "ABC123"`, map[string]interface{}{"doc": orderViewRS})
	if len(rs) != 1 {
		t.Fatal("Expected order to be parsed")
	}
}

func TestParseErrorsRejectsNonXML(t *testing.T) {
	err := evalErr(t, `ndc.parse_order(input.doc)`, map[string]interface{}{"doc": "not xml"})
	if err == nil {
		t.Fatal("Expected an evaluation error")
	}
}

func TestBuildOrderRetrieve(t *testing.T) {
	input := map[string]interface{}{
		"request": map[string]interface{}{"orderId": "ORD123"},
		"party": map[string]interface{}{
			"ownerCode": "jq",
			"distributionChain": map[string]interface{}{
				"distributionChainLink": []interface{}{
					map[string]interface{}{
						"ordinal":          1,
						"orgRole":          "Seller",
						"participatingOrg": map[string]interface{}{"orgID": "55778878", "name": "Travel Agency"},
					},
				},
			},
		},
	}

	rs := eval(t, `x := ndc.build_order_retrieve(input.request, input.party)`, input)
	doc, ok := rs[0].Bindings["x"].(string)
	if !ok {
		t.Fatalf("Expected a string, got %T", rs[0].Bindings["x"])
	}
	for _, want := range []string{"<IATA_OrderRetrieveRQ", "<cns:OrderID>ORD123</cns:OrderID>", "<cns:OwnerCode>JQ</cns:OwnerCode>", "55778878"} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected document to contain %q:\n%s", want, doc)
		}
	}

	delete(input, "party")
	input["party"] = map[string]interface{}{"ownerCode": "JQ"}
	if err := evalErr(t, `ndc.build_order_retrieve(input.request, input.party)`, input); err == nil {
		t.Fatal("Expected a missing distribution chain to fail the call")
	}
}

func TestParseXMLDC(t *testing.T) {
	rs := eval(t, `dc := parse_xml_dc(input.doc)
		dc.distributionChainLink[0].orgRole == "Seller"
		dc.distributionChainLink[0].participatingOrg.orgID == "55778878"`, map[string]interface{}{"doc": distributionChainRQ})
	if len(rs) != 1 {
		t.Fatal("Expected the distribution chain to be extracted")
	}
}

func TestReconcilePrice(t *testing.T) {
	input := map[string]interface{}{
		"estimate": map[string]interface{}{
			"step":  "AirShopping",
			"total": map[string]interface{}{"amount": 200, "currency": "AUD"},
		},
		"authoritative": map[string]interface{}{
			"step":      "OfferPrice",
			"total":     map[string]interface{}{"amount": 275, "currency": "AUD"},
			"breakdown": map[string]interface{}{"bundle": 60},
		},
	}

	rs := eval(t, `d := ndc.reconcile_price(input.estimate, input.authoritative)
		d.reported
		d.amount == 15
		d.currency == "AUD"`, input)
	if len(rs) != 1 {
		t.Fatal("Expected a reported difference of 15")
	}
}
