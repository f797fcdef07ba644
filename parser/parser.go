// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package parser turns NDC 21.3 response documents into result values.
//
// Parsers match elements by local name only, so responses are accepted
// whatever prefixes the airline binds. Airline Error and Warning elements are
// never returned as Go errors; they are collected into ndc.Result. Only a
// document that is not XML, or whose root is not the expected message, is an
// error.
package parser

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// scanned is what every parser learns from a first pass over the document.
type scanned struct {
	root     string
	errors   []ndc.Message
	warnings []ndc.Message
}

// scan checks the document is well formed and rooted at one of roots (any
// root when roots is empty), and collects airline errors and warnings.
func scan(doc string, roots ...string) (*scanned, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ndc.Errorf(ndc.SchemaErr, "empty response document")
	}

	s := &scanned{}
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "malformed response document"))
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if s.root == "" {
			s.root = se.Name.Local
			if len(roots) > 0 && !contains(roots, s.root) {
				return nil, ndc.Errorf(ndc.UnexpectedRootErr, "expected %s but got %s", strings.Join(roots, " or "), s.root)
			}
			continue
		}

		switch se.Name.Local {
		case "Error":
			m, err := decodeMessage(dec, se)
			if err != nil {
				return nil, err
			}
			s.errors = append(s.errors, m)
		case "Warning":
			m, err := decodeMessage(dec, se)
			if err != nil {
				return nil, err
			}
			s.warnings = append(s.warnings, m)
		}
	}

	if s.root == "" {
		return nil, ndc.Errorf(ndc.SchemaErr, "response document has no root element")
	}
	return s, nil
}

// xmlMessage covers the places airlines have been seen to put an error's
// code, type and text.
type xmlMessage struct {
	CodeAttr      string `xml:"Code,attr"`
	TypeAttr      string `xml:"Type,attr"`
	ShortTextAttr string `xml:"ShortText,attr"`
	OwnerAttr     string `xml:"Owner,attr"`
	Code          string `xml:"Code"`
	ErrorCode     string `xml:"ErrorCode"`
	TypeCode      string `xml:"TypeCode"`
	DescText      string `xml:"DescText"`
	Description   string `xml:"Description"`
	OwnerName     string `xml:"OwnerName"`
	Text          string `xml:",chardata"`
}

func decodeMessage(dec *xml.Decoder, se xml.StartElement) (ndc.Message, error) {
	var x xmlMessage
	if err := dec.DecodeElement(&x, &se); err != nil {
		return ndc.Message{}, ndc.NewError(ndc.SchemaErr, errors.Wrapf(err, "malformed %s element", se.Name.Local))
	}
	return ndc.Message{
		Code:        first(x.Code, x.CodeAttr, x.ErrorCode),
		Type:        first(x.TypeCode, x.TypeAttr),
		Description: first(x.DescText, x.Description, x.ShortTextAttr, x.Text),
		Owner:       first(x.OwnerName, x.OwnerAttr),
	}, nil
}

// settle builds the result envelope and logs any airline errors that were
// kept only as warnings.
func settle(op ndc.Operation, s *scanned, recovered bool) ndc.Result {
	r := ndc.Settle(recovered, s.errors, s.warnings)
	if len(s.errors) > 0 {
		logrus.WithFields(logrus.Fields{
			"operation": op,
			"errors":    len(s.errors),
			"recovered": recovered,
		}).Debug("Airline reported errors.")
	}
	return r
}

func unmarshal(doc string, v interface{}) error {
	if err := xml.Unmarshal([]byte(doc), v); err != nil {
		return ndc.NewError(ndc.SchemaErr, errors.Wrap(err, "unable to decode response document"))
	}
	return nil
}

// first returns the first non-blank value, trimmed.
func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// trimAll trims every value and drops blanks.
func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{ndc.DateTimeLayout, time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// xmlPax is a PaxList entry.
type xmlPax struct {
	PaxID      string `xml:"PaxID"`
	PTC        string `xml:"PTC"`
	PaxRefID   string `xml:"PaxRefID"`
	Individual struct {
		GivenName []string `xml:"GivenName"`
		Surname   string   `xml:"Surname"`
		Birthdate string   `xml:"Birthdate"`
	} `xml:"Individual"`
}

func (p xmlPax) passenger() ndc.Passenger {
	pax := ndc.Passenger{
		PaxID:             strings.TrimSpace(p.PaxID),
		Type:              ndc.PaxType(ndc.NormalizeCode(p.PTC)),
		Surname:           strings.TrimSpace(p.Individual.Surname),
		Birthdate:         strings.TrimSpace(p.Individual.Birthdate),
		AccompanyingPaxID: strings.TrimSpace(p.PaxRefID),
	}
	if len(p.Individual.GivenName) > 0 {
		pax.GivenName = strings.TrimSpace(p.Individual.GivenName[0])
	}
	return pax
}

// paxTypes indexes passenger type codes by passenger id.
func paxTypes(paxs []xmlPax) map[string]string {
	out := make(map[string]string, len(paxs))
	for _, p := range paxs {
		out[strings.TrimSpace(p.PaxID)] = ndc.NormalizeCode(p.PTC)
	}
	return out
}

// paxType looks ref up in ptcs, falling back to the type code carried by a
// synthetic passenger id.
func paxType(ptcs map[string]string, ref string) string {
	if ptc := ptcs[ref]; ptc != "" {
		return ptc
	}
	return ndcid.PaxTypeOf(ref)
}
