// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package builtins exposes NDC message handling to Rego policies.
package builtins

import (
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/types"

	"github.com/open-policy-agent/opa-ndc-plugin/airline_dc"
	"github.com/open-policy-agent/opa-ndc-plugin/builder"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
	"github.com/open-policy-agent/opa-ndc-plugin/parser"
	"github.com/open-policy-agent/opa-ndc-plugin/pricing"
)

// Builtin names.
const (
	ParseXMLDC         = "parse_xml_dc"
	NormalizeSegmentID = "ndc.normalize_segment_id"
	ClassifyService    = "ndc.classify_service"
	ParseErrors        = "ndc.parse_errors"
	ParseServiceList   = "ndc.parse_service_list"
	ParseOrder         = "ndc.parse_order"
	BuildOrderRetrieve = "ndc.build_order_retrieve"
	ReconcilePrice     = "ndc.reconcile_price"
)

var object = types.NewObject(nil, types.NewDynamicProperty(types.S, types.A))

var once sync.Once

// Register adds every builtin to the rego runtime. It is safe to call more
// than once.
func Register() {
	once.Do(register)
}

func register() {
	rego.RegisterBuiltin1(
		&rego.Function{
			Name:    ParseXMLDC,
			Decl:    types.NewFunction(types.Args(types.S), types.A),
			Memoize: true,
		},
		airline_dc.ParseXmlDc,
	)

	rego.RegisterBuiltin1(
		&rego.Function{
			Name:    NormalizeSegmentID,
			Decl:    types.NewFunction(types.Args(types.S), object),
			Memoize: true,
		},
		normalizeSegmentID,
	)

	rego.RegisterBuiltin3(
		&rego.Function{
			Name:    ClassifyService,
			Decl:    types.NewFunction(types.Args(types.S, types.S, types.S), types.S),
			Memoize: true,
		},
		classifyService,
	)

	rego.RegisterBuiltin1(
		&rego.Function{
			Name:    ParseErrors,
			Decl:    types.NewFunction(types.Args(types.S), object),
			Memoize: true,
		},
		parse(parser.ParseGeneric),
	)

	rego.RegisterBuiltin1(
		&rego.Function{
			Name:    ParseServiceList,
			Decl:    types.NewFunction(types.Args(types.S), object),
			Memoize: true,
		},
		parse(parser.ParseServiceList),
	)

	rego.RegisterBuiltin1(
		&rego.Function{
			Name:    ParseOrder,
			Decl:    types.NewFunction(types.Args(types.S), object),
			Memoize: true,
		},
		parse(parser.ParseOrder),
	)

	rego.RegisterBuiltin2(
		&rego.Function{
			Name:    BuildOrderRetrieve,
			Decl:    types.NewFunction(types.Args(object, object), types.S),
			Memoize: true,
		},
		buildOrderRetrieve,
	)

	rego.RegisterBuiltin2(
		&rego.Function{
			Name:    ReconcilePrice,
			Decl:    types.NewFunction(types.Args(object, object), object),
			Memoize: true,
		},
		reconcilePrice,
	)
}

func normalizeSegmentID(_ rego.BuiltinContext, a *ast.Term) (*ast.Term, error) {
	var raw string
	if err := ast.As(a.Value, &raw); err != nil {
		return nil, err
	}
	return toTerm(ndcid.NormalizeSegmentID(raw))
}

func classifyService(_ rego.BuiltinContext, code, name, rfic *ast.Term) (*ast.Term, error) {
	var c, n, r string
	for _, arg := range []struct {
		term *ast.Term
		dst  *string
	}{{code, &c}, {name, &n}, {rfic, &r}} {
		if err := ast.As(arg.term.Value, arg.dst); err != nil {
			return nil, err
		}
	}
	return ast.StringTerm(string(parser.ClassifyService(c, n, r))), nil
}

// parse adapts a document parser to a one-argument builtin. Schema and root
// errors fail the call; airline errors are part of the returned object.
func parse[T any](fn func(string) (T, error)) rego.Builtin1 {
	return func(_ rego.BuiltinContext, a *ast.Term) (*ast.Term, error) {
		var doc string
		if err := ast.As(a.Value, &doc); err != nil {
			return nil, err
		}
		res, err := fn(doc)
		if err != nil {
			return nil, err
		}
		return toTerm(res)
	}
}

func buildOrderRetrieve(_ rego.BuiltinContext, a, b *ast.Term) (*ast.Term, error) {
	var req builder.OrderRetrieveRequest
	if err := ast.As(a.Value, &req); err != nil {
		return nil, err
	}
	party := ndc.DefaultPartyConfig()
	if err := ast.As(b.Value, &party); err != nil {
		return nil, err
	}
	doc, err := builder.OrderRetrieve(req, party)
	if err != nil {
		return nil, err
	}
	return ast.StringTerm(doc), nil
}

func reconcilePrice(_ rego.BuiltinContext, a, b *ast.Term) (*ast.Term, error) {
	var estimate, authoritative ndc.PriceSnapshot
	if err := ast.As(a.Value, &estimate); err != nil {
		return nil, err
	}
	if err := ast.As(b.Value, &authoritative); err != nil {
		return nil, err
	}
	return toTerm(pricing.Reconcile(estimate, authoritative))
}

func toTerm(x interface{}) (*ast.Term, error) {
	v, err := ast.InterfaceToValue(x)
	if err != nil {
		return nil, err
	}
	return ast.NewTerm(v), nil
}
