// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package client runs NDC exchanges: a request is built, handed to a
// Transport and the response parsed. Builders and parsers stay pure; this
// package adds correlation ids, tracing, metrics and logging around them.
package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/logging"
	"github.com/open-policy-agent/opa/v1/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-policy-agent/opa-ndc-plugin/builder"
	ndcmetrics "github.com/open-policy-agent/opa-ndc-plugin/internal/metrics"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/parser"
	"github.com/open-policy-agent/opa-ndc-plugin/pricing"
)

// Timer names recorded on every exchange.
const (
	TimerBuild = "ndc_build"
	TimerSend  = "ndc_send"
	TimerParse = "ndc_parse"
)

const tracerName = "github.com/open-policy-agent/opa-ndc-plugin/client"

// Transport delivers a request document and returns the response document.
type Transport interface {
	Send(ctx context.Context, op ndc.Operation, doc string) (string, error)
}

// Exchange records one round trip.
type Exchange struct {
	Operation     ndc.Operation   `json:"operation"`
	CorrelationID string          `json:"correlationId"`
	Request       string          `json:"request,omitempty"`
	Response      string          `json:"response,omitempty"`
	Result        ndc.Result      `json:"result"`
	Metrics       metrics.Metrics `json:"-"`
}

// Observer is called once per exchange, after parsing or on failure.
type Observer func(ctx context.Context, ex *Exchange, err error)

type correlationKey struct{}

// CorrelationID returns the correlation id of the exchange ctx belongs to.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Client runs exchanges against one airline with one party configuration.
type Client struct {
	party     ndc.PartyConfig
	transport Transport
	logger    logging.Logger
	tracer    trace.Tracer
	metrics   *ndcmetrics.Collectors
	observers []Observer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is the OPA standard logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracerProvider sets the provider spans are created with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithMetrics records every exchange on the given collectors.
func WithMetrics(m *ndcmetrics.Collectors) Option {
	return func(c *Client) { c.metrics = m }
}

// WithObserver adds an exchange observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observers = append(c.observers, o) }
}

// New returns a client sending through t.
func New(party ndc.PartyConfig, t Transport, opts ...Option) *Client {
	c := &Client{
		party:     party.WithDefaults(),
		transport: t,
		logger:    logging.Get(),
		tracer:    otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Party returns the party configuration requests are built with.
func (c *Client) Party() ndc.PartyConfig {
	return c.party
}

// AirShopping searches for offers.
func (c *Client) AirShopping(ctx context.Context, req builder.AirShoppingRequest) (*parser.ShoppingResult, *Exchange, error) {
	return run(ctx, c, ndc.OpAirShopping,
		func() (string, error) { return builder.AirShopping(req, c.party) },
		parser.ParseAirShopping,
		func(r *parser.ShoppingResult) ndc.Result { return r.Result })
}

// OfferPrice prices a long sell request.
func (c *Client) OfferPrice(ctx context.Context, req builder.LongSellRequest) (*parser.OfferPriceResult, *Exchange, error) {
	return run(ctx, c, ndc.OpOfferPrice,
		func() (string, error) { return builder.OfferPriceLongSell(req, c.party) },
		parser.ParseOfferPrice,
		func(r *parser.OfferPriceResult) ndc.Result { return r.Result })
}

// ServiceList fetches the ancillary catalog of previously obtained offers.
func (c *Client) ServiceList(ctx context.Context, req builder.ServiceListRequest) (*parser.ServiceListResult, *Exchange, error) {
	return run(ctx, c, ndc.OpServiceList,
		func() (string, error) { return builder.ServiceList(req, c.party) },
		parser.ParseServiceList,
		func(r *parser.ServiceListResult) ndc.Result { return r.Result })
}

// SeatAvailability fetches seat maps.
func (c *Client) SeatAvailability(ctx context.Context, req builder.SeatAvailabilityRequest) (*parser.SeatAvailabilityResult, *Exchange, error) {
	return run(ctx, c, ndc.OpSeatAvailability,
		func() (string, error) { return builder.SeatAvailability(req, c.party) },
		parser.ParseSeatAvailability,
		func(r *parser.SeatAvailabilityResult) ndc.Result { return r.Result })
}

// OrderCreate books the selected offers.
func (c *Client) OrderCreate(ctx context.Context, req builder.OrderCreateRequest) (*parser.OrderResult, *Exchange, error) {
	return run(ctx, c, ndc.OpOrderCreate,
		func() (string, error) { return builder.OrderCreate(req, c.party) },
		parser.ParseOrder,
		func(r *parser.OrderResult) ndc.Result { return r.Result })
}

// OrderRetrieve fetches an order.
func (c *Client) OrderRetrieve(ctx context.Context, req builder.OrderRetrieveRequest) (*parser.OrderResult, *Exchange, error) {
	return run(ctx, c, ndc.OpOrderRetrieve,
		func() (string, error) { return builder.OrderRetrieve(req, c.party) },
		parser.ParseOrder,
		func(r *parser.OrderResult) ndc.Result { return r.Result })
}

// Reconcile compares a shopping estimate with a priced offer and records any
// reported difference.
func (c *Client) Reconcile(estimate, authoritative ndc.PriceSnapshot) pricing.Difference {
	d := pricing.Reconcile(estimate, authoritative)
	if !d.Reported {
		return d
	}
	if c.metrics != nil && !d.CurrencyMismatch {
		c.metrics.PriceDiff(d.Amount)
	}
	c.logger.WithFields(map[string]interface{}{
		"estimate-step":      d.EstimateStep,
		"authoritative-step": d.AuthoritativeStep,
		"amount":             d.Amount,
		"percent":            d.Percent,
		"currency":           d.Currency,
		"currency-mismatch":  d.CurrencyMismatch,
	}).Warn("NDC price changed between steps.")
	return d
}

func run[T any](ctx context.Context, c *Client, op ndc.Operation, build func() (string, error), parse func(string) (T, error), result func(T) ndc.Result) (T, *Exchange, error) {
	var zero T

	start := time.Now()
	ex := &Exchange{
		Operation:     op,
		CorrelationID: uuid.NewString(),
		Metrics:       metrics.New(),
	}
	ctx = context.WithValue(ctx, correlationKey{}, ex.CorrelationID)

	ctx, span := c.tracer.Start(ctx, "ndc."+string(op), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("ndc.operation", string(op)),
		attribute.String("ndc.correlation_id", ex.CorrelationID),
	)

	finish := func(err error) {
		if c.metrics != nil {
			c.metrics.Exchange(string(op), time.Since(start))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if !ex.Result.Success {
			span.SetStatus(codes.Error, "airline reported errors")
		}
		span.End()
		c.log(ex, err)
		for _, o := range c.observers {
			o(ctx, ex, err)
		}
	}

	ex.Metrics.Timer(TimerBuild).Start()
	doc, err := build()
	ex.Metrics.Timer(TimerBuild).Stop()
	if c.metrics != nil {
		c.metrics.Built(string(op), err)
	}
	if err != nil {
		finish(err)
		return zero, ex, err
	}
	ex.Request = doc

	ex.Metrics.Timer(TimerSend).Start()
	resp, err := c.transport.Send(ctx, op, doc)
	ex.Metrics.Timer(TimerSend).Stop()
	if err != nil {
		if !ndc.HasCode(err, ndc.TransportErr) {
			err = ndc.NewError(ndc.TransportErr, err)
		}
		finish(err)
		return zero, ex, err
	}
	ex.Response = resp

	ex.Metrics.Timer(TimerParse).Start()
	parsed, err := parse(resp)
	ex.Metrics.Timer(TimerParse).Stop()
	if err != nil {
		if c.metrics != nil {
			c.metrics.Parsed(string(op), false, err)
		}
		finish(err)
		return zero, ex, err
	}

	ex.Result = result(parsed)
	if c.metrics != nil {
		c.metrics.Parsed(string(op), ex.Result.Success, nil)
		for _, m := range ex.Result.Airline() {
			c.metrics.AirlineError(string(op), m.Code)
		}
	}
	span.SetAttributes(
		attribute.Bool("ndc.success", ex.Result.Success),
		attribute.Int("ndc.airline_messages", len(ex.Result.Airline())),
	)

	finish(nil)
	return parsed, ex, nil
}

func (c *Client) log(ex *Exchange, err error) {
	fields := map[string]interface{}{
		"operation":      ex.Operation,
		"correlation-id": ex.CorrelationID,
		"success":        ex.Result.Success,
		"metrics":        ex.Metrics.All(),
	}
	if err != nil {
		fields["err"] = err
		c.logger.WithFields(fields).Error("NDC exchange failed.")
		return
	}
	if n := len(ex.Result.Airline()); n > 0 {
		fields["airline-messages"] = n
	}
	c.logger.WithFields(fields).Info("NDC exchange completed.")
}
