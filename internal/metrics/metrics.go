// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics holds the Prometheus collectors of NDC exchanges.
package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Collectors groups every NDC collector. The zero value is not usable; call
// New.
type Collectors struct {
	MessagesBuilt    *prometheus.CounterVec
	MessagesParsed   *prometheus.CounterVec
	AirlineErrors    *prometheus.CounterVec
	PriceDifference  prometheus.Histogram
	ExchangeDuration *prometheus.HistogramVec
}

// New creates unregistered collectors.
func New() *Collectors {
	return &Collectors{
		MessagesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ndc_messages_built_total",
			Help: "Number of NDC request documents built.",
		}, []string{"operation", "outcome"}),
		MessagesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ndc_messages_parsed_total",
			Help: "Number of NDC response documents parsed.",
		}, []string{"operation", "outcome"}),
		AirlineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ndc_airline_errors_total",
			Help: "Number of Error and Warning elements reported by the airline.",
		}, []string{"operation", "code"}),
		PriceDifference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ndc_price_difference_amount",
			Help:    "Absolute fare difference between shopping and pricing, in currency units.",
			Buckets: []float64{0.1, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ndc_exchange_duration_seconds",
			Help:    "Time spent building, sending and parsing an NDC exchange.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Register adds every collector to r.
func (c *Collectors) Register(r prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.MessagesBuilt,
		c.MessagesParsed,
		c.AirlineErrors,
		c.PriceDifference,
		c.ExchangeDuration,
	} {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Built counts a build attempt.
func (c *Collectors) Built(operation string, err error) {
	c.MessagesBuilt.WithLabelValues(operation, outcome(err, true)).Inc()
}

// Parsed counts a parse attempt. success is the parsed result's flag.
func (c *Collectors) Parsed(operation string, success bool, err error) {
	c.MessagesParsed.WithLabelValues(operation, outcome(err, success)).Inc()
}

// AirlineError counts one airline Error or Warning element.
func (c *Collectors) AirlineError(operation, code string) {
	if code == "" {
		code = "unknown"
	}
	c.AirlineErrors.WithLabelValues(operation, code).Inc()
}

// PriceDiff records a reported fare difference.
func (c *Collectors) PriceDiff(amount float64) {
	c.PriceDifference.Observe(math.Abs(amount))
}

// Exchange records the duration of one exchange.
func (c *Collectors) Exchange(operation string, d time.Duration) {
	c.ExchangeDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func outcome(err error, success bool) string {
	switch {
	case err != nil:
		return OutcomeError
	case !success:
		return OutcomeFailure
	}
	return OutcomeOK
}
