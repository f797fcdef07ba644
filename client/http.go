// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

// CorrelationHeader carries the exchange correlation id.
const CorrelationHeader = "X-Correlation-ID"

const contentType = "application/xml; charset=utf-8"

// HTTPTransport posts request documents over HTTP. It adds configured headers,
// the correlation id and B3 trace headers; it does not authenticate or retry.
type HTTPTransport struct {
	cfg    Config
	client *http.Client
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	base http.RoundTripper
	tp   trace.TracerProvider
}

// WithRoundTripper sets the round tripper wrapped by the transport.
func WithRoundTripper(rt http.RoundTripper) HTTPOption {
	return func(o *httpOptions) { o.base = rt }
}

// WithHTTPTracerProvider sets the provider of the HTTP client spans.
func WithHTTPTracerProvider(tp trace.TracerProvider) HTTPOption {
	return func(o *httpOptions) { o.tp = tp }
}

// NewHTTPTransport returns a transport for cfg.
func NewHTTPTransport(cfg Config, opts ...HTTPOption) *HTTPTransport {
	o := httpOptions{
		base: http.DefaultTransport,
		tp:   otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	propagator := b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader | b3.B3SingleHeader))

	return &HTTPTransport{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout(),
			Transport: otelhttp.NewTransport(o.base,
				otelhttp.WithTracerProvider(o.tp),
				otelhttp.WithPropagators(propagator),
			),
		},
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, op ndc.Operation, doc string) (string, error) {
	endpoint := t.cfg.EndpointFor(op)
	if endpoint == "" {
		return "", ndc.Errorf(ndc.TransportErr, "no endpoint configured for %s", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(doc))
	if err != nil {
		return "", ndc.NewError(ndc.TransportErr, errors.Wrap(err, "unable to create request"))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/xml")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	if id := CorrelationID(ctx); id != "" {
		req.Header.Set(CorrelationHeader, id)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", ndc.NewError(ndc.TransportErr, errors.Wrapf(err, "%s request failed", op))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ndc.NewError(ndc.TransportErr, errors.Wrap(err, "unable to read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", ndc.Errorf(ndc.TransportErr, "%s request returned status %d", op, resp.StatusCode)
	}

	return string(body), nil
}
