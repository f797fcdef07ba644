// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/open-policy-agent/opa-ndc-plugin/builder"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

func testConfig(t *testing.T, endpoint string) Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(fmt.Sprintf(`{"endpoint": %q, "headers": {"X-Api-Key": "secret"}, "timeout": "5s"}`, endpoint)))
	require.NoError(t, err)
	return *cfg
}

func TestHTTPTransportSend(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs, _ := io.ReadAll(r.Body)
		got, body = r, string(bs)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, orderViewRS)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(testConfig(t, srv.URL), WithHTTPTracerProvider(tp))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	ctx = context.WithValue(ctx, correlationKey{}, "corr-1")
	resp, err := transport.Send(ctx, ndc.OpOrderRetrieve, "<IATA_OrderRetrieveRQ/>")
	parent.End()

	require.NoError(t, err)
	require.Equal(t, orderViewRS, resp)
	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "<IATA_OrderRetrieveRQ/>", body)
	require.Equal(t, contentType, got.Header.Get("Content-Type"))
	require.Equal(t, "secret", got.Header.Get("X-Api-Key"))
	require.Equal(t, "corr-1", got.Header.Get(CorrelationHeader))

	traceID := parent.SpanContext().TraceID().String()
	require.Equal(t, traceID, got.Header.Get("X-B3-TraceId"))
	require.True(t, strings.HasPrefix(got.Header.Get("b3"), traceID+"-"))

	var clientSpans int
	for _, s := range exporter.GetSpans() {
		if s.Parent.SpanID() == parent.SpanContext().SpanID() {
			clientSpans++
		}
	}
	require.Equal(t, 1, clientSpans)
}

func TestHTTPTransportStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream unavailable")
	}))
	defer srv.Close()

	transport := NewHTTPTransport(testConfig(t, srv.URL))
	_, err := transport.Send(context.Background(), ndc.OpAirShopping, "<IATA_AirShoppingRQ/>")
	require.Error(t, err)
	require.True(t, ndc.HasCode(err, ndc.TransportErr))
	require.Contains(t, err.Error(), "502")
}

func TestHTTPTransportPerOperationEndpoint(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, orderViewRS)
	}))
	defer srv.Close()

	cfg, err := ParseConfig([]byte(fmt.Sprintf(`
endpoint: %s/default
endpoints:
  orderretrieve: %s/orders
`, srv.URL, srv.URL)))
	require.NoError(t, err)

	transport := NewHTTPTransport(*cfg)
	for _, op := range []ndc.Operation{ndc.OpOrderRetrieve, ndc.OpServiceList} {
		_, err := transport.Send(context.Background(), op, "<x/>")
		require.NoError(t, err)
	}
	require.Equal(t, []string{"/orders", "/default"}, paths)
}

func TestHTTPTransportWithClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get(CorrelationHeader))
		_, _ = io.WriteString(w, orderViewRS)
	}))
	defer srv.Close()

	c := New(party(), NewHTTPTransport(testConfig(t, srv.URL)))
	res, ex, err := c.OrderRetrieve(context.Background(), builder.OrderRetrieveRequest{OrderID: "ORD123"})
	require.NoError(t, err)
	require.Equal(t, "ORD123", res.OrderID)
	require.NotEmpty(t, ex.CorrelationID)
}

func TestParseConfig(t *testing.T) {
	tests := map[string]struct {
		input   string
		timeout time.Duration
		wantErr bool
	}{
		"default timeout": {
			input:   `{"endpoint": "https://ndc.example.com/api"}`,
			timeout: 30 * time.Second,
		},
		"yaml with timeout": {
			input:   "endpoint: https://ndc.example.com/api\ntimeout: 10s\n",
			timeout: 10 * time.Second,
		},
		"only per-operation endpoints": {
			input:   `{"endpoints": {"AirShopping": "https://ndc.example.com/shop"}}`,
			timeout: 30 * time.Second,
		},
		"no endpoint": {
			input:   `{"timeout": "1s"}`,
			wantErr: true,
		},
		"relative endpoint": {
			input:   `{"endpoint": "/api"}`,
			wantErr: true,
		},
		"bad timeout": {
			input:   `{"endpoint": "https://ndc.example.com", "timeout": "soon"}`,
			wantErr: true,
		},
		"not a document": {
			input:   `{"endpoint": `,
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, ndc.HasCode(err, ndc.InvalidRequestErr))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.timeout, cfg.RequestTimeout())
		})
	}
}

func TestConfigEndpointFor(t *testing.T) {
	cfg := Config{
		Endpoint:  "https://ndc.example.com/default",
		Endpoints: map[string]string{"seatavailability": "https://ndc.example.com/seats"},
	}
	require.Equal(t, "https://ndc.example.com/seats", cfg.EndpointFor(ndc.OpSeatAvailability))
	require.Equal(t, "https://ndc.example.com/default", cfg.EndpointFor(ndc.OpOfferPrice))
}
