// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	loggingtest "github.com/open-policy-agent/opa/v1/logging/test"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-policy-agent/opa-ndc-plugin/airline_dc"
	"github.com/open-policy-agent/opa-ndc-plugin/builder"
	ndcmetrics "github.com/open-policy-agent/opa-ndc-plugin/internal/metrics"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/parser"
)

const orderViewRS = `<IATA_OrderViewRS xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <Response>
    <Order>
      <OrderID Owner="JQ">ORD123</OrderID>
      <BookingRef><BookingID>ABC123</BookingID></BookingRef>
    </Order>
  </Response>
</IATA_OrderViewRS>`

const orderErrorRS = `<IATA_OrderViewRS xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <Error><Code>OR404</Code><DescText>Order not found</DescText></Error>
</IATA_OrderViewRS>`

type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) Send(ctx context.Context, op ndc.Operation, doc string) (string, error) {
	ret := m.Called(ctx, op, doc)
	return ret.String(0), ret.Error(1)
}

func party() ndc.PartyConfig {
	return ndc.PartyConfig{
		OwnerCode: "JQ",
		DistributionChain: airline_dc.DistributionChain{
			DistributionChainLink: []airline_dc.DistributionChainLink{{
				Ordinal:          1,
				OrgRole:          airline_dc.RoleSeller,
				ParticipatingOrg: &airline_dc.ParticipatingOrg{OrgID: "55778878", Name: "Travel Agency"},
			}},
		},
	}
}

func containing(fragments ...string) interface{} {
	return mock.MatchedBy(func(doc string) bool {
		for _, f := range fragments {
			if !strings.Contains(doc, f) {
				return false
			}
		}
		return true
	})
}

type harness struct {
	transport *TransportMock
	logger    *loggingtest.Logger
	spans     *tracetest.InMemoryExporter
	metrics   *ndcmetrics.Collectors
	observed  []*Exchange
	client    *Client
}

func newHarness() *harness {
	h := &harness{
		transport: &TransportMock{},
		logger:    loggingtest.New(),
		spans:     tracetest.NewInMemoryExporter(),
		metrics:   ndcmetrics.New(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(h.spans))
	h.client = New(party(), h.transport,
		WithLogger(h.logger),
		WithTracerProvider(tp),
		WithMetrics(h.metrics),
		WithObserver(func(_ context.Context, ex *Exchange, _ error) {
			h.observed = append(h.observed, ex)
		}),
	)
	return h
}

func TestClientOrderRetrieve(t *testing.T) {
	h := newHarness()
	h.transport.On(
		"Send",
		mock.MatchedBy(func(ctx context.Context) bool { return CorrelationID(ctx) != "" }),
		ndc.OpOrderRetrieve,
		containing("<cns:OrderID>ORD123</cns:OrderID>", "<cns:OwnerCode>JQ</cns:OwnerCode>"),
	).Return(orderViewRS, nil).Once()

	res, ex, err := h.client.OrderRetrieve(context.Background(), builder.OrderRetrieveRequest{OrderID: "ORD123"})
	require.NoError(t, err)
	h.transport.AssertExpectations(t)

	require.True(t, res.Success)
	require.Equal(t, "ORD123", res.OrderID)
	require.Equal(t, "JQ", res.OwnerCode)
	require.Equal(t, []parser.BookingRef{{BookingID: "ABC123"}}, res.BookingRefs)

	require.NotEmpty(t, ex.CorrelationID)
	require.Equal(t, ndc.OpOrderRetrieve, ex.Operation)
	require.Contains(t, ex.Request, "IATA_OrderRetrieveRQ")
	require.Equal(t, orderViewRS, ex.Response)
	for _, timer := range []string{TimerBuild, TimerSend, TimerParse} {
		require.Contains(t, ex.Metrics.All(), "timer_"+timer+"_ns")
	}

	require.Len(t, h.observed, 1)
	require.Same(t, ex, h.observed[0])

	spans := h.spans.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "ndc.OrderRetrieve", spans[0].Name)
	require.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	found := false
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == "ndc.correlation_id" {
			found = true
			require.Equal(t, ex.CorrelationID, kv.Value.AsString())
		}
	}
	require.True(t, found, "span carries the correlation id")

	var logged bool
	for _, e := range h.logger.Entries() {
		if e.Message == "NDC exchange completed." {
			logged = true
			require.Equal(t, ex.CorrelationID, e.Fields["correlation-id"])
		}
	}
	require.True(t, logged, "exchange is logged")

	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesBuilt.WithLabelValues("OrderRetrieve", ndcmetrics.OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesParsed.WithLabelValues("OrderRetrieve", ndcmetrics.OutcomeOK)))
}

func TestClientAirlineFailure(t *testing.T) {
	h := newHarness()
	h.transport.On("Send", mock.Anything, ndc.OpOrderRetrieve, mock.Anything).Return(orderErrorRS, nil).Once()

	res, ex, err := h.client.OrderRetrieve(context.Background(), builder.OrderRetrieveRequest{OrderID: "ORD404"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.False(t, ex.Result.Success)
	require.Equal(t, "OR404", res.Errors[0].Code)

	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesParsed.WithLabelValues("OrderRetrieve", ndcmetrics.OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AirlineErrors.WithLabelValues("OrderRetrieve", "OR404")))
}

func TestClientTransportError(t *testing.T) {
	h := newHarness()
	h.transport.On("Send", mock.Anything, ndc.OpOrderRetrieve, mock.Anything).Return("", errors.New("connection refused")).Once()

	res, ex, err := h.client.OrderRetrieve(context.Background(), builder.OrderRetrieveRequest{OrderID: "ORD123"})
	require.Error(t, err)
	require.True(t, ndc.HasCode(err, ndc.TransportErr))
	require.Nil(t, res)
	require.NotEmpty(t, ex.Request)
	require.Empty(t, ex.Response)

	var logged bool
	for _, e := range h.logger.Entries() {
		if e.Message == "NDC exchange failed." {
			logged = true
		}
	}
	require.True(t, logged)
	require.Len(t, h.observed, 1)
}

func TestClientBuildError(t *testing.T) {
	h := newHarness()

	_, ex, err := h.client.OrderRetrieve(context.Background(), builder.OrderRetrieveRequest{})
	require.Error(t, err)
	require.True(t, ndc.HasCode(err, ndc.InvalidRequestErr))
	require.Empty(t, ex.Request)
	h.transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesBuilt.WithLabelValues("OrderRetrieve", ndcmetrics.OutcomeError)))
}

func TestClientUnexpectedRoot(t *testing.T) {
	h := newHarness()
	h.transport.On("Send", mock.Anything, ndc.OpServiceList, mock.Anything).Return("<html>bad gateway", nil).Once()

	_, _, err := h.client.ServiceList(context.Background(), builder.ServiceListRequest{
		Offers: []builder.OfferRef{{OfferID: "OF1", OwnerCode: "JQ", OfferItemID: "OI1"}},
	})
	require.Error(t, err)
	require.True(t, ndc.HasCode(err, ndc.UnexpectedRootErr))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesParsed.WithLabelValues("ServiceList", ndcmetrics.OutcomeError)))
}

func TestClientReconcile(t *testing.T) {
	h := newHarness()

	estimate := ndc.PriceSnapshot{Step: "AirShopping", Total: ndc.Money{Amount: 200, Currency: "AUD"}}
	same := ndc.PriceSnapshot{Step: "OfferPrice", Total: ndc.Money{Amount: 260, Currency: "AUD"}, Breakdown: ndc.PriceBreakdown{Bundle: 60}}
	higher := ndc.PriceSnapshot{Step: "OfferPrice", Total: ndc.Money{Amount: 215, Currency: "AUD"}}

	d := h.client.Reconcile(estimate, same)
	require.False(t, d.Reported)

	d = h.client.Reconcile(estimate, higher)
	require.True(t, d.Reported)
	require.Equal(t, 15.0, d.Amount)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(h.metrics.PriceDifference))
	fam, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, fam, 1)
	require.Equal(t, uint64(1), fam[0].Metric[0].Histogram.GetSampleCount())
	require.Equal(t, 15.0, fam[0].Metric[0].Histogram.GetSampleSum())

	var warned int
	for _, e := range h.logger.Entries() {
		if e.Message == "NDC price changed between steps." {
			warned++
		}
	}
	require.Equal(t, 1, warned)
}
