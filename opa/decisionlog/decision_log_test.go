// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package decisionlog

import (
	"context"
	"testing"

	"github.com/open-policy-agent/opa/v1/metrics"
	"github.com/open-policy-agent/opa/v1/plugins"
	"github.com/open-policy-agent/opa/v1/plugins/logs"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/open-policy-agent/opa-ndc-plugin/client"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

type testPlugin struct {
	events []logs.EventV1
}

func (p *testPlugin) Start(context.Context) error {
	return nil
}

func (p *testPlugin) Stop(context.Context) {
}

func (p *testPlugin) Reconfigure(context.Context, interface{}) {
}

func (p *testPlugin) Log(_ context.Context, event logs.EventV1) error {
	p.events = append(p.events, event)
	return nil
}

func testManager(t *testing.T, withLogs bool) (*plugins.Manager, *testPlugin) {
	t.Helper()

	m, err := plugins.New([]byte{}, "test", inmem.New())
	if err != nil {
		t.Fatal(err)
	}

	p := &testPlugin{}
	if withLogs {
		m.Register("test_log_plugin", p)
		config, err := logs.ParseConfig([]byte(`{"plugin": "test_log_plugin"}`), nil, []string{"test_log_plugin"})
		if err != nil {
			t.Fatal(err)
		}
		m.Register(logs.Name, logs.New(config, m))
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Stop(context.Background()) })

	return m, p
}

func exchange() *client.Exchange {
	return &client.Exchange{
		Operation:     ndc.OpServiceList,
		CorrelationID: "0f9a8f5e-9d0b-4b57-9f0e-2d7a1d6c1a11",
		Request:       "<IATA_ServiceListRQ/>",
		Result:        ndc.Result{Success: true, Warnings: []ndc.Message{{Code: "W1"}}},
		Metrics:       metrics.New(),
	}
}

func TestLogExchange(t *testing.T) {
	m, p := testManager(t, true)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "ndc.ServiceList")
	defer span.End()

	if err := LogExchange(ctx, m, exchange(), nil); err != nil {
		t.Fatal(err)
	}

	if len(p.events) != 1 {
		t.Fatalf("Expected one event, got %d", len(p.events))
	}
	event := p.events[0]
	if event.DecisionID != "0f9a8f5e-9d0b-4b57-9f0e-2d7a1d6c1a11" {
		t.Fatalf("Unexpected decision id %q", event.DecisionID)
	}
	if event.Path != "ndc/ServiceList" {
		t.Fatalf("Unexpected path %q", event.Path)
	}
	if event.TraceID != span.SpanContext().TraceID().String() {
		t.Fatalf("Expected trace id %s, got %q", span.SpanContext().TraceID(), event.TraceID)
	}
	if event.Result == nil {
		t.Fatal("Expected a result")
	}
	result, ok := (*event.Result).(map[string]interface{})
	if !ok || result["success"] != true {
		t.Fatalf("Unexpected result %v", *event.Result)
	}
	if event.Error != nil {
		t.Fatalf("Unexpected error %v", event.Error)
	}
}

func TestLogExchangeError(t *testing.T) {
	m, p := testManager(t, true)

	err := ndc.Errorf(ndc.TransportErr, "ServiceList request returned status 502")
	if err := LogExchange(context.Background(), m, exchange(), err); err != nil {
		t.Fatal(err)
	}

	if len(p.events) != 1 {
		t.Fatalf("Expected one event, got %d", len(p.events))
	}
	logged, ok := p.events[0].Error.(*exchangeError)
	if !ok {
		t.Fatalf("Expected *exchangeError, got %T", p.events[0].Error)
	}
	if logged.Code != ndc.TransportErr {
		t.Fatalf("Expected code %s, got %q", ndc.TransportErr, logged.Code)
	}
	if p.events[0].Result != nil {
		t.Fatal("Expected no result on error")
	}
}

func TestLogExchangeWithoutLogsPlugin(t *testing.T) {
	m, _ := testManager(t, false)

	if err := LogExchange(context.Background(), m, exchange(), nil); err != nil {
		t.Fatal(err)
	}
}
