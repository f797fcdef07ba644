// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/open-policy-agent/opa/v1/plugins"
	"github.com/open-policy-agent/opa/v1/plugins/logs"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/open-policy-agent/opa-ndc-plugin/builder"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

const orderViewRS = `<IATA_OrderViewRS xmlns="http://www.iata.org/IATA/2015/EASD/00/IATA_OffersAndOrdersMessage">
  <Response>
    <Order>
      <OrderID Owner="JQ">ORD123</OrderID>
      <BookingRef><BookingID>ABC123</BookingID></BookingRef>
    </Order>
  </Response>
</IATA_OrderViewRS>`

const partyConfig = `
    ownerCode: JQ
    distributionChain:
      distributionChainLink:
        - ordinal: 1
          orgRole: Seller
          participatingOrg:
            orgID: "55778878"
            name: Travel Agency`

func pluginConfig(endpoint string, decisionLogs bool) []byte {
	return []byte(fmt.Sprintf(`
decision_logs: %v
client:
    endpoint: %s
    timeout: 5s
party:%s
`, decisionLogs, endpoint, partyConfig))
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		config  string
		wantErr string
	}{
		"valid": {
			config: string(pluginConfig("https://ndc.example.com", false)),
		},
		"missing client": {
			config:  "party:" + partyConfig,
			wantErr: ndc.InvalidRequestErr,
		},
		"relative endpoint": {
			config:  "client:\n    endpoint: /api\nparty:" + partyConfig,
			wantErr: ndc.InvalidRequestErr,
		},
		"missing distribution chain": {
			config:  "client:\n    endpoint: https://ndc.example.com\nparty:\n    ownerCode: JQ",
			wantErr: ndc.MissingDistributionChainErr,
		},
		"duplicate ordinals": {
			config: `
client:
    endpoint: https://ndc.example.com
party:
    distributionChain:
      distributionChainLink:
        - {ordinal: 1, orgRole: Seller, participatingOrg: {orgID: "1"}}
        - {ordinal: 1, orgRole: Carrier, participatingOrg: {orgID: "JQ"}}`,
			wantErr: ndc.InvalidDistributionChainErr,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Validate(nil, []byte(tc.config))
			if tc.wantErr == "" {
				if err != nil {
					t.Fatal(err)
				}
				if cfg.party.OwnerCode != "JQ" || cfg.party.Currency != "AUD" {
					t.Fatalf("Unexpected party config: %+v", cfg.party)
				}
				if cfg.client.RequestTimeout() != 5*time.Second {
					t.Fatalf("Expected 5s timeout, got %v", cfg.client.RequestTimeout())
				}
				return
			}
			if !ndc.HasCode(err, tc.wantErr) {
				t.Fatalf("Expected %s error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPluginLifecycle(t *testing.T) {
	ctx := context.Background()

	cfg, err := Validate(nil, pluginConfig("https://ndc.example.com", false))
	if err != nil {
		t.Fatal(err)
	}

	registry := prometheus.NewRegistry()
	m, err := plugins.New([]byte{}, "test", inmem.New(), plugins.WithPrometheusRegister(registry))
	if err != nil {
		t.Fatal(err)
	}

	p := New(m, cfg)
	m.Register(PluginName, p)
	assertPluginState(t, m, plugins.StateNotReady)

	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitForPluginState(t, m, plugins.StateOK, 5*time.Second)

	if Lookup(m) != p {
		t.Fatal("Expected Lookup to return the registered plugin")
	}
	if got := p.Client().Party().OwnerCode; got != "JQ" {
		t.Fatalf("Expected owner JQ, got %q", got)
	}

	before := p.Client()
	next, err := Validate(nil, pluginConfig("https://other.example.com", true))
	if err != nil {
		t.Fatal(err)
	}
	p.Reconfigure(ctx, next)
	if p.Client() == before {
		t.Fatal("Expected Reconfigure to replace the client")
	}

	m.Stop(ctx)
	assertPluginState(t, m, plugins.StateNotReady)
}

func TestPluginStartConcurrently(t *testing.T) {
	ctx := context.Background()

	cfg, err := Validate(nil, pluginConfig("https://ndc.example.com", false))
	if err != nil {
		t.Fatal(err)
	}

	registry := prometheus.NewPedanticRegistry()
	m, err := plugins.New([]byte{}, "test", inmem.New(), plugins.WithPrometheusRegister(registry))
	if err != nil {
		t.Fatal(err)
	}
	p := New(m, cfg)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- p.Start(ctx)
		}()
		go func() {
			defer wg.Done()
			p.Reconfigure(ctx, cfg)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Expected collectors to be registered once, got %v", err)
		}
	}
	assertPluginState(t, m, plugins.StateOK)
}

func TestPluginExchange(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, orderViewRS)
	}))
	defer srv.Close()

	cfg, err := Validate(nil, pluginConfig(srv.URL, true))
	if err != nil {
		t.Fatal(err)
	}

	registry := prometheus.NewRegistry()
	m, err := plugins.New([]byte{}, "test", inmem.New(), plugins.WithPrometheusRegister(registry))
	if err != nil {
		t.Fatal(err)
	}

	customLogger := &testPlugin{}
	m.Register("test_log_plugin", customLogger)
	logConfig, err := logs.ParseConfig([]byte(`{"plugin": "test_log_plugin"}`), nil, []string{"test_log_plugin"})
	if err != nil {
		t.Fatal(err)
	}
	m.Register(logs.Name, logs.New(logConfig, m))

	m.Register(PluginName, New(m, cfg))
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(ctx)

	res, ex, err := Lookup(m).Client().OrderRetrieve(ctx, builder.OrderRetrieveRequest{OrderID: "ORD123"})
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID != "ORD123" {
		t.Fatalf("Expected order ORD123, got %q", res.OrderID)
	}

	if len(customLogger.events) != 1 {
		t.Fatalf("Expected exactly one decision log event, got %d", len(customLogger.events))
	}
	event := customLogger.events[0]
	if event.DecisionID != ex.CorrelationID {
		t.Fatalf("Expected decision id %q, got %q", ex.CorrelationID, event.DecisionID)
	}
	if event.Path != "ndc/OrderRetrieve" {
		t.Fatalf("Expected path ndc/OrderRetrieve, got %q", event.Path)
	}

	n, err := testutil.GatherAndCount(registry, "ndc_messages_built_total", "ndc_messages_parsed_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("Expected one built and one parsed series, got %d", n)
	}
}

func waitForPluginState(t *testing.T, m *plugins.Manager, desired plugins.State, timeout time.Duration) {
	after := time.After(timeout)
	tick := time.Tick(10 * time.Microsecond)
	for {
		select {
		case <-after:
			t.Fatal("Plugin failed to reach OK state in time")
		case <-tick:
			state, err := getPluginState(t, m)
			if err == nil && state == desired {
				return
			}
		}
	}
}

func getPluginState(t *testing.T, m *plugins.Manager) (plugins.State, error) {
	t.Helper()
	status, ok := m.PluginStatus()[PluginName]
	if !ok {
		return plugins.StateNotReady, fmt.Errorf("expected plugin %s to be in manager plugin status map", PluginName)
	}
	if status == nil {
		return plugins.StateNotReady, errors.New("expected a non-nil status value")
	}
	return status.State, nil
}

func assertPluginState(t *testing.T, m *plugins.Manager, expected plugins.State) {
	t.Helper()
	state, err := getPluginState(t, m)
	if err != nil {
		t.Fatal(err)
	}
	if state != expected {
		t.Fatalf("Expected plugin state %v, got %v", expected, state)
	}
}

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
