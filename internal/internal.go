// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/open-policy-agent/opa/v1/plugins"
	"github.com/open-policy-agent/opa/v1/util"

	"github.com/open-policy-agent/opa-ndc-plugin/client"
	ndcmetrics "github.com/open-policy-agent/opa-ndc-plugin/internal/metrics"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/opa/decisionlog"
)

// PluginName is the name to register with the OPA plugin manager
const PluginName = "ndc"

// Config represents the plugin configuration.
type Config struct {
	Client       json.RawMessage `json:"client"`
	Party        json.RawMessage `json:"party"`
	DecisionLogs bool            `json:"decision_logs"`

	client client.Config
	party  ndc.PartyConfig
}

// Validate receives a slice of bytes representing the plugin's
// configuration and returns a configuration value that can be used to
// instantiate the plugin.
func Validate(m *plugins.Manager, bs []byte) (*Config, error) {

	cfg := Config{}

	if err := util.Unmarshal(bs, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Client) == 0 {
		return nil, ndc.Errorf(ndc.InvalidRequestErr, "client configuration is required")
	}
	c, err := client.ParseConfig(cfg.Client)
	if err != nil {
		return nil, err
	}
	cfg.client = *c

	party := ndc.DefaultPartyConfig()
	if len(cfg.Party) > 0 {
		if party, err = ndc.ParsePartyConfig(cfg.Party); err != nil {
			return nil, err
		}
	}
	if _, err := ndc.NewEnvelope(party); err != nil {
		return nil, err
	}
	cfg.party = party

	return &cfg, nil
}

// New returns a Plugin that runs NDC exchanges for the configured party.
func New(m *plugins.Manager, cfg *Config) *Plugin {

	p := &Plugin{
		manager: m,
		metrics: ndcmetrics.New(),
	}
	p.configure(cfg)

	m.UpdatePluginStatus(PluginName, &plugins.Status{State: plugins.StateNotReady})

	return p
}

// Plugin holds the NDC client of an OPA instance.
type Plugin struct {
	manager *plugins.Manager
	metrics *ndcmetrics.Collectors

	mtx        sync.RWMutex
	registered bool
	cfg        Config
	client     *client.Client
}

// Lookup returns the NDC plugin registered with m, if any.
func Lookup(m *plugins.Manager) *Plugin {
	if p, ok := m.Plugin(PluginName).(*Plugin); ok {
		return p
	}
	return nil
}

// Start registers the plugin's collectors and marks it ready.
func (p *Plugin) Start(ctx context.Context) error {
	if err := p.register(); err != nil {
		return err
	}

	p.manager.UpdatePluginStatus(PluginName, &plugins.Status{State: plugins.StateOK})
	return nil
}

func (p *Plugin) register() error {
	reg := p.manager.PrometheusRegister()
	if reg == nil {
		return nil
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.registered {
		return nil
	}
	if err := p.metrics.Register(reg); err != nil {
		return err
	}
	p.registered = true
	return nil
}

func (p *Plugin) Stop(ctx context.Context) {
	p.manager.UpdatePluginStatus(PluginName, &plugins.Status{State: plugins.StateNotReady})
}

func (p *Plugin) Reconfigure(ctx context.Context, config interface{}) {
	p.configure(config.(*Config))
}

// Client returns the client built from the current configuration.
func (p *Plugin) Client() *client.Client {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.client
}

func (p *Plugin) configure(cfg *Config) {
	logger := p.manager.Logger()

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMetrics(p.metrics),
	}
	if cfg.DecisionLogs {
		opts = append(opts, client.WithObserver(func(ctx context.Context, ex *client.Exchange, err error) {
			if logErr := decisionlog.LogExchange(ctx, p.manager, ex, err); logErr != nil {
				logger.WithFields(map[string]interface{}{
					"correlation-id": ex.CorrelationID,
					"err":            logErr,
				}).Error("Unable to log NDC exchange.")
			}
		}))
	}

	c := client.New(cfg.party, client.NewHTTPTransport(cfg.client), opts...)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.cfg = *cfg
	p.client = c
}
