// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package client

import (
	"net/url"
	"strings"
	"time"

	"github.com/open-policy-agent/opa/v1/util"
	"github.com/pkg/errors"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

const defaultTimeout = 30 * time.Second

// Config describes where and how NDC requests are sent.
type Config struct {
	// Endpoint receives every operation without an entry in Endpoints.
	Endpoint  string            `json:"endpoint"`
	Endpoints map[string]string `json:"endpoints,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timeout   string            `json:"timeout,omitempty"`

	timeout time.Duration
}

// ParseConfig decodes a YAML or JSON client configuration.
func ParseConfig(bs []byte) (*Config, error) {

	cfg := Config{}

	if err := util.Unmarshal(bs, &cfg); err != nil {
		return nil, ndc.NewError(ndc.InvalidRequestErr, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.timeout = defaultTimeout
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return ndc.NewError(ndc.InvalidRequestErr, errors.Wrap(err, "invalid timeout"))
		}
		c.timeout = d
	}

	if c.Endpoint == "" && len(c.Endpoints) == 0 {
		return ndc.Errorf(ndc.InvalidRequestErr, "at least one endpoint is required")
	}
	for _, raw := range append([]string{c.Endpoint}, endpointValues(c.Endpoints)...) {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ndc.Errorf(ndc.InvalidRequestErr, "invalid endpoint %q", raw)
		}
	}
	return nil
}

func endpointValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// EndpointFor returns the URL an operation is posted to.
func (c *Config) EndpointFor(op ndc.Operation) string {
	for k, v := range c.Endpoints {
		if strings.EqualFold(k, string(op)) {
			return v
		}
	}
	return c.Endpoint
}

// RequestTimeout is the parsed timeout, defaulting to thirty seconds.
func (c *Config) RequestTimeout() time.Duration {
	if c.timeout == 0 {
		return defaultTimeout
	}
	return c.timeout
}
