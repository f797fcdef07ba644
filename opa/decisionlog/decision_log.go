// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package decisionlog

import (
	"context"
	"errors"
	"time"

	"github.com/open-policy-agent/opa/v1/plugins"
	"github.com/open-policy-agent/opa/v1/plugins/logs"
	"github.com/open-policy-agent/opa/v1/server"
	"github.com/open-policy-agent/opa/v1/util"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-policy-agent/opa-ndc-plugin/client"
	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
)

type exchangeError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *exchangeError) Error() string {
	return e.Message
}

// LogExchange - Logs an NDC exchange as a decision log event
func LogExchange(ctx context.Context, manager *plugins.Manager, ex *client.Exchange, err error) error {
	plugin := logs.Lookup(manager)
	if plugin == nil {
		return nil
	}

	info := &server.Info{
		Timestamp:  time.Now(),
		DecisionID: ex.CorrelationID,
		Path:       "ndc/" + string(ex.Operation),
		Metrics:    ex.Metrics,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		info.TraceID = sc.TraceID().String()
		info.SpanID = sc.SpanID().String()
	}

	var input interface{} = map[string]interface{}{
		"operation": string(ex.Operation),
		"request":   ex.Request,
	}
	info.Input = &input

	if err != nil {
		// Coded errors keep their code; anything else may not serialize to JSON well.
		e := &exchangeError{Message: err.Error()}
		var nerr *ndc.Error
		if errors.As(err, &nerr) {
			e.Code = nerr.Code
		}
		info.Error = e
	} else {
		var x interface{} = ex.Result
		if err := util.RoundTrip(&x); err != nil {
			return err
		}
		info.Results = &x
	}

	return plugin.Log(ctx, info)
}
