// Copyright 2018 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/open-policy-agent/opa/cmd"
	"github.com/open-policy-agent/opa/v1/runtime"

	"github.com/open-policy-agent/opa-ndc-plugin/builtins"
	"github.com/open-policy-agent/opa-ndc-plugin/plugin"
)

func main() {
	runtime.RegisterPlugin(plugin.PluginName, plugin.Factory{})
	builtins.Register()

	if err := cmd.RootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
