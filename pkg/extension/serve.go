// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package extension

import (
	hashiplug "github.com/hashicorp/go-plugin"
)

// ServeConfig configures the extension-side plugin server.
type ServeConfig struct {
	// Extension is the implementation to expose. Required; Serve panics
	// if nil.
	Extension Extension
}

// Serve starts the plugin server for a process extension. Call it from
// main(); it blocks and never returns under normal operation.
//
// Example usage:
//
//	package main
//
//	import (
//		"github.com/shiori-reader/shiori/pkg/extension"
//	)
//
//	type Stats struct {
//		extension.Base
//	}
//
//	func (Stats) ID() string   { return "com.example.stats" }
//	func (Stats) Name() string { return "Reading Stats" }
//	// ... remaining identity accessors ...
//
//	func main() {
//		extension.Serve(&extension.ServeConfig{Extension: &Stats{}})
//	}
func Serve(config *ServeConfig) {
	if config == nil {
		panic("extension: config cannot be nil")
	}
	if config.Extension == nil {
		panic("extension: config.Extension cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]hashiplug.Plugin{
			RPCPluginName: &RPCPlugin{Impl: config.Extension},
		},
	})
}
