// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package procext runs extensions as companion processes over
// HashiCorp's go-plugin system. The host owns the process lifecycle;
// a crashing extension process never takes the reader down with it.
package procext

import (
	"os"
	"os/exec"
	"path/filepath"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/pkg/extension"
)

// Compile-time interface check.
var _ plugin.Runtime = (*Runtime)(nil)

// PluginClient wraps the go-plugin client for testability.
type PluginClient interface {
	// Client returns the client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the extension process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable path.
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct{}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: extension.Handshake,
		Plugins: map[string]hashiplug.Plugin{
			extension.RPCPluginName: &extension.RPCPlugin{},
		},
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath resolved from extension manifest; manifests validated during discovery
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
	})
}

// Runtime instantiates extensions whose manifest names a companion
// executable.
type Runtime struct {
	factory ClientFactory
}

// NewRuntime creates a process extension runtime.
func NewRuntime() *Runtime {
	return &Runtime{factory: &DefaultClientFactory{}}
}

// NewRuntimeWithFactory creates a runtime with a custom client factory
// (for testing). Panics if factory is nil.
func NewRuntimeWithFactory(factory ClientFactory) *Runtime {
	if factory == nil {
		panic("procext: factory cannot be nil")
	}
	return &Runtime{factory: factory}
}

// Instantiate launches the descriptor's executable and dispenses the
// remote extension over RPC.
func (r *Runtime) Instantiate(desc *plugin.Descriptor, dir string) (extension.Extension, error) {
	execPath := filepath.Join(dir, desc.Exec)
	if _, err := os.Stat(execPath); err != nil {
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("procext").
			With("extension", desc.ID).
			With("exec", execPath).
			Wrapf(err, "extension executable not found")
	}

	client := r.factory.NewClient(execPath)

	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("procext").
			With("extension", desc.ID).
			Wrapf(err, "failed to connect to extension process")
	}

	raw, err := proto.Dispense(extension.RPCPluginName)
	if err != nil {
		client.Kill()
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("procext").
			With("extension", desc.ID).
			Wrapf(err, "failed to dispense extension")
	}

	remote, ok := raw.(extension.Extension)
	if !ok {
		client.Kill()
		return nil, oops.Code(plugin.CodeContractViolation).
			In("procext").
			With("extension", desc.ID).
			Errorf("process served %T, which does not satisfy the extension contract", raw)
	}

	return &processExtension{Extension: remote, client: client}, nil
}

// processExtension wraps the remote stub so destruction also reaps the
// companion process.
type processExtension struct {
	extension.Extension
	client PluginClient
}

func (p *processExtension) Destroy() error {
	err := p.Extension.Destroy()
	p.client.Kill()
	return err
}
