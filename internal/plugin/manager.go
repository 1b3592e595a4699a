// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"log/slog"
	"sync"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// Manager ties the extension subsystem together: the shared library
// pool, the loader, the registry, and the event dispatcher, all rooted
// at one extensions directory.
type Manager struct {
	root   string
	lib    *LibraryCollection
	reg    *Registry
	disp   *Dispatcher
	loader *Loader

	mu          sync.Mutex
	initialized bool
}

// NewManager creates a manager rooted at dir. Loader options configure
// runtimes, ignore patterns, and the host API version.
func NewManager(dir string, opts ...LoaderOption) *Manager {
	lib := NewLibraryCollection(dir)
	reg := NewRegistry()
	return &Manager{
		root:   dir,
		lib:    lib,
		reg:    reg,
		disp:   NewDispatcher(reg),
		loader: NewLoader(dir, lib, reg, opts...),
	}
}

// Initialize scans the shared pool, discovers and loads every
// candidate, and initializes the loaded extensions with ctx. It returns
// true when every candidate loaded cleanly; partial failures still
// leave the surviving extensions serving events. Calling Initialize on
// an already-initialized manager is a logged no-op.
func (m *Manager) Initialize(ctx *extension.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		slog.Warn("extension manager already initialized", "dir", m.root)
		return true, nil
	}

	m.lib.Scan()

	ok, err := m.loader.LoadAll()
	if err != nil {
		return false, err
	}

	m.reg.InitAll(ctx)
	m.initialized = true

	slog.Info("extension manager initialized",
		"dir", m.root,
		"extensions", m.reg.Count(),
		"libraries", len(m.lib.List()))
	return ok, nil
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Registry exposes the extension registry.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Dispatcher exposes the event dispatcher.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.disp
}

// Libraries exposes the shared library pool.
func (m *Manager) Libraries() *LibraryCollection {
	return m.lib
}

// Shutdown destroys every extension, drops standalone callbacks, and
// returns the manager to its pre-initialization state so it can be
// initialized again.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reg.Shutdown()
	m.disp.Reset()
	m.initialized = false
}
