// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package extension

import (
	"sort"
	"sync"
)

// Factory constructs one extension instance. Entry points compiled into
// the host register a Factory under their fully-qualified name; loading
// scopes consult this registry before any extension-local module, which
// keeps the host and every extension agreed on the framework types.
type Factory func() Extension

var (
	factoryMu sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterFactory makes a compiled-in entry point resolvable by name.
// Typically called from an init function in the extension's package.
// A nil factory or a duplicate name panics: both indicate a programming
// error at host startup, not a runtime condition.
func RegisterFactory(name string, f Factory) {
	if name == "" {
		panic("extension: factory name cannot be empty")
	}
	if f == nil {
		panic("extension: factory cannot be nil for " + name)
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("extension: factory already registered for " + name)
	}
	factories[name] = f
}

// LookupFactory resolves a compiled-in entry point by name.
func LookupFactory(name string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Factories returns the registered entry-point names, sorted.
func Factories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterFactory removes a compiled-in entry point. Reports whether
// the name was registered. Intended for tests and host teardown.
func UnregisterFactory(name string) bool {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	_, ok := factories[name]
	delete(factories, name)
	return ok
}
