// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"fmt"
	"log/slog"
	goplugin "plugin"

	"github.com/samber/oops"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// SymbolSource resolves entry-point names to symbols.
type SymbolSource interface {
	// Lookup returns the symbol bound to name, or false when this source
	// does not provide it.
	Lookup(name string) (any, bool)
}

// ModuleOpener opens one loadable module as a symbol source. The loader
// accepts an opener so tests can substitute in-memory modules for
// platform shared objects.
type ModuleOpener func(path string) (SymbolSource, error)

// DefaultModuleOpener opens shared objects with the platform loader.
func DefaultModuleOpener(path string) (SymbolSource, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return sharedObject{p: p}, nil
}

type sharedObject struct {
	p *goplugin.Plugin
}

func (s sharedObject) Lookup(name string) (any, bool) {
	sym, err := s.p.Lookup(name)
	if err != nil {
		return nil, false
	}
	return sym, true
}

// hostSource resolves names against the host's compiled-in factory
// registry. It sits first in every scope so the host and all extensions
// agree on the framework and domain types.
type hostSource struct{}

func (hostSource) Lookup(name string) (any, bool) {
	f, ok := extension.LookupFactory(name)
	if !ok {
		return nil, false
	}
	return f, true
}

// Scope is the isolated loading scope of one extension: the host's own
// module space, the extension's packaged artifact when present, every
// shared-pool module, and the extension's private modules. Scopes are
// never shared across extensions.
type Scope struct {
	sources []SymbolSource
}

// NewScope builds a scope. Resolution delegates to the host first, then
// the artifact, then shared modules, then private modules. A module that
// fails to open is logged and skipped rather than failing the scope, so
// one corrupt library cannot strand an otherwise loadable extension.
func NewScope(opener ModuleOpener, artifact string, shared, private []string) *Scope {
	if opener == nil {
		opener = DefaultModuleOpener
	}

	sources := []SymbolSource{hostSource{}}

	var paths []string
	if artifact != "" {
		paths = append(paths, artifact)
	}
	paths = append(paths, shared...)
	paths = append(paths, private...)

	for _, path := range paths {
		src, err := opener(path)
		if err != nil {
			slog.Warn("failed to open module", "module", path, "error", err)
			continue
		}
		sources = append(sources, src)
	}

	return &Scope{sources: sources}
}

// Resolve finds the entry point inside the scope.
func (s *Scope) Resolve(name string) (any, error) {
	for _, src := range s.sources {
		if sym, ok := src.Lookup(name); ok {
			return sym, nil
		}
	}
	return nil, oops.Code(CodeEntryPointNotFound).
		With("entry_point", name).
		Errorf("entry point not found: %s", name)
}

// Instantiate validates that a resolved symbol is a usable zero-argument
// factory and constructs the extension instance. The platform loader
// hands back variable symbols as pointers, so both value and pointer
// factory shapes are accepted.
func Instantiate(sym any, entryPoint string) (extension.Extension, error) {
	factory, err := asFactory(sym, entryPoint)
	if err != nil {
		return nil, err
	}

	product, err := construct(factory, entryPoint)
	if err != nil {
		return nil, err
	}

	inst, ok := product.(extension.Extension)
	if !ok {
		return nil, oops.Code(CodeContractViolation).
			With("entry_point", entryPoint).
			Errorf("entry point %s produced %T, which does not satisfy the extension contract", entryPoint, product)
	}
	return inst, nil
}

func asFactory(sym any, entryPoint string) (func() any, error) {
	switch f := sym.(type) {
	case extension.Factory:
		if f == nil {
			return nil, notInstantiable(entryPoint)
		}
		return func() any { return f() }, nil
	case func() extension.Extension:
		if f == nil {
			return nil, notInstantiable(entryPoint)
		}
		return func() any { return f() }, nil
	case func() any:
		if f == nil {
			return nil, notInstantiable(entryPoint)
		}
		return f, nil
	case *extension.Factory:
		if f == nil || *f == nil {
			return nil, notInstantiable(entryPoint)
		}
		g := *f
		return func() any { return g() }, nil
	case *func() extension.Extension:
		if f == nil || *f == nil {
			return nil, notInstantiable(entryPoint)
		}
		g := *f
		return func() any { return g() }, nil
	case *func() any:
		if f == nil || *f == nil {
			return nil, notInstantiable(entryPoint)
		}
		return *f, nil
	default:
		return nil, oops.Code(CodeContractViolation).
			With("entry_point", entryPoint).
			Errorf("entry point %s is %T, not a zero-argument extension factory", entryPoint, sym)
	}
}

func notInstantiable(entryPoint string) error {
	return oops.Code(CodeNotInstantiable).
		With("entry_point", entryPoint).
		Errorf("entry point %s is not instantiable", entryPoint)
}

func construct(factory func() any, entryPoint string) (product any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Code(CodeInstantiationFailed).
				With("entry_point", entryPoint).
				Wrap(fmt.Errorf("factory panicked: %v", r))
		}
	}()
	return factory(), nil
}
