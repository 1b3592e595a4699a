// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"log/slog"
	"sync"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// Record tracks one registered extension: the live instance, its
// resolved descriptor, the host-side enabled flag, and the context it
// was first initialized with. Re-enabling an extension re-runs Init
// against that original context.
type Record struct {
	Instance   extension.Extension
	Descriptor *Descriptor

	enabled bool
	initCtx *extension.Context
}

// Enabled reports the host-side flag. It does not consult the
// instance's own IsEnabled self-veto.
func (r *Record) Enabled() bool {
	return r.enabled
}

// Registry holds loaded extensions keyed by identifier, preserving
// registration order for dispatch.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Register adds an extension under its descriptor's identifier. The
// first registration wins: a duplicate identifier is logged and the
// later arrival discarded, so a rogue manifest cannot displace an
// extension already serving events.
func (reg *Registry) Register(inst extension.Extension, desc *Descriptor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing, ok := reg.records[desc.ID]; ok {
		slog.Warn("duplicate extension registration ignored",
			"extension", desc.ID,
			"kept", existing.Descriptor.String(),
			"discarded", desc.String())
		return
	}

	reg.records[desc.ID] = &Record{
		Instance:   inst,
		Descriptor: desc,
		enabled:    true,
	}
	reg.order = append(reg.order, desc.ID)
}

// InitAll initializes every registered extension in registration order,
// capturing ctx on each record for later re-enablement. A failing or
// panicking Init is contained and logged; the extension stays
// registered and enabled so a transient startup fault does not evict it.
func (reg *Registry) InitAll(ctx *extension.Context) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, id := range reg.order {
		rec := reg.records[id]
		rec.initCtx = ctx
		if err := safeInit(rec.Instance, ctx); err != nil {
			slog.Error("extension init failed", "extension", id, "error", err)
		}
	}
}

// Enable sets the host-side flag and re-initializes the extension with
// the context captured at first initialization. Returns false when the
// identifier is unknown.
func (reg *Registry) Enable(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec, ok := reg.records[id]
	if !ok {
		return false
	}
	if rec.enabled {
		return true
	}
	rec.enabled = true
	if err := safeInit(rec.Instance, rec.initCtx); err != nil {
		slog.Error("extension re-init failed", "extension", id, "error", err)
	}
	return true
}

// Disable clears the host-side flag and tears the instance down.
// Returns false when the identifier is unknown.
func (reg *Registry) Disable(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec, ok := reg.records[id]
	if !ok {
		return false
	}
	if !rec.enabled {
		return true
	}
	rec.enabled = false
	safeDestroy(rec.Instance, id)
	return true
}

// Get returns the live instance for id.
func (reg *Registry) Get(id string) (extension.Extension, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rec, ok := reg.records[id]
	if !ok {
		return nil, false
	}
	return rec.Instance, true
}

// Descriptor returns the resolved descriptor for id.
func (reg *Registry) Descriptor(id string) (*Descriptor, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rec, ok := reg.records[id]
	if !ok {
		return nil, false
	}
	return rec.Descriptor, true
}

// All returns every registered instance in registration order.
func (reg *Registry) All() []extension.Extension {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]extension.Extension, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.records[id].Instance)
	}
	return out
}

// Enabled returns, in registration order, every extension that is both
// enabled host-side and willing per its own IsEnabled. This is the
// dispatch set.
func (reg *Registry) Enabled() []extension.Extension {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []extension.Extension
	for _, id := range reg.order {
		rec := reg.records[id]
		if rec.enabled && rec.Instance.IsEnabled() {
			out = append(out, rec.Instance)
		}
	}
	return out
}

// Descriptors returns every resolved descriptor in registration order.
func (reg *Registry) Descriptors() []*Descriptor {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]*Descriptor, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.records[id].Descriptor)
	}
	return out
}

// Count returns the number of registered extensions.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.records)
}

// EnabledCount counts extensions with the host-side flag set. The
// instance self-veto is a dispatch-time concern and is not consulted.
func (reg *Registry) EnabledCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	n := 0
	for _, rec := range reg.records {
		if rec.enabled {
			n++
		}
	}
	return n
}

// Shutdown destroys every extension in registration order and clears
// the registry. Destroy faults are contained so one extension cannot
// block teardown of the rest.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, id := range reg.order {
		safeDestroy(reg.records[id].Instance, id)
	}
	reg.records = make(map[string]*Record)
	reg.order = nil
}

func safeInit(inst extension.Extension, ctx *extension.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oopsPanic("Init", r)
		}
	}()
	return inst.Init(ctx)
}

func safeDestroy(inst extension.Extension, id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extension destroy panicked", "extension", id, "panic", r)
		}
	}()
	if err := inst.Destroy(); err != nil {
		slog.Warn("extension destroy failed", "extension", id, "error", err)
	}
}
