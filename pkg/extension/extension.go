// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package extension defines the capability interface that all Shiori
// extensions implement, the context handed to them at init time, and the
// SDK used by process extensions.
package extension

import (
	"strings"

	"github.com/shiori-reader/shiori/pkg/manga"
)

// Capability classifies an extension's declared purpose.
type Capability string

// The closed capability enumeration. Manifest values outside this set
// fall back to CapabilityGeneral.
const (
	CapabilityDataSource      Capability = "DATA_SOURCE"
	CapabilityImageProcessing Capability = "IMAGE_PROCESSING"
	CapabilityUIExtension     Capability = "UI_EXTENSION"
	CapabilityAnalytics       Capability = "ANALYTICS"
	CapabilityExport          Capability = "EXPORT"
	CapabilityNotification    Capability = "NOTIFICATION"
	CapabilitySync            Capability = "SYNC"
	CapabilityGeneral         Capability = "GENERAL"
)

// ParseCapability maps a manifest capability string onto the enumeration.
// Matching is case-insensitive and accepts hyphens for underscores.
// Unknown values resolve to CapabilityGeneral, never an error.
func ParseCapability(s string) Capability {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch c := Capability(normalized); c {
	case CapabilityDataSource, CapabilityImageProcessing, CapabilityUIExtension,
		CapabilityAnalytics, CapabilityExport, CapabilityNotification,
		CapabilitySync, CapabilityGeneral:
		return c
	default:
		return CapabilityGeneral
	}
}

// Extension is the contract every loaded extension satisfies.
//
// Identity accessors are required. All lifecycle and event hooks have
// no-op defaults available through Base, so an extension implements only
// what it needs. Hooks are invoked by the dispatcher with per-call fault
// containment: a returned error or a panic is logged against the
// extension and never propagates to other extensions or the caller.
type Extension interface {
	// ID returns the globally unique extension identifier.
	ID() string
	// Name returns the human-readable extension name.
	Name() string
	// Version returns the extension version string.
	Version() string
	// Author returns the extension author.
	Author() string
	// Description returns a free-text description.
	Description() string
	// Capability returns the declared capability classification.
	Capability() Capability

	// Init is called once after registration with the host context.
	// Process extensions receive a nil context; they interact with the
	// host exclusively through their hook results.
	Init(ctx *Context) error
	// Destroy is called on disable and at shutdown.
	Destroy() error

	// OnMangaLoaded fires when a manga is loaded or selected.
	OnMangaLoaded(m *manga.Manga) error
	// OnChapterLoaded fires when a chapter is loaded.
	OnChapterLoaded(ch *manga.Chapter, m *manga.Manga) error
	// OnPageLoaded may transform page image data. Returning nil keeps the
	// data the extension received; returning a non-nil slice replaces it
	// for the rest of the transform chain.
	OnPageLoaded(data []byte, pageIndex int) ([]byte, error)
	// OnReadingComplete fires when a chapter has been read to the end.
	OnReadingComplete(ch *manga.Chapter, m *manga.Manga) error

	// IsEnabled lets an extension veto its own activation even while the
	// registry considers it enabled.
	IsEnabled() bool
}

// Base provides no-op lifecycle and event hooks plus an always-true
// IsEnabled. Embed it and implement the identity accessors and whichever
// hooks the extension needs.
type Base struct{}

// Init implements Extension with a no-op.
func (Base) Init(*Context) error { return nil }

// Destroy implements Extension with a no-op.
func (Base) Destroy() error { return nil }

// OnMangaLoaded implements Extension with a no-op.
func (Base) OnMangaLoaded(*manga.Manga) error { return nil }

// OnChapterLoaded implements Extension with a no-op.
func (Base) OnChapterLoaded(*manga.Chapter, *manga.Manga) error { return nil }

// OnPageLoaded implements Extension with the keep-original convention.
func (Base) OnPageLoaded([]byte, int) ([]byte, error) { return nil, nil }

// OnReadingComplete implements Extension with a no-op.
func (Base) OnReadingComplete(*manga.Chapter, *manga.Manga) error { return nil }

// IsEnabled implements Extension; extensions are enabled by default.
func (Base) IsEnabled() bool { return true }
