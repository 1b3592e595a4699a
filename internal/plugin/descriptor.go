// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package plugin implements the Shiori extension runtime: manifest
// resolution, the shared library pool, isolated instantiation, the
// extension registry, and fault-isolated event dispatch.
package plugin

import (
	"fmt"
	"sort"

	"github.com/samber/oops"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// Descriptor is the immutable metadata record for one extension,
// normalized from either manifest form. Build one through
// NewDescriptorBuilder; treat every field as read-only afterwards.
type Descriptor struct {
	// ID is the globally unique extension identifier.
	ID string
	// Name is the human-readable display name.
	Name string
	// Version is the extension version string, nominally semver.
	Version string
	// Author is the extension author.
	Author string
	// Description is free text.
	Description string
	// Capability classifies the extension's declared purpose.
	Capability extension.Capability
	// EntryPoint is the fully-qualified name resolved inside the
	// extension's loading scope, or a .lua entry for script extensions.
	EntryPoint string
	// ArtifactPath locates the packaged shared object, empty for purely
	// manifest-described extensions not yet backed by a built artifact.
	ArtifactPath string
	// Exec names an executable relative to the extension directory.
	// When set, the extension runs as a subprocess over RPC.
	Exec string
	// Dependencies is the ordered, advisory dependency name list.
	Dependencies []string
	// APIVersions holds the supported protocol versions, sorted.
	APIVersions []string
	// License is the declared license identifier.
	License string
	// Website is the extension homepage, possibly empty.
	Website string
	// BuiltIn marks extensions shipped with the host.
	BuiltIn bool
}

// String returns the display form used in logs and CLI output.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s v%s by %s", d.Name, d.Version, d.Author)
}

// SupportsAPIVersion reports whether the descriptor lists the given
// protocol version.
func (d *Descriptor) SupportsAPIVersion(v string) bool {
	for _, have := range d.APIVersions {
		if have == v {
			return true
		}
	}
	return false
}

// Descriptor defaults applied by the builder when a manifest omits the
// corresponding optional field.
const (
	DefaultVersion    = "1.0.0"
	DefaultAuthor     = "Unknown"
	DefaultLicense    = "MIT"
	DefaultAPIVersion = "1.0"
)

// DescriptorBuilder accumulates descriptor fields and validates them at
// Build time. The zero-valued optional fields take the documented
// defaults.
type DescriptorBuilder struct {
	d Descriptor
}

// NewDescriptorBuilder creates a builder with every optional field at
// its default.
func NewDescriptorBuilder() *DescriptorBuilder {
	return &DescriptorBuilder{
		d: Descriptor{
			Version:     DefaultVersion,
			Author:      DefaultAuthor,
			License:     DefaultLicense,
			Capability:  extension.CapabilityGeneral,
			APIVersions: []string{DefaultAPIVersion},
		},
	}
}

// ID sets the extension identifier. Required.
func (b *DescriptorBuilder) ID(id string) *DescriptorBuilder {
	b.d.ID = id
	return b
}

// Name sets the display name. Required.
func (b *DescriptorBuilder) Name(name string) *DescriptorBuilder {
	b.d.Name = name
	return b
}

// Version sets the version string. Empty keeps the default.
func (b *DescriptorBuilder) Version(v string) *DescriptorBuilder {
	if v != "" {
		b.d.Version = v
	}
	return b
}

// Author sets the author. Empty keeps the default.
func (b *DescriptorBuilder) Author(a string) *DescriptorBuilder {
	if a != "" {
		b.d.Author = a
	}
	return b
}

// Description sets the free-text description.
func (b *DescriptorBuilder) Description(desc string) *DescriptorBuilder {
	b.d.Description = desc
	return b
}

// Capability sets the capability classification.
func (b *DescriptorBuilder) Capability(c extension.Capability) *DescriptorBuilder {
	b.d.Capability = c
	return b
}

// EntryPoint sets the entry-point reference. Required.
func (b *DescriptorBuilder) EntryPoint(ep string) *DescriptorBuilder {
	b.d.EntryPoint = ep
	return b
}

// ArtifactPath sets the packaged artifact location, empty when absent.
func (b *DescriptorBuilder) ArtifactPath(p string) *DescriptorBuilder {
	b.d.ArtifactPath = p
	return b
}

// Exec sets the process-runtime executable, empty when absent.
func (b *DescriptorBuilder) Exec(path string) *DescriptorBuilder {
	b.d.Exec = path
	return b
}

// Dependencies sets the advisory dependency list, preserving order.
func (b *DescriptorBuilder) Dependencies(deps []string) *DescriptorBuilder {
	b.d.Dependencies = append([]string(nil), deps...)
	return b
}

// APIVersions sets the supported protocol versions. Empty keeps the
// default set.
func (b *DescriptorBuilder) APIVersions(vs []string) *DescriptorBuilder {
	if len(vs) == 0 {
		return b
	}
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for v := range set {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)
	b.d.APIVersions = sorted
	return b
}

// License sets the license identifier. Empty keeps the default.
func (b *DescriptorBuilder) License(l string) *DescriptorBuilder {
	if l != "" {
		b.d.License = l
	}
	return b
}

// Website sets the homepage.
func (b *DescriptorBuilder) Website(w string) *DescriptorBuilder {
	b.d.Website = w
	return b
}

// BuiltIn marks the extension as shipped with the host.
func (b *DescriptorBuilder) BuiltIn(builtIn bool) *DescriptorBuilder {
	b.d.BuiltIn = builtIn
	return b
}

// Build validates the accumulated fields and returns the descriptor.
// ID, Name, and EntryPoint are mandatory.
func (b *DescriptorBuilder) Build() (*Descriptor, error) {
	if b.d.ID == "" || b.d.Name == "" || b.d.EntryPoint == "" {
		return nil, oops.Code(CodeManifestInvalid).
			With("id", b.d.ID).
			With("name", b.d.Name).
			With("entry_point", b.d.EntryPoint).
			Errorf("descriptor requires id, name, and entry point")
	}
	d := b.d
	return &d, nil
}
