// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// Runtime instantiates extensions that are not resolved through the
// in-process symbol scope, such as scripts or companion processes.
type Runtime interface {
	Instantiate(desc *Descriptor, dir string) (extension.Extension, error)
}

// Loader discovers extension candidates under a root directory,
// resolves their manifests, and registers instantiated extensions. One
// broken candidate never prevents the rest from loading.
type Loader struct {
	root string
	lib  *LibraryCollection
	reg  *Registry

	opener         ModuleOpener
	scriptRuntime  Runtime
	processRuntime Runtime
	ignore         []glob.Glob
	hostAPIVersion string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithModuleOpener substitutes the module opener used to build loading
// scopes. Primarily for tests.
func WithModuleOpener(opener ModuleOpener) LoaderOption {
	return func(l *Loader) { l.opener = opener }
}

// WithScriptRuntime installs the runtime used for script entry points.
func WithScriptRuntime(rt Runtime) LoaderOption {
	return func(l *Loader) { l.scriptRuntime = rt }
}

// WithProcessRuntime installs the runtime used for manifests that name
// a companion executable.
func WithProcessRuntime(rt Runtime) LoaderOption {
	return func(l *Loader) { l.processRuntime = rt }
}

// WithIgnorePatterns skips candidates whose directory or file name
// matches any of the given glob patterns. Patterns that do not compile
// are logged and dropped.
func WithIgnorePatterns(patterns []string) LoaderOption {
	return func(l *Loader) {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				slog.Warn("invalid ignore pattern", "pattern", p, "error", err)
				continue
			}
			l.ignore = append(l.ignore, g)
		}
	}
}

// WithHostAPIVersion sets the host API version used for the advisory
// compatibility check against manifest api.versions.
func WithHostAPIVersion(version string) LoaderOption {
	return func(l *Loader) { l.hostAPIVersion = version }
}

// NewLoader creates a loader over root, backed by the shared library
// pool and the registry.
func NewLoader(root string, lib *LibraryCollection, reg *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:           root,
		lib:            lib,
		reg:            reg,
		opener:         DefaultModuleOpener,
		hostAPIVersion: DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll scans the root directory and loads every candidate: each
// subdirectory holding a manifest or packaged artifact, plus each
// standalone module file at the root. It returns true when every
// candidate loaded, and an error only when the root itself cannot be
// read.
func (l *Loader) LoadAll() (bool, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("extensions directory does not exist", "dir", l.root)
			return true, nil
		}
		return false, oops.Code(CodeLoadFailed).
			With("dir", l.root).
			Wrapf(err, "failed to read extensions directory")
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		entry := byName[name]
		path := filepath.Join(l.root, name)

		if l.ignored(name) {
			slog.Debug("extension candidate ignored", "candidate", name)
			recordLoad(LoadResultSkipped)
			continue
		}

		switch {
		case entry.IsDir() && name == LibDirName:
			// the shared library pool, not a candidate
		case entry.IsDir():
			if !IsCandidateDir(path) {
				recordLoad(LoadResultSkipped)
				continue
			}
			if err := l.loadDir(path); err != nil {
				ok = false
				recordLoad(LoadResultFailed)
				slog.Error("failed to load extension", "candidate", name, "error", err)
				continue
			}
			recordLoad(LoadResultLoaded)
		case strings.HasSuffix(name, ModuleSuffix):
			if err := l.loadArchive(path); err != nil {
				ok = false
				recordLoad(LoadResultFailed)
				slog.Error("failed to load extension", "candidate", name, "error", err)
				continue
			}
			recordLoad(LoadResultLoaded)
		default:
			recordLoad(LoadResultSkipped)
		}
	}
	return ok, nil
}

func (l *Loader) ignored(name string) bool {
	for _, g := range l.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// loadDir loads one extension directory.
func (l *Loader) loadDir(dir string) error {
	desc, err := l.describe(dir)
	if err != nil {
		return err
	}

	inst, err := l.instantiate(desc, dir)
	if err != nil {
		return err
	}

	l.register(inst, desc)
	return nil
}

// describe resolves the descriptor of one extension directory without
// instantiating it. Directories with a manifest resolve it directly;
// artifact-only directories fall back to the metadata embedded in the
// packaged module.
func (l *Loader) describe(dir string) (*Descriptor, error) {
	manifestPath := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err == nil {
		return ResolveDirectoryManifest(data, dir)
	}
	if !os.IsNotExist(err) {
		return nil, oops.Code(CodeManifestInvalid).
			With("manifest", manifestPath).
			Wrapf(err, "failed to read manifest")
	}
	return l.describeModule(filepath.Join(dir, ArtifactFileName))
}

// loadArchive loads a standalone packaged module dropped at the root of
// the extensions directory. Its scope covers the host and the module
// itself, never the shared pool.
func (l *Loader) loadArchive(path string) error {
	desc, err := l.describeModule(path)
	if err != nil {
		return err
	}

	scope := NewScope(l.opener, path, nil, nil)
	inst, err := l.resolveAndInstantiate(scope, desc)
	if err != nil {
		return err
	}

	l.register(inst, desc)
	return nil
}

// describeModule resolves a descriptor from the metadata a packaged
// module embeds under the well-known info symbol.
func (l *Loader) describeModule(path string) (*Descriptor, error) {
	src, err := l.opener(path)
	if err != nil {
		return nil, oops.Code(CodeLoadFailed).
			With("artifact", path).
			Wrapf(err, "failed to open extension artifact")
	}

	sym, ok := src.Lookup(InfoSymbolName)
	if !ok {
		return nil, oops.Code(CodeManifestInvalid).
			With("artifact", path).
			Errorf("artifact embeds no %s metadata", InfoSymbolName)
	}

	var info map[string]string
	switch v := sym.(type) {
	case map[string]string:
		info = v
	case *map[string]string:
		if v != nil {
			info = *v
		}
	}
	if info == nil {
		return nil, oops.Code(CodeManifestInvalid).
			With("artifact", path).
			Errorf("%s is %T, expected map[string]string", InfoSymbolName, sym)
	}

	return ResolveArchiveManifest(info, path)
}

// instantiate picks the runtime for a directory-form extension and
// constructs the instance.
func (l *Loader) instantiate(desc *Descriptor, dir string) (extension.Extension, error) {
	switch {
	case desc.Exec != "":
		if l.processRuntime == nil {
			return nil, oops.Code(CodeLoadFailed).
				With("extension", desc.ID).
				Errorf("manifest names executable %q but no process runtime is configured", desc.Exec)
		}
		return l.processRuntime.Instantiate(desc, dir)

	case strings.HasSuffix(desc.EntryPoint, ".lua"):
		if l.scriptRuntime == nil {
			return nil, oops.Code(CodeLoadFailed).
				With("extension", desc.ID).
				Errorf("entry point %q is a script but no script runtime is configured", desc.EntryPoint)
		}
		return l.scriptRuntime.Instantiate(desc, dir)

	default:
		scope := NewScope(l.opener, desc.ArtifactPath, l.lib.Paths(), privateModules(dir))
		return l.resolveAndInstantiate(scope, desc)
	}
}

func (l *Loader) resolveAndInstantiate(scope *Scope, desc *Descriptor) (extension.Extension, error) {
	sym, err := scope.Resolve(desc.EntryPoint)
	if err != nil {
		return nil, err
	}
	return Instantiate(sym, desc.EntryPoint)
}

// register applies the advisory checks and hands the instance to the
// registry under the descriptor's identifier.
func (l *Loader) register(inst extension.Extension, desc *Descriptor) {
	if l.hostAPIVersion != "" && !l.apiCompatible(desc) {
		slog.Warn("extension targets a different host API version",
			"extension", desc.ID,
			"host_api", l.hostAPIVersion,
			"supported", desc.APIVersions)
	}
	if _, err := semver.NewVersion(desc.Version); err != nil {
		slog.Warn("extension version is not semver",
			"extension", desc.ID, "version", desc.Version)
	}
	if id := inst.ID(); id != "" && id != desc.ID {
		slog.Warn("extension reports an identifier differing from its manifest",
			"manifest_id", desc.ID, "instance_id", id)
	}
	l.reg.Register(inst, desc)
	slog.Info("extension loaded",
		"extension", desc.ID,
		"version", desc.Version,
		"capability", string(desc.Capability))
}

// apiCompatible reports whether any declared api.versions entry shares
// a major version with the host. Declarations that fail to parse count
// as incompatible.
func (l *Loader) apiCompatible(desc *Descriptor) bool {
	host, err := semver.NewVersion(l.hostAPIVersion)
	if err != nil {
		return true
	}
	for _, v := range desc.APIVersions {
		declared, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if declared.Major() == host.Major() {
			return true
		}
	}
	return false
}

// Discover resolves the descriptor of every candidate under root
// without instantiating anything. Candidates that fail to resolve are
// logged and skipped.
func Discover(root string, opener ModuleOpener) ([]*Descriptor, error) {
	if opener == nil {
		opener = DefaultModuleOpener
	}
	l := &Loader{root: root, opener: opener}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.Code(CodeLoadFailed).
			With("dir", root).
			Wrapf(err, "failed to read extensions directory")
	}

	var descs []*Descriptor
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		var desc *Descriptor
		var derr error
		switch {
		case entry.IsDir() && entry.Name() == LibDirName:
			continue
		case entry.IsDir():
			if !IsCandidateDir(path) {
				continue
			}
			desc, derr = l.describe(path)
		case strings.HasSuffix(entry.Name(), ModuleSuffix):
			desc, derr = l.describeModule(path)
		default:
			continue
		}

		if derr != nil {
			slog.Warn("skipping unresolvable candidate",
				"candidate", entry.Name(), "error", derr)
			continue
		}
		descs = append(descs, desc)
	}

	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs, nil
}

// privateModules lists the modules bundled under the extension's own
// lib directory. These are visible only to this extension's scope.
func privateModules(dir string) []string {
	entries, err := os.ReadDir(filepath.Join(dir, LibDirName))
	if err != nil {
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ModuleSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, LibDirName, e.Name()))
	}
	sort.Strings(paths)
	return paths
}
