// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// LibraryCollection maintains the shared pool of loadable modules under
// the plugins root's lib subdirectory. Modules in the pool join the
// loading scope of every extension. Safe for concurrent use.
type LibraryCollection struct {
	root    string
	dir     string
	mu      sync.RWMutex
	modules []string // absolute paths, set by Scan
}

// NewLibraryCollection creates the collection for a plugins root,
// auto-creating the shared directory if absent. A creation failure is
// logged and degrades to an empty pool; it is never fatal.
func NewLibraryCollection(pluginsRoot string) *LibraryCollection {
	lc := &LibraryCollection{
		root: pluginsRoot,
		dir:  filepath.Join(pluginsRoot, LibDirName),
	}
	if err := os.MkdirAll(lc.dir, 0o750); err != nil {
		slog.Error("failed to create shared library directory",
			"dir", lc.dir,
			"error", err)
	}
	return lc
}

// Dir returns the shared library directory.
func (lc *LibraryCollection) Dir() string { return lc.dir }

// Scan enumerates loadable modules in the shared directory, replacing
// the in-memory list. Idempotent and safe to call repeatedly. A read
// failure degrades to an empty collection with a logged condition.
func (lc *LibraryCollection) Scan() {
	entries, err := os.ReadDir(lc.dir)
	if err != nil {
		slog.Warn("error scanning shared library directory",
			"dir", lc.dir,
			"error", err)
		lc.mu.Lock()
		lc.modules = nil
		lc.mu.Unlock()
		return
	}

	var modules []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ModuleSuffix) {
			continue
		}
		modules = append(modules, filepath.Join(lc.dir, entry.Name()))
	}

	lc.mu.Lock()
	lc.modules = modules
	lc.mu.Unlock()

	if len(modules) > 0 {
		slog.Info("loaded shared libraries", "count", len(modules))
	}
}

// Add copies the referenced module into the shared directory,
// overwriting a same-named entry, then rescans.
func (lc *LibraryCollection) Add(sourcePath string) error {
	dest := filepath.Join(lc.dir, filepath.Base(sourcePath))
	if err := copyFile(sourcePath, dest); err != nil {
		return oops.Code(CodeLibraryError).
			With("source", sourcePath).
			With("dest", dest).
			Hint("failed to add library").
			Wrap(err)
	}
	lc.Scan()
	slog.Info("added library", "library", filepath.Base(dest))
	return nil
}

// Remove deletes the first entry whose filename contains name, then
// rescans. Matching is substring-based, not exact: Remove("io") can
// match commons-io before bigio, and the first match wins. Fails when
// nothing matches, leaving the collection unchanged.
func (lc *LibraryCollection) Remove(name string) error {
	lc.mu.RLock()
	var target string
	for _, path := range lc.modules {
		if strings.Contains(filepath.Base(path), name) {
			target = path
			break
		}
	}
	lc.mu.RUnlock()

	if target == "" {
		return oops.Code(CodeLibraryError).With("library", name).Errorf("library not found: %s", name)
	}
	if err := os.Remove(target); err != nil {
		return oops.Code(CodeLibraryError).With("library", name).Hint("failed to remove library").Wrap(err)
	}
	lc.Scan()
	slog.Info("removed library", "library", name)
	return nil
}

// List returns the display names of the in-memory loaded set.
func (lc *LibraryCollection) List() []string {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	names := make([]string, 0, len(lc.modules))
	for _, path := range lc.modules {
		names = append(names, filepath.Base(path))
	}
	return names
}

// ListAvailable re-reads the shared directory, so it can reveal files
// not yet incorporated into the active loading scope.
func (lc *LibraryCollection) ListAvailable() []string {
	entries, err := os.ReadDir(lc.dir)
	if err != nil {
		slog.Error("error listing libraries", "dir", lc.dir, "error", err)
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ModuleSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// Paths returns a copy of the scanned module paths for scope building.
func (lc *LibraryCollection) Paths() []string {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return append([]string(nil), lc.modules...)
}

func copyFile(src, dest string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
