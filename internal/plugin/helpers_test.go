// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin_test

import (
	"sync"

	"github.com/samber/oops"

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

// fakeExtension is a scriptable in-memory extension for exercising the
// registry, dispatcher, and loader.
type fakeExtension struct {
	mu sync.Mutex

	id         string
	name       string
	capability extension.Capability

	selfEnabled bool
	initErr     error
	initPanic   bool

	initCount    int
	initContexts []*extension.Context
	destroyCount int

	mangaSeen   []*manga.Manga
	chapterSeen []*manga.Chapter
	completed   int

	onManga func(*manga.Manga) error
	onPage  func([]byte, int) ([]byte, error)
}

func newFakeExtension(id string) *fakeExtension {
	return &fakeExtension{
		id:          id,
		name:        id,
		capability:  extension.CapabilityGeneral,
		selfEnabled: true,
	}
}

func (f *fakeExtension) ID() string                       { return f.id }
func (f *fakeExtension) Name() string                     { return f.name }
func (f *fakeExtension) Version() string                  { return "1.0.0" }
func (f *fakeExtension) Author() string                   { return "test" }
func (f *fakeExtension) Description() string              { return "" }
func (f *fakeExtension) Capability() extension.Capability { return f.capability }

func (f *fakeExtension) Init(ctx *extension.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCount++
	f.initContexts = append(f.initContexts, ctx)
	if f.initPanic {
		panic("init exploded")
	}
	return f.initErr
}

func (f *fakeExtension) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyCount++
	return nil
}

func (f *fakeExtension) OnMangaLoaded(m *manga.Manga) error {
	if f.onManga != nil {
		return f.onManga(m)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mangaSeen = append(f.mangaSeen, m)
	return nil
}

func (f *fakeExtension) OnChapterLoaded(ch *manga.Chapter, _ *manga.Manga) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapterSeen = append(f.chapterSeen, ch)
	return nil
}

func (f *fakeExtension) OnPageLoaded(data []byte, pageIndex int) ([]byte, error) {
	if f.onPage != nil {
		return f.onPage(data, pageIndex)
	}
	return nil, nil
}

func (f *fakeExtension) OnReadingComplete(*manga.Chapter, *manga.Manga) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return nil
}

func (f *fakeExtension) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selfEnabled
}

func (f *fakeExtension) setSelfEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selfEnabled = v
}

func (f *fakeExtension) inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCount
}

func (f *fakeExtension) destroys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyCount
}

// fakeSource is an in-memory symbol table.
type fakeSource map[string]any

func (s fakeSource) Lookup(name string) (any, bool) {
	sym, ok := s[name]
	return sym, ok
}

// fakeOpener serves fakeSources by path and fails for paths listed in
// broken.
type fakeOpener struct {
	mu      sync.Mutex
	sources map[string]fakeSource
	broken  map[string]error
	opened  []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		sources: make(map[string]fakeSource),
		broken:  make(map[string]error),
	}
}

func (o *fakeOpener) add(path string, src fakeSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources[path] = src
}

func (o *fakeOpener) fail(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broken[path] = err
}

func (o *fakeOpener) open(path string) (plugin.SymbolSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	if err, ok := o.broken[path]; ok {
		return nil, err
	}
	if src, ok := o.sources[path]; ok {
		return src, nil
	}
	return nil, oops.Errorf("no such module: %s", path)
}
