// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

// Event names used in dispatch metrics and logs.
const (
	EventMangaLoaded     = "manga_loaded"
	EventChapterLoaded   = "chapter_loaded"
	EventPageLoaded      = "page_loaded"
	EventReadingComplete = "reading_complete"
)

var (
	tokenEntropy     = ulid.Monotonic(rand.Reader, 0)
	tokenEntropyLock sync.Mutex
)

func newToken() string {
	tokenEntropyLock.Lock()
	defer tokenEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), tokenEntropy).String()
}

// Dispatcher fans reader events out to every dispatchable extension in
// registration order, and additionally to standalone callbacks
// registered by host components. A hook that errors or panics is
// contained and logged; it never stops the remaining extensions from
// seeing the event.
type Dispatcher struct {
	reg *Registry

	mu           sync.RWMutex
	mangaCbs     map[string]extension.MangaCallback
	mangaOrder   []string
	chapterCbs   map[string]extension.ChapterCallback
	chapterOrder []string
	pageCbs      map[string]extension.PageCallback
	pageOrder    []string
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{
		reg:        reg,
		mangaCbs:   make(map[string]extension.MangaCallback),
		chapterCbs: make(map[string]extension.ChapterCallback),
		pageCbs:    make(map[string]extension.PageCallback),
	}
}

// RegisterMangaCallback adds a standalone manga callback and returns
// its removal token.
func (d *Dispatcher) RegisterMangaCallback(cb extension.MangaCallback) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := newToken()
	d.mangaCbs[token] = cb
	d.mangaOrder = append(d.mangaOrder, token)
	return token
}

// RegisterChapterCallback adds a standalone chapter callback and
// returns its removal token.
func (d *Dispatcher) RegisterChapterCallback(cb extension.ChapterCallback) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := newToken()
	d.chapterCbs[token] = cb
	d.chapterOrder = append(d.chapterOrder, token)
	return token
}

// RegisterPageCallback adds a standalone page callback and returns its
// removal token.
func (d *Dispatcher) RegisterPageCallback(cb extension.PageCallback) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := newToken()
	d.pageCbs[token] = cb
	d.pageOrder = append(d.pageOrder, token)
	return token
}

// UnregisterCallback removes the callback registered under token.
func (d *Dispatcher) UnregisterCallback(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.mangaCbs[token]; ok {
		delete(d.mangaCbs, token)
		d.mangaOrder = removeToken(d.mangaOrder, token)
		return true
	}
	if _, ok := d.chapterCbs[token]; ok {
		delete(d.chapterCbs, token)
		d.chapterOrder = removeToken(d.chapterOrder, token)
		return true
	}
	if _, ok := d.pageCbs[token]; ok {
		delete(d.pageCbs, token)
		d.pageOrder = removeToken(d.pageOrder, token)
		return true
	}
	return false
}

// Reset drops every standalone callback. Extensions are untouched.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mangaCbs = make(map[string]extension.MangaCallback)
	d.mangaOrder = nil
	d.chapterCbs = make(map[string]extension.ChapterCallback)
	d.chapterOrder = nil
	d.pageCbs = make(map[string]extension.PageCallback)
	d.pageOrder = nil
}

// MangaLoaded notifies every dispatchable extension, then every
// standalone manga callback.
func (d *Dispatcher) MangaLoaded(m *manga.Manga) {
	recordEvent(EventMangaLoaded)

	for _, ext := range d.reg.Enabled() {
		d.contain(ext.ID(), "OnMangaLoaded", func() error {
			return ext.OnMangaLoaded(m)
		})
	}
	for _, cb := range d.mangaCallbacks() {
		d.contain("callback", "OnMangaLoaded", func() error {
			cb(m)
			return nil
		})
	}
}

// ChapterLoaded notifies every dispatchable extension, then every
// standalone chapter callback.
func (d *Dispatcher) ChapterLoaded(ch *manga.Chapter, m *manga.Manga) {
	recordEvent(EventChapterLoaded)

	for _, ext := range d.reg.Enabled() {
		d.contain(ext.ID(), "OnChapterLoaded", func() error {
			return ext.OnChapterLoaded(ch, m)
		})
	}
	for _, cb := range d.chapterCallbacks() {
		d.contain("callback", "OnChapterLoaded", func() error {
			cb(ch, m)
			return nil
		})
	}
}

// ReadingComplete notifies every dispatchable extension that the reader
// finished the chapter.
func (d *Dispatcher) ReadingComplete(ch *manga.Chapter, m *manga.Manga) {
	recordEvent(EventReadingComplete)

	for _, ext := range d.reg.Enabled() {
		d.contain(ext.ID(), "OnReadingComplete", func() error {
			return ext.OnReadingComplete(ch, m)
		})
	}
}

// ProcessPage folds page data through every dispatchable extension and
// then every standalone page callback, in order. A stage that returns
// nil keeps the accumulator; a stage that returns data replaces it; a
// faulting stage is contained and treated as keeping the accumulator.
// With no stages the input is returned unchanged.
func (d *Dispatcher) ProcessPage(data []byte, pageIndex int, ch *manga.Chapter, m *manga.Manga) []byte {
	recordEvent(EventPageLoaded)
	start := time.Now()
	defer func() { recordPageTransform(time.Since(start)) }()

	acc := data
	for _, ext := range d.reg.Enabled() {
		var out []byte
		ok := d.contain(ext.ID(), "OnPageLoaded", func() error {
			var err error
			out, err = ext.OnPageLoaded(acc, pageIndex)
			return err
		})
		// A hook that errored keeps the accumulator even when it also
		// returned data.
		if ok && out != nil {
			acc = out
		}
	}

	for _, cb := range d.pageCallbacks() {
		var out []byte
		ok := d.contain("callback", "OnPageLoaded", func() error {
			out = cb(acc, pageIndex, ch, m)
			return nil
		})
		if ok && out != nil {
			acc = out
		}
	}
	return acc
}

// contain runs one hook with panic recovery and reports whether it
// completed cleanly. Errors and panics are logged with the owning
// extension and counted, never propagated.
func (d *Dispatcher) contain(extensionID, hook string, fn func() error) bool {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = oopsPanic(hook, r)
			}
		}()
		return fn()
	}()
	if err != nil {
		recordHookFailure(extensionID, hook)
		slog.Error("extension hook failed",
			"extension", extensionID, "hook", hook, "error", err)
		return false
	}
	return true
}

func (d *Dispatcher) mangaCallbacks() []extension.MangaCallback {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]extension.MangaCallback, 0, len(d.mangaOrder))
	for _, token := range d.mangaOrder {
		out = append(out, d.mangaCbs[token])
	}
	return out
}

func (d *Dispatcher) chapterCallbacks() []extension.ChapterCallback {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]extension.ChapterCallback, 0, len(d.chapterOrder))
	for _, token := range d.chapterOrder {
		out = append(out, d.chapterCbs[token])
	}
	return out
}

func (d *Dispatcher) pageCallbacks() []extension.PageCallback {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]extension.PageCallback, 0, len(d.pageOrder))
	for _, token := range d.pageOrder {
		out = append(out, d.pageCbs[token])
	}
	return out
}

func removeToken(order []string, token string) []string {
	for i, t := range order {
		if t == token {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
