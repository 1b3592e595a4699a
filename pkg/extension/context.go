// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package extension

import (
	"context"

	"github.com/shiori-reader/shiori/pkg/manga"
)

// APIClient is the host's network client as exposed to extensions.
type APIClient interface {
	FetchManga(ctx context.Context, id string) (*manga.Manga, error)
	FetchChapters(ctx context.Context, mangaID string) ([]manga.Chapter, error)
}

// BookmarkStore is the host's bookmark persistence surface.
type BookmarkStore interface {
	Add(mangaID string) error
	Remove(mangaID string) error
	List() []string
}

// ProgressStore tracks reading position per chapter.
type ProgressStore interface {
	Position(mangaID, chapterID string) (page int, ok bool)
	SetPosition(mangaID, chapterID string, page int) error
}

// RecentsStore tracks recently opened series.
type RecentsStore interface {
	Touch(mangaID string)
	Recent(limit int) []string
}

// CacheManager is the host's page image cache.
type CacheManager interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte) error
	Evict(key string)
}

// MenuSurface is the host-owned menu an extension may contribute to.
// Calls are side effects on the host UI; the runtime never inspects the
// resulting menu state.
type MenuSurface interface {
	AddMenu(name string)
	AddMenuItem(menu, item string, action func())
}

// MangaCallback observes manga-loaded events.
type MangaCallback func(m *manga.Manga)

// ChapterCallback observes chapter-loaded events.
type ChapterCallback func(ch *manga.Chapter, m *manga.Manga)

// PageCallback participates in the page-transform chain. Returning nil
// keeps the data it received.
type PageCallback func(data []byte, pageIndex int, ch *manga.Chapter, m *manga.Manga) []byte

// CallbackRegistrar accepts callback registrations on behalf of the
// dispatcher. Returned tokens identify a registration for removal.
type CallbackRegistrar interface {
	RegisterMangaCallback(cb MangaCallback) (token string)
	RegisterChapterCallback(cb ChapterCallback) (token string)
	RegisterPageCallback(cb PageCallback) (token string)
	UnregisterCallback(token string) bool
}

// Context gives extensions read access to host services at init time.
// All service accessors may return nil when the host did not wire the
// corresponding surface.
type Context struct {
	api       APIClient
	bookmarks BookmarkStore
	progress  ProgressStore
	recents   RecentsStore
	cache     CacheManager
	menu      MenuSurface
	callbacks CallbackRegistrar
}

// ContextConfig carries the host surfaces a Context exposes. Nil fields
// leave the corresponding accessor nil and registration calls no-ops.
type ContextConfig struct {
	API       APIClient
	Bookmarks BookmarkStore
	Progress  ProgressStore
	Recents   RecentsStore
	Cache     CacheManager
	Menu      MenuSurface
	Callbacks CallbackRegistrar
}

// NewContext builds the context handed to extensions at init time.
func NewContext(cfg ContextConfig) *Context {
	return &Context{
		api:       cfg.API,
		bookmarks: cfg.Bookmarks,
		progress:  cfg.Progress,
		recents:   cfg.Recents,
		cache:     cfg.Cache,
		menu:      cfg.Menu,
		callbacks: cfg.Callbacks,
	}
}

// API returns the host network client.
func (c *Context) API() APIClient { return c.api }

// Bookmarks returns the host bookmark store.
func (c *Context) Bookmarks() BookmarkStore { return c.bookmarks }

// Progress returns the host reading-progress store.
func (c *Context) Progress() ProgressStore { return c.progress }

// Recents returns the host recents store.
func (c *Context) Recents() RecentsStore { return c.recents }

// Cache returns the host image cache.
func (c *Context) Cache() CacheManager { return c.cache }

// OnMangaLoaded registers an independent manga-loaded callback and
// returns its token. Returns an empty token when no registrar is wired.
func (c *Context) OnMangaLoaded(cb MangaCallback) string {
	if c.callbacks == nil {
		return ""
	}
	return c.callbacks.RegisterMangaCallback(cb)
}

// OnChapterLoaded registers an independent chapter-loaded callback.
func (c *Context) OnChapterLoaded(cb ChapterCallback) string {
	if c.callbacks == nil {
		return ""
	}
	return c.callbacks.RegisterChapterCallback(cb)
}

// OnPageLoaded registers an independent page-transform callback.
func (c *Context) OnPageLoaded(cb PageCallback) string {
	if c.callbacks == nil {
		return ""
	}
	return c.callbacks.RegisterPageCallback(cb)
}

// RemoveCallback unregisters a previously registered callback by token.
func (c *Context) RemoveCallback(token string) bool {
	if c.callbacks == nil {
		return false
	}
	return c.callbacks.UnregisterCallback(token)
}

// AddMenu contributes a top-level menu to the host menu surface.
func (c *Context) AddMenu(name string) {
	if c.menu != nil {
		c.menu.AddMenu(name)
	}
}

// AddMenuItem contributes an item to an existing host menu.
func (c *Context) AddMenuItem(menu, item string, action func()) {
	if c.menu != nil {
		c.menu.AddMenuItem(menu, item, action)
	}
}
