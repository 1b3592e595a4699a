// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package luaext_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/internal/plugin/luaext"
	"github.com/shiori-reader/shiori/pkg/errutil"
	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

func writeScript(t *testing.T, code string) (string, *plugin.Descriptor) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(code), 0o600))

	desc, err := plugin.NewDescriptorBuilder().
		ID("lua-fixture").
		Name("Lua Fixture").
		EntryPoint("main.lua").
		Build()
	require.NoError(t, err)
	return dir, desc
}

func instantiate(t *testing.T, code string) extension.Extension {
	t.Helper()

	dir, desc := writeScript(t, code)
	ext, err := luaext.NewRuntime().Instantiate(desc, dir)
	require.NoError(t, err)
	return ext
}

func TestInstantiateIdentityFromDescriptor(t *testing.T) {
	ext := instantiate(t, "")

	assert.Equal(t, "lua-fixture", ext.ID())
	assert.Equal(t, "Lua Fixture", ext.Name())
	assert.Equal(t, plugin.DefaultVersion, ext.Version())
	assert.Equal(t, extension.CapabilityGeneral, ext.Capability())
}

func TestInstantiateMissingScript(t *testing.T) {
	dir := t.TempDir()
	desc, err := plugin.NewDescriptorBuilder().
		ID("lua-fixture").
		Name("Lua Fixture").
		EntryPoint("absent.lua").
		Build()
	require.NoError(t, err)

	_, err = luaext.NewRuntime().Instantiate(desc, dir)
	errutil.AssertErrorCode(t, err, plugin.CodeLoadFailed)
}

func TestInstantiateScriptError(t *testing.T) {
	dir, desc := writeScript(t, "this is not lua")

	_, err := luaext.NewRuntime().Instantiate(desc, dir)
	errutil.AssertErrorCode(t, err, plugin.CodeLoadFailed)
}

func TestUndefinedHooksAreNoOps(t *testing.T) {
	ext := instantiate(t, "local unused = 1")

	assert.NoError(t, ext.Init(nil))
	assert.NoError(t, ext.OnMangaLoaded(&manga.Manga{ID: "m"}))
	assert.NoError(t, ext.OnReadingComplete(&manga.Chapter{ID: "c"}, nil))
	assert.NoError(t, ext.Destroy())

	out, err := ext.OnPageLoaded([]byte("page"), 0)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestInitErrorSurfaces(t *testing.T) {
	ext := instantiate(t, `function init() error("refusing to start") end`)

	err := ext.Init(nil)
	errutil.AssertErrorCode(t, err, plugin.CodeHookFailed)
	assert.ErrorContains(t, err, "refusing to start")
}

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "undefined defaults to enabled", code: "", want: true},
		{name: "true", code: "function is_enabled() return true end", want: true},
		{name: "false", code: "function is_enabled() return false end", want: false},
		{name: "error vetoes", code: `function is_enabled() error("broken") end`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := instantiate(t, tt.code)
			assert.Equal(t, tt.want, ext.IsEnabled())
		})
	}
}

func TestOnPageLoadedReplace(t *testing.T) {
	ext := instantiate(t, `
function on_page_loaded(data, index)
	return data .. "#" .. index
end
`)

	out, err := ext.OnPageLoaded([]byte("page"), 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("page#3"), out)
}

func TestOnPageLoadedNilKeepsOriginal(t *testing.T) {
	ext := instantiate(t, `
function on_page_loaded(data, index)
	return nil
end
`)

	out, err := ext.OnPageLoaded([]byte("page"), 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMangaTableFields(t *testing.T) {
	// The hook raises unless every field arrived intact, so a clean
	// return proves the conversion.
	ext := instantiate(t, `
function on_manga_loaded(m)
	if m.id ~= "m1" then error("id: " .. tostring(m.id)) end
	if m.title ~= "Aria" then error("title") end
	if m.author ~= "Amano" then error("author") end
	if m.tags[1] ~= "slice-of-life" or m.tags[2] ~= "sci-fi" then error("tags") end
end
`)

	err := ext.OnMangaLoaded(&manga.Manga{
		ID:     "m1",
		Title:  "Aria",
		Author: "Amano",
		Tags:   []string{"slice-of-life", "sci-fi"},
	})
	assert.NoError(t, err)
}

func TestChapterTableFields(t *testing.T) {
	ext := instantiate(t, `
function on_chapter_loaded(ch, m)
	if ch.id ~= "c12" then error("id") end
	if ch.number ~= 12.5 then error("number") end
	if ch.pages ~= 30 then error("pages") end
	if m.id ~= "m1" then error("manga") end
end
`)

	err := ext.OnChapterLoaded(
		&manga.Chapter{ID: "c12", MangaID: "m1", Number: 12.5, Pages: 30},
		&manga.Manga{ID: "m1"},
	)
	assert.NoError(t, err)
}

func TestNilMangaPassedAsNil(t *testing.T) {
	ext := instantiate(t, `
function on_reading_complete(ch, m)
	if m ~= nil then error("expected nil manga") end
	if ch.id ~= "c1" then error("chapter") end
end
`)

	assert.NoError(t, ext.OnReadingComplete(&manga.Chapter{ID: "c1"}, nil))
}

func TestSandboxBlocksIO(t *testing.T) {
	ext := instantiate(t, `
function init()
	if os ~= nil or io ~= nil then error("sandbox leak") end
	if load ~= nil or dofile ~= nil then error("loader leak") end
end
`)

	assert.NoError(t, ext.Init(nil))
}

func TestHooksRunInFreshStates(t *testing.T) {
	// Globals set by one hook must not leak into the next invocation.
	ext := instantiate(t, `
calls = 0
function on_page_loaded(data, index)
	calls = calls + 1
	return tostring(calls)
end
`)

	for range 3 {
		out, err := ext.OnPageLoaded(nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), out)
	}
}
