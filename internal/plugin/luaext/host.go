// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package luaext

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

// Script globals an extension may define. All are optional.
const (
	fnInit            = "init"
	fnDestroy         = "destroy"
	fnIsEnabled       = "is_enabled"
	fnMangaLoaded     = "on_manga_loaded"
	fnChapterLoaded   = "on_chapter_loaded"
	fnPageLoaded      = "on_page_loaded"
	fnReadingComplete = "on_reading_complete"
)

// Compile-time interface check.
var _ plugin.Runtime = (*Runtime)(nil)

// Runtime instantiates extensions whose entry point is a Lua script.
type Runtime struct {
	factory *StateFactory
}

// NewRuntime creates a Lua extension runtime.
func NewRuntime() *Runtime {
	return &Runtime{factory: NewStateFactory()}
}

// Instantiate reads the script named by the descriptor's entry point
// and validates its syntax in a throwaway state. The returned extension
// runs each hook in a fresh state.
func (r *Runtime) Instantiate(desc *plugin.Descriptor, dir string) (extension.Extension, error) {
	entryPath := filepath.Join(dir, desc.EntryPoint)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("lua").
			With("extension", desc.ID).
			With("path", entryPath).
			Hint("failed to read entry script").
			Wrap(err)
	}

	L, err := r.factory.NewState()
	if err != nil {
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("lua").
			With("extension", desc.ID).
			Hint("failed to create validation state").
			Wrap(err)
	}
	defer L.Close()

	if err := L.DoString(string(code)); err != nil {
		return nil, oops.Code(plugin.CodeLoadFailed).
			In("lua").
			With("extension", desc.ID).
			With("entry", desc.EntryPoint).
			Hint("script error").
			Wrap(err)
	}

	return &scriptExtension{
		desc:    desc,
		code:    string(code),
		factory: r.factory,
	}, nil
}

// scriptExtension adapts one Lua script to the extension contract.
// Identity comes from the resolved descriptor; behavior comes from the
// script's globals.
type scriptExtension struct {
	desc    *plugin.Descriptor
	code    string
	factory *StateFactory
}

func (s *scriptExtension) ID() string                       { return s.desc.ID }
func (s *scriptExtension) Name() string                     { return s.desc.Name }
func (s *scriptExtension) Version() string                  { return s.desc.Version }
func (s *scriptExtension) Author() string                   { return s.desc.Author }
func (s *scriptExtension) Description() string              { return s.desc.Description }
func (s *scriptExtension) Capability() extension.Capability { return s.desc.Capability }

func (s *scriptExtension) Init(_ *extension.Context) error {
	_, err := s.call(fnInit, 0)
	return err
}

func (s *scriptExtension) Destroy() error {
	_, err := s.call(fnDestroy, 0)
	return err
}

// IsEnabled consults the script's is_enabled global. A script without
// one is always willing; a script whose check errors vetoes itself.
func (s *scriptExtension) IsEnabled() bool {
	ret, err := s.call(fnIsEnabled, 1)
	if err != nil {
		slog.Warn("script is_enabled failed", "extension", s.desc.ID, "error", err)
		return false
	}
	if ret == nil || ret.Type() == lua.LTNil {
		return true
	}
	return lua.LVAsBool(ret)
}

func (s *scriptExtension) OnMangaLoaded(m *manga.Manga) error {
	_, err := s.call(fnMangaLoaded, 0, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{mangaTable(L, m)}
	})
	return err
}

func (s *scriptExtension) OnChapterLoaded(ch *manga.Chapter, m *manga.Manga) error {
	_, err := s.call(fnChapterLoaded, 0, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{chapterTable(L, ch), mangaTable(L, m)}
	})
	return err
}

// OnPageLoaded passes page bytes as a Lua string. A string return
// replaces the page; nil keeps the original.
func (s *scriptExtension) OnPageLoaded(data []byte, pageIndex int) ([]byte, error) {
	ret, err := s.call(fnPageLoaded, 1, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(data), lua.LNumber(pageIndex)}
	})
	if err != nil {
		return nil, err
	}
	if ret == nil || ret.Type() != lua.LTString {
		return nil, nil
	}
	return []byte(ret.(lua.LString)), nil
}

func (s *scriptExtension) OnReadingComplete(ch *manga.Chapter, m *manga.Manga) error {
	_, err := s.call(fnReadingComplete, 0, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{chapterTable(L, ch), mangaTable(L, m)}
	})
	return err
}

// call runs one script global in a fresh state. A script that does not
// define the global is a no-op.
func (s *scriptExtension) call(name string, nret int, argFns ...func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	L, err := s.factory.NewState()
	if err != nil {
		return nil, oops.Code(plugin.CodeHookFailed).
			In("lua").
			With("extension", s.desc.ID).
			With("hook", name).
			Hint("failed to create state").
			Wrap(err)
	}
	defer L.Close()

	if err := L.DoString(s.code); err != nil {
		return nil, oops.Code(plugin.CodeHookFailed).
			In("lua").
			With("extension", s.desc.ID).
			With("hook", name).
			Hint("failed to load script").
			Wrap(err)
	}

	fn := L.GetGlobal(name)
	if fn.Type() == lua.LTNil {
		return nil, nil
	}

	var args []lua.LValue
	for _, argFn := range argFns {
		args = append(args, argFn(L)...)
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		return nil, oops.Code(plugin.CodeHookFailed).
			In("lua").
			With("extension", s.desc.ID).
			With("hook", name).
			Wrap(err)
	}

	if nret == 0 {
		return nil, nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func mangaTable(L *lua.LState, m *manga.Manga) lua.LValue {
	if m == nil {
		return lua.LNil
	}
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(m.ID))
	L.SetField(t, "title", lua.LString(m.Title))
	L.SetField(t, "author", lua.LString(m.Author))
	L.SetField(t, "description", lua.LString(m.Description))
	L.SetField(t, "cover_url", lua.LString(m.CoverURL))
	tags := L.NewTable()
	for _, tag := range m.Tags {
		tags.Append(lua.LString(tag))
	}
	L.SetField(t, "tags", tags)
	return t
}

func chapterTable(L *lua.LState, ch *manga.Chapter) lua.LValue {
	if ch == nil {
		return lua.LNil
	}
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(ch.ID))
	L.SetField(t, "manga_id", lua.LString(ch.MangaID))
	L.SetField(t, "title", lua.LString(ch.Title))
	L.SetField(t, "number", lua.LNumber(ch.Number))
	L.SetField(t, "pages", lua.LNumber(ch.Pages))
	L.SetField(t, "language", lua.LString(ch.Language))
	return t
}
