// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

//go:build integration

package plugin_test

import (
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/internal/plugin/luaext"
	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

// stamper is a host-compiled extension resolved through the factory
// registry, standing in for a built-in the reader ships with.
type stamper struct {
	extension.Base

	mu         sync.Mutex
	mangaSeen  []string
	destroyed  bool
	initCalled bool
}

func (s *stamper) ID() string                       { return "stamper" }
func (s *stamper) Name() string                     { return "Stamper" }
func (s *stamper) Version() string                  { return "1.0.0" }
func (s *stamper) Author() string                   { return "Shiori" }
func (s *stamper) Description() string              { return "prefixes pages with a stamp" }
func (s *stamper) Capability() extension.Capability { return extension.CapabilityImageProcessing }

func (s *stamper) Init(_ *extension.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalled = true
	return nil
}

func (s *stamper) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	return nil
}

func (s *stamper) OnMangaLoaded(m *manga.Manga) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mangaSeen = append(s.mangaSeen, m.ID)
	return nil
}

func (s *stamper) OnPageLoaded(data []byte, _ int) ([]byte, error) {
	return append([]byte("[stamp]"), data...), nil
}

func (s *stamper) seenManga() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mangaSeen...)
}

func (s *stamper) wasDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

const greeterScript = `
function init()
end

function is_enabled()
	return true
end

function on_page_loaded(data, index)
	return data .. "<!-- greeter -->"
end
`

var _ = Describe("Extension host", func() {
	var (
		root    string
		mgr     *plugin.Manager
		current *stamper
	)

	writeExtension := func(name, manifest string, files map[string]string) {
		dir := filepath.Join(root, name)
		Expect(os.MkdirAll(dir, 0o750)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, plugin.ManifestFileName), []byte(manifest), 0o600)).To(Succeed())
		for fname, body := range files {
			Expect(os.WriteFile(filepath.Join(dir, fname), []byte(body), 0o600)).To(Succeed())
		}
	}

	BeforeEach(func() {
		root = GinkgoT().TempDir()

		writeExtension("greeter", `
id: lua-greeter
name: Lua Greeter
version: 1.2.0
capability: general
main.class: main.lua
`, map[string]string{"main.lua": greeterScript})

		writeExtension("stamper", `
id: stamper
name: Stamper
version: 1.0.0
capability: image-processing
main.class: NewStamper
`, nil)

		current = &stamper{}
		extension.RegisterFactory("NewStamper", func() extension.Extension { return current })

		mgr = plugin.NewManager(root, plugin.WithScriptRuntime(luaext.NewRuntime()))
	})

	AfterEach(func() {
		mgr.Shutdown()
		extension.UnregisterFactory("NewStamper")
	})

	initialize := func() {
		ctx := extension.NewContext(extension.ContextConfig{Callbacks: mgr.Dispatcher()})
		ok, err := mgr.Initialize(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	}

	It("loads script and host extensions side by side", func() {
		initialize()

		Expect(mgr.Registry().Count()).To(Equal(2))
		ids := make([]string, 0, 2)
		for _, desc := range mgr.Registry().Descriptors() {
			ids = append(ids, desc.ID)
		}
		Expect(ids).To(ConsistOf("lua-greeter", "stamper"))
		Expect(current.initCalled).To(BeTrue())
	})

	It("dispatches manga events to loaded extensions", func() {
		initialize()

		mgr.Dispatcher().MangaLoaded(&manga.Manga{ID: "m1", Title: "Planetes"})
		Expect(current.seenManga()).To(Equal([]string{"m1"}))
	})

	It("chains page transformations in load order", func() {
		initialize()

		ch := &manga.Chapter{ID: "c1", Number: 1, Pages: 2}
		m := &manga.Manga{ID: "m1"}
		out := mgr.Dispatcher().ProcessPage([]byte("page"), 0, ch, m)

		// greeter sorts before stamper, so its suffix lands first and
		// the stamp wraps the whole result.
		Expect(string(out)).To(Equal("[stamp]page<!-- greeter -->"))
	})

	It("skips disabled extensions during dispatch", func() {
		initialize()

		Expect(mgr.Registry().Disable("stamper")).To(BeTrue())
		out := mgr.Dispatcher().ProcessPage([]byte("page"), 0, nil, nil)
		Expect(string(out)).To(Equal("page<!-- greeter -->"))

		Expect(mgr.Registry().Enable("stamper")).To(BeTrue())
		out = mgr.Dispatcher().ProcessPage([]byte("page"), 0, nil, nil)
		Expect(string(out)).To(Equal("[stamp]page<!-- greeter -->"))
	})

	It("feeds standalone callbacks after extensions", func() {
		initialize()

		var calls int
		token := mgr.Dispatcher().RegisterPageCallback(func(data []byte, _ int, _ *manga.Chapter, _ *manga.Manga) []byte {
			calls++
			return append(data, '!')
		})
		defer mgr.Dispatcher().UnregisterCallback(token)

		out := mgr.Dispatcher().ProcessPage([]byte("p"), 0, nil, nil)
		Expect(string(out)).To(Equal("[stamp]p<!-- greeter -->!"))
		Expect(calls).To(Equal(1))
	})

	It("tears down cleanly on shutdown", func() {
		initialize()
		Expect(mgr.Initialized()).To(BeTrue())

		mgr.Shutdown()
		Expect(mgr.Initialized()).To(BeFalse())
		Expect(current.wasDestroyed()).To(BeTrue())
		Expect(mgr.Registry().Count()).To(BeZero())
	})
})
