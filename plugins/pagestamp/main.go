// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package main implements a page-stamping extension for Shiori.
// It runs as a companion process and appends a short marker to every
// page it sees, demonstrating the process-runtime extension SDK.
//
// Build:
//
//	go build -o pagestamp ./plugins/pagestamp
//
// Install by dropping the binary next to a plugin.yaml naming it under
// the exec key:
//
//	id: dev.shiori.pagestamp
//	name: Page Stamp
//	main.class: pagestamp
//	exec: pagestamp
//	capability: image-processing
package main

import (
	"log/slog"

	"github.com/shiori-reader/shiori/pkg/extension"
	"github.com/shiori-reader/shiori/pkg/manga"
)

const stamp = "\n<!-- pagestamp -->"

type pagestamp struct {
	extension.Base
}

func (p *pagestamp) ID() string                       { return "dev.shiori.pagestamp" }
func (p *pagestamp) Name() string                     { return "Page Stamp" }
func (p *pagestamp) Version() string                  { return "1.0.0" }
func (p *pagestamp) Author() string                   { return "Shiori Contributors" }
func (p *pagestamp) Description() string              { return "Appends a marker to every page" }
func (p *pagestamp) Capability() extension.Capability { return extension.CapabilityImageProcessing }

func (p *pagestamp) OnMangaLoaded(m *manga.Manga) error {
	slog.Info("manga opened", "title", m.Title)
	return nil
}

func (p *pagestamp) OnPageLoaded(data []byte, pageIndex int) ([]byte, error) {
	out := make([]byte, 0, len(data)+len(stamp))
	out = append(out, data...)
	out = append(out, stamp...)
	return out, nil
}

func main() {
	extension.Serve(&extension.ServeConfig{
		Extension: &pagestamp{},
	})
}
