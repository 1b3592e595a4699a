// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package manga defines the reader domain types that cross the extension
// boundary. Extensions receive these as plain values; the host application
// owns their lifecycle and persistence.
package manga

// Manga identifies one series as the host application sees it.
type Manga struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
}

// Chapter identifies one chapter within a series.
type Chapter struct {
	ID       string  `json:"id"`
	MangaID  string  `json:"manga_id"`
	Title    string  `json:"title,omitempty"`
	Number   float64 `json:"number"`
	Pages    int     `json:"pages"`
	Language string  `json:"language,omitempty"`
}
