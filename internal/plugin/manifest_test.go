// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiori-reader/shiori/internal/plugin"
	"github.com/shiori-reader/shiori/pkg/errutil"
	"github.com/shiori-reader/shiori/pkg/extension"
)

func TestResolveDirectoryManifest_FullManifest(t *testing.T) {
	dir := t.TempDir()
	yaml := `
id: dev.shiori.translator
name: Translator
version: 2.1.0
author: Ayu
description: Translates page text
capability: image-processing
main.class: NewTranslator
license: GPL-3.0
website: https://example.com/translator
dependencies: ocr-core, lang-pack
api.versions: 1.0, 1.1
`
	d, err := plugin.ResolveDirectoryManifest([]byte(yaml), dir)
	require.NoError(t, err)

	assert.Equal(t, "dev.shiori.translator", d.ID)
	assert.Equal(t, "Translator", d.Name)
	assert.Equal(t, "2.1.0", d.Version)
	assert.Equal(t, "Ayu", d.Author)
	assert.Equal(t, extension.CapabilityImageProcessing, d.Capability)
	assert.Equal(t, "NewTranslator", d.EntryPoint)
	assert.Equal(t, "GPL-3.0", d.License)
	assert.Equal(t, "https://example.com/translator", d.Website)
	assert.Equal(t, []string{"ocr-core", "lang-pack"}, d.Dependencies)
	assert.Equal(t, []string{"1.0", "1.1"}, d.APIVersions)
	assert.Empty(t, d.ArtifactPath, "no packaged artifact in dir")
}

func TestResolveDirectoryManifest_MinimalManifestGetsDefaults(t *testing.T) {
	d, err := plugin.ResolveDirectoryManifest([]byte(`
id: dev.shiori.minimal
name: Minimal
main.class: NewMinimal
`), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, plugin.DefaultVersion, d.Version)
	assert.Equal(t, plugin.DefaultAuthor, d.Author)
	assert.Equal(t, plugin.DefaultLicense, d.License)
	assert.Equal(t, []string{plugin.DefaultAPIVersion}, d.APIVersions)
	assert.Equal(t, extension.CapabilityGeneral, d.Capability)
}

func TestResolveDirectoryManifest_UnknownCapabilityFallsBack(t *testing.T) {
	d, err := plugin.ResolveDirectoryManifest([]byte(`
id: dev.shiori.odd
name: Odd
main.class: NewOdd
capability: quantum-sync
`), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, extension.CapabilityGeneral, d.Capability)
}

func TestResolveDirectoryManifest_ArtifactReference(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, plugin.ArtifactFileName)
	require.NoError(t, os.WriteFile(artifact, []byte("not a real module"), 0o600))

	d, err := plugin.ResolveDirectoryManifest([]byte(`
id: dev.shiori.packed
name: Packed
main.class: NewPacked
`), dir)
	require.NoError(t, err)

	assert.Equal(t, artifact, d.ArtifactPath)
}

func TestResolveDirectoryManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: ""},
		{name: "missing id", yaml: "name: X\nmain.class: NewX\n"},
		{name: "missing name", yaml: "id: dev.shiori.x\nmain.class: NewX\n"},
		{name: "missing entry point", yaml: "id: dev.shiori.x\nname: X\n"},
		{name: "not yaml", yaml: "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := plugin.ResolveDirectoryManifest([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.Nil(t, d)
			errutil.AssertErrorCode(t, err, plugin.CodeManifestInvalid)
		})
	}
}

func TestResolveArchiveManifest(t *testing.T) {
	info := map[string]string{
		"Plugin-Id":           "dev.shiori.packed",
		"Plugin-Name":         "Packed",
		"Plugin-Version":      "3.0.1",
		"Plugin-Author":       "Ayu",
		"Plugin-Capability":   "EXPORT",
		"Plugin-Main-Class":   "NewPacked",
		"Plugin-Dependencies": "zip-core",
		"Plugin-Api-Versions": "1.0",
	}

	d, err := plugin.ResolveArchiveManifest(info, "/tmp/packed/plugin.so")
	require.NoError(t, err)

	assert.Equal(t, "dev.shiori.packed", d.ID)
	assert.Equal(t, "3.0.1", d.Version)
	assert.Equal(t, extension.CapabilityExport, d.Capability)
	assert.Equal(t, []string{"zip-core"}, d.Dependencies)
	assert.Equal(t, "/tmp/packed/plugin.so", d.ArtifactPath)
}

func TestResolveArchiveManifest_MissingRequiredFields(t *testing.T) {
	_, err := plugin.ResolveArchiveManifest(map[string]string{
		"Plugin-Name": "Packed",
	}, "/tmp/packed/plugin.so")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, plugin.CodeManifestInvalid)
	assert.Contains(t, err.Error(), "missing required plugin fields")
}

func TestIsCandidateDir(t *testing.T) {
	root := t.TempDir()

	manifestDir := filepath.Join(root, "with-manifest")
	require.NoError(t, os.MkdirAll(manifestDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, plugin.ManifestFileName), []byte("id: x\n"), 0o600))

	artifactDir := filepath.Join(root, "with-artifact")
	require.NoError(t, os.MkdirAll(artifactDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, plugin.ArtifactFileName), []byte{0}, 0o600))

	emptyDir := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(emptyDir, 0o750))

	assert.True(t, plugin.IsCandidateDir(manifestDir))
	assert.True(t, plugin.IsCandidateDir(artifactDir))
	assert.False(t, plugin.IsCandidateDir(emptyDir))
}
