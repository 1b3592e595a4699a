// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/shiori-reader/shiori/pkg/extension"
)

// Well-known names inside an extension directory.
const (
	// ManifestFileName is the property-style descriptor file.
	ManifestFileName = "plugin.yaml"
	// ArtifactFileName is the packaged shared object.
	ArtifactFileName = "plugin.so"
	// LibDirName is the private module subdirectory, and also the shared
	// pool subdirectory under the plugins root.
	LibDirName = "lib"
	// ModuleSuffix is the loadable-module file extension.
	ModuleSuffix = ".so"
)

// InfoSymbolName is the symbol a packaged artifact exports to embed its
// manifest. The symbol holds a map[string]string keyed by the Plugin-*
// field names.
const InfoSymbolName = "ShioriPluginInfo"

// Directory-form manifest keys.
const (
	keyID           = "id"
	keyName         = "name"
	keyVersion      = "version"
	keyAuthor       = "author"
	keyDescription  = "description"
	keyCapability   = "capability"
	keyMainClass    = "main.class"
	keyExec         = "exec"
	keyLicense      = "license"
	keyWebsite      = "website"
	keyDependencies = "dependencies"
	keyAPIVersions  = "api.versions"
)

// Archive-form manifest keys. Same semantics as the directory form under
// a parallel naming convention.
const (
	archiveKeyID           = "Plugin-Id"
	archiveKeyName         = "Plugin-Name"
	archiveKeyVersion      = "Plugin-Version"
	archiveKeyAuthor       = "Plugin-Author"
	archiveKeyDescription  = "Plugin-Description"
	archiveKeyCapability   = "Plugin-Capability"
	archiveKeyMainClass    = "Plugin-Main-Class"
	archiveKeyExec         = "Plugin-Exec"
	archiveKeyLicense      = "Plugin-License"
	archiveKeyWebsite      = "Plugin-Website"
	archiveKeyDependencies = "Plugin-Dependencies"
	archiveKeyAPIVersions  = "Plugin-Api-Versions"
)

// IsCandidateDir reports whether dir holds a loadable extension: it must
// contain either the property-style manifest or a packaged artifact.
// Directories lacking both are skipped by discovery, never reported as
// errors.
func IsCandidateDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, ArtifactFileName)); err == nil {
		return true
	}
	return false
}

// ResolveDirectoryManifest parses the property-style manifest of a
// directory extension into a descriptor. Resolution is read-only; the
// artifact reference is set when dir contains a packaged shared object.
func ResolveDirectoryManifest(data []byte, dir string) (*Descriptor, error) {
	if len(data) == 0 {
		return nil, oops.Code(CodeManifestInvalid).With("dir", dir).Errorf("manifest data is empty")
	}
	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code(CodeManifestInvalid).With("dir", dir).Wrap(err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, oops.Code(CodeManifestInvalid).With("dir", dir).Hint("invalid YAML").Wrap(err)
	}

	artifact := ""
	if _, err := os.Stat(filepath.Join(dir, ArtifactFileName)); err == nil {
		artifact = filepath.Join(dir, ArtifactFileName)
	}

	return NewDescriptorBuilder().
		ID(stringField(raw, keyID)).
		Name(stringField(raw, keyName)).
		Version(stringField(raw, keyVersion)).
		Author(stringField(raw, keyAuthor)).
		Description(stringField(raw, keyDescription)).
		Capability(extension.ParseCapability(stringField(raw, keyCapability))).
		EntryPoint(stringField(raw, keyMainClass)).
		Exec(stringField(raw, keyExec)).
		License(stringField(raw, keyLicense)).
		Website(stringField(raw, keyWebsite)).
		Dependencies(splitList(stringField(raw, keyDependencies))).
		APIVersions(splitList(stringField(raw, keyAPIVersions))).
		ArtifactPath(artifact).
		Build()
}

// ResolveArchiveManifest normalizes the metadata block embedded in a
// packaged artifact into a descriptor. A missing required field raises
// the distinct archive manifest error.
func ResolveArchiveManifest(info map[string]string, artifactPath string) (*Descriptor, error) {
	if info[archiveKeyID] == "" || info[archiveKeyName] == "" || info[archiveKeyMainClass] == "" {
		return nil, oops.Code(CodeManifestInvalid).
			With("artifact", artifactPath).
			Errorf("archive manifest missing required plugin fields")
	}

	return NewDescriptorBuilder().
		ID(info[archiveKeyID]).
		Name(info[archiveKeyName]).
		Version(info[archiveKeyVersion]).
		Author(info[archiveKeyAuthor]).
		Description(info[archiveKeyDescription]).
		Capability(extension.ParseCapability(info[archiveKeyCapability])).
		EntryPoint(info[archiveKeyMainClass]).
		Exec(info[archiveKeyExec]).
		License(info[archiveKeyLicense]).
		Website(info[archiveKeyWebsite]).
		Dependencies(splitList(info[archiveKeyDependencies])).
		APIVersions(splitList(info[archiveKeyAPIVersions])).
		ArtifactPath(artifactPath).
		Build()
}

// stringField extracts a manifest value as a string. Scalar non-string
// values are stringified; anything else yields the empty string and is
// caught by schema validation or the builder.
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// splitList parses a comma-separated manifest value, trimming whitespace
// and dropping empty entries.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
