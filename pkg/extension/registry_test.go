// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package extension_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiori-reader/shiori/pkg/extension"
)

func TestRegisterFactory_Lookup(t *testing.T) {
	extension.RegisterFactory("NewMinimal", func() extension.Extension { return minimal{} })
	t.Cleanup(func() { extension.UnregisterFactory("NewMinimal") })

	f, ok := extension.LookupFactory("NewMinimal")
	require.True(t, ok)
	assert.Equal(t, "dev.shiori.minimal", f().ID())

	_, ok = extension.LookupFactory("Nowhere")
	assert.False(t, ok)
}

func TestRegisterFactory_Panics(t *testing.T) {
	assert.Panics(t, func() {
		extension.RegisterFactory("", func() extension.Extension { return minimal{} })
	}, "empty name")

	assert.Panics(t, func() {
		extension.RegisterFactory("NewNil", nil)
	}, "nil factory")

	extension.RegisterFactory("NewDup", func() extension.Extension { return minimal{} })
	t.Cleanup(func() { extension.UnregisterFactory("NewDup") })
	assert.Panics(t, func() {
		extension.RegisterFactory("NewDup", func() extension.Extension { return minimal{} })
	}, "duplicate name")
}

func TestFactories_Sorted(t *testing.T) {
	extension.RegisterFactory("NewZeta", func() extension.Extension { return minimal{} })
	extension.RegisterFactory("NewAlpha", func() extension.Extension { return minimal{} })
	t.Cleanup(func() {
		extension.UnregisterFactory("NewZeta")
		extension.UnregisterFactory("NewAlpha")
	})

	names := extension.Factories()
	var zi, ai int
	for i, n := range names {
		switch n {
		case "NewZeta":
			zi = i
		case "NewAlpha":
			ai = i
		}
	}
	assert.Less(t, ai, zi)
}

func TestUnregisterFactory(t *testing.T) {
	extension.RegisterFactory("NewGone", func() extension.Extension { return minimal{} })

	assert.True(t, extension.UnregisterFactory("NewGone"))
	assert.False(t, extension.UnregisterFactory("NewGone"))
	_, ok := extension.LookupFactory("NewGone")
	assert.False(t, ok)
}
