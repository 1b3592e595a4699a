// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

//go:build integration

package plugin_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func TestExtensionHost(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extension Host Suite")
}
