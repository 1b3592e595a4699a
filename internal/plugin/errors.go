// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"github.com/samber/oops"
)

// Error codes attached to oops errors raised by this package.
const (
	// CodeManifestInvalid marks an unreadable manifest or one missing
	// required fields.
	CodeManifestInvalid = "MANIFEST_INVALID"
	// CodeLoadFailed marks a candidate that failed to load for reasons
	// outside the more specific codes below.
	CodeLoadFailed = "LOAD_FAILED"
	// CodeEntryPointNotFound marks an entry point that resolved in no
	// source of the loading scope.
	CodeEntryPointNotFound = "ENTRY_POINT_NOT_FOUND"
	// CodeContractViolation marks an entry point whose symbol is not a
	// factory or whose product does not satisfy the extension contract.
	CodeContractViolation = "CONTRACT_VIOLATION"
	// CodeNotInstantiable marks an entry point that resolved to a nil
	// factory.
	CodeNotInstantiable = "NOT_INSTANTIABLE"
	// CodeInstantiationFailed marks a factory that panicked during
	// construction; the underlying cause is wrapped.
	CodeInstantiationFailed = "INSTANTIATION_FAILED"
	// CodeDuplicateRegistration marks an identifier collision. Logged by
	// the registry, never raised to callers.
	CodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	// CodeHookFailed marks a lifecycle or event hook that returned an
	// error or panicked during dispatch.
	CodeHookFailed = "HOOK_FAILED"
	// CodeLibraryError marks a shared library pool operation failure.
	CodeLibraryError = "LIBRARY_ERROR"
)

// HasCode reports whether err is an oops error carrying the given code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

// oopsPanic wraps a recovered panic from an extension hook into a
// HOOK_FAILED error naming the hook.
func oopsPanic(hook string, recovered any) error {
	return oops.Code(CodeHookFailed).
		With("hook", hook).
		Errorf("%s panicked: %v", hook, recovered)
}
