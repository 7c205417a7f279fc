package body

import "errors"

// Construction failures. Any of these abandons the whole build.
var (
	ErrDuplicateTissueID   = errors.New("duplicate tissue id")
	ErrUnknownTissue       = errors.New("unknown tissue")
	ErrDanglingReference   = errors.New("dangling reference")
	ErrMalformedDefinition = errors.New("malformed definition")
)

// ErrCannotRemoveRoot is returned by Remove for the root container.
// Use DestroyAll to tear the whole body down.
var ErrCannotRemoveRoot = errors.New("cannot remove body root")

// ErrCorruptSnapshot is returned by Restore when a snapshot breaks a registry invariant.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")
