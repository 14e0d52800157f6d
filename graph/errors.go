package graph

import "github.com/pkg/errors"

// Sentinel errors for the failures the store's operations surface.
// Callers compare against these with errors.Is/errors.Cause; Store
// methods return one of these either bare or wrapped with context via
// errors.Wrap. New and Close can also return collaborator or
// segment-pool errors that wrap none of these.
var (
	// ErrNo means "no-op, subsystem absent". No Store method returns it:
	// New always installs a collaborator (fsmem.NewMemory when none is
	// given).
	ErrNo = errors.New("no")

	// ErrGeneric is a catch-all for failures that don't fit a more
	// specific sentinel.
	ErrGeneric = errors.New("error")

	ErrInvalidParams = errors.New("invalid params")

	ErrAddrNotValid = errors.New("address is not valid")

	ErrNotConnector = errors.New("element is not a connector")

	ErrNotLink = errors.New("element is not a link")

	ErrInvalidType = errors.New("invalid type")

	ErrIO = errors.New("io error")

	// ErrFullMemory is returned by a single mutation when the
	// allocator cannot produce a slot; the store remains consistent.
	ErrFullMemory = errors.New("full memory")
)
