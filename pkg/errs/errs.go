// Package errs defines the error taxonomy shared across the storage routing
// and deletion engine.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProvider is returned when a handler key has no
	// registered implementation.
	ErrUnsupportedProvider = errors.New("unsupported dataset database provider")

	// ErrProvisioningTimeout is returned when a managed database never
	// reached its ready state within the poll budget.
	ErrProvisioningTimeout = errors.New("dataset database provisioning timed out")

	// ErrMetadataAbsent signals that a metadata table does not exist yet,
	// which callers on the prune path treat as "nothing to do".
	ErrMetadataAbsent = errors.New("metadata table absent")

	// ErrCollectionNotFound is returned by the vector store when the named
	// collection does not exist.
	ErrCollectionNotFound = errors.New("vector collection not found")

	// ErrSecretResolution is returned when encrypted connection credentials
	// cannot be decrypted or a token exchange fails.
	ErrSecretResolution = errors.New("secret resolution failed")
)

// ProviderMismatchError is raised by a handler's Create when the active
// configuration names a different provider than the handler serves. It is
// raised before any network or filesystem I/O.
type ProviderMismatchError struct {
	Handler    string
	Configured string
}

func (e *ProviderMismatchError) Error() string {
	return fmt.Sprintf(
		"handler %q cannot provision for configured provider %q",
		e.Handler, e.Configured,
	)
}

func (e *ProviderMismatchError) Unwrap() error {
	return ErrUnsupportedProvider
}
