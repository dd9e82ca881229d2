package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a non-admin registers or unregisters
	ErrUnauthorized = errors.New("unauthorized: only admin may register or unregister code IDs")

	// ErrUnauthorizedUpdateAdmin is returned when a non-admin changes the admin
	ErrUnauthorizedUpdateAdmin = errors.New("unauthorized: only admin may update admin")

	// ErrCodeIDAlreadyRegistered is matched by every CodeIDAlreadyRegisteredError
	ErrCodeIDAlreadyRegistered = errors.New("code ID already registered")

	// ErrNotFound is returned by queries on an absent key
	ErrNotFound = errors.New("registration not found")

	// ErrInvalidIdentity is returned when an admin identity is malformed
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidInput is returned when a key component cannot be encoded
	ErrInvalidInput = errors.New("invalid input")

	// ErrRegistrationMismatch is matched by every RegistrationMismatchError
	ErrRegistrationMismatch = errors.New("registration mismatch")

	// ErrStorageFault wraps failures of the underlying store
	ErrStorageFault = errors.New("storage fault")

	// ErrNotInstantiated is returned when no admin has been stored yet
	ErrNotInstantiated = fmt.Errorf("%w: registry has no admin, instantiate it first", ErrStorageFault)
)

// CodeIDAlreadyRegisteredError reports a register call on an occupied (chain_id, code_id)
type CodeIDAlreadyRegisteredError struct {
	CodeID  uint64
	ChainID string
}

func (e *CodeIDAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("code ID %d has already been registered on chain %s", e.CodeID, e.ChainID)
}

// Is matches ErrCodeIDAlreadyRegistered
func (e *CodeIDAlreadyRegisteredError) Is(target error) bool {
	return target == ErrCodeIDAlreadyRegistered
}

// RegistrationMismatchError reports an unregister tuple whose two keys
// address different records. Index names the side that disagreed.
type RegistrationMismatchError struct {
	Index    string
	Existing string
}

func (e *RegistrationMismatchError) Error() string {
	return fmt.Sprintf("registration mismatch: %s index holds %s", e.Index, e.Existing)
}

// Is matches ErrRegistrationMismatch
func (e *RegistrationMismatchError) Is(target error) bool {
	return target == ErrRegistrationMismatch
}

// storageFault wraps a substrate error so callers can match ErrStorageFault
// while still reaching the backend error underneath.
func storageFault(err error) error {
	if err == nil || errors.Is(err, ErrStorageFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}

// isDomainError reports whether err belongs to the registry taxonomy
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrUnauthorized, ErrUnauthorizedUpdateAdmin, ErrCodeIDAlreadyRegistered,
		ErrNotFound, ErrInvalidIdentity, ErrInvalidInput, ErrRegistrationMismatch,
		ErrStorageFault,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
