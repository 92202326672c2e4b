package usecase

import "errors"

var (
	// ErrCredentialInvalid means the provider rejected the refresh token
	// itself. The account needs a fresh consent; retrying is pointless.
	ErrCredentialInvalid = errors.New("credential invalid: account needs reconnection")

	// ErrAccountNotLinked means no credential exists for the requested
	// (user, account) pair.
	ErrAccountNotLinked = errors.New("account not linked")
)
