package invitations

import "errors"

var (
	// ErrScopeNotFound means the target organization or event does not exist.
	ErrScopeNotFound = errors.New("scope not found")
	// ErrNoEmails means the input email set was empty after normalization.
	ErrNoEmails = errors.New("at least one email is required")
	// ErrInvalidScopeType means the scope type is neither ORGANIZATION nor EVENT.
	ErrInvalidScopeType = errors.New("invalid scope type")
)
