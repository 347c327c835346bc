package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated reports that no usable token exists for the user.
	// Missing records and undecryptable records both collapse into this at
	// the policy layer.
	ErrNotAuthenticated = errors.New("service: not authenticated")
)

// CallbackError reports that an authorization callback was rejected before
// any provider exchange happened: denied consent, malformed or expired
// state, or a nonce that was already consumed.
type CallbackError struct {
	Reason string
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback rejected: %s", e.Reason)
}

// ExchangeError reports that the provider refused or failed the code
// exchange itself.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("code exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
