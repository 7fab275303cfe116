package azstore

import "errors"

var (
	// ErrInvalidState is returned when an operation's local preconditions are
	// violated, such as requesting a Content-MD5 header with no body set.
	ErrInvalidState = errors.New("invalid request state")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrCredentialConfig is returned when credentials match neither the
	// shared-key nor the token-provider variant.
	ErrCredentialConfig = errors.New("credentials have neither account key nor token provider")
	// ErrTokenProvider is returned when the bearer token provider fails or
	// returns an empty token.
	ErrTokenProvider = errors.New("token provider failed")
	// ErrTransport wraps network-level failures from the HTTP transport.
	ErrTransport = errors.New("transport error")
)
