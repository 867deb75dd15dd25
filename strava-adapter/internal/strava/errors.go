package strava

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidLimit is returned when an activity page size is not positive.
var ErrInvalidLimit = errors.New("limit must be greater than zero")

const maxBodySnippet = 512

// ConfigurationError means the credential source is missing or malformed.
type ConfigurationError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strava config %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("strava config %s: %s", e.Source, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// AuthError means the token endpoint rejected an exchange.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("strava auth rejected (status %d)", e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteServiceError is a non-2xx response, or an unusable 2xx body, from an API endpoint.
type RemoteServiceError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("strava %s returned %d: %s", e.Endpoint, e.Status, e.Body)
}

// TransportError is a network-level failure: no response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("strava %s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError means a refreshed TokenSet could not be written. The token
// remains usable for the current process.
type PersistenceError struct {
	Target string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist tokens to %s: %v", e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NeedsReauthorization reports whether err can only be resolved by running the
// authorization flow again.
func NeedsReauthorization(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return true
	}
	var remoteErr *RemoteServiceError
	if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusUnauthorized {
		return true
	}
	return false
}

func snippet(body []byte) string {
	if len(body) > maxBodySnippet {
		return string(body[:maxBodySnippet]) + "..."
	}
	return string(body)
}
