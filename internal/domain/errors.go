package domain

import (
	"fmt"
	"strings"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// InvalidRequestError is returned before any store access when required input is missing.
type InvalidRequestError struct {
	Fields []string
}

func (e InvalidRequestError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e InvalidRequestError) Is(target error) bool {
	_, ok := target.(InvalidRequestError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidRequestError)
	return ok
}

// ConflictError means the item already carries a donation.
type ConflictError struct {
	ItemID string
}

func (e ConflictError) Error() string {
	if e.ItemID == "" {
		return "already reserved"
	}
	return fmt.Sprintf("item %s already reserved", e.ItemID)
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

// ConfigurationError is an operator fault, e.g. a schema type missing from the store.
type ConfigurationError struct {
	Setting string
}

func (e ConfigurationError) Error() string {
	if e.Setting == "" {
		return "configuration error"
	}
	return fmt.Sprintf("configuration error: %s", e.Setting)
}

func (e ConfigurationError) Is(target error) bool {
	_, ok := target.(ConfigurationError)
	if ok {
		return true
	}
	_, ok = target.(*ConfigurationError)
	return ok
}

// UpstreamError wraps a content store or network failure.
type UpstreamError struct {
	Op  string
	Err error
}

func (e UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upstream: %s failed", e.Op)
	}
	return fmt.Sprintf("upstream: %s: %v", e.Op, e.Err)
}

func (e UpstreamError) Unwrap() error { return e.Err }

func (e UpstreamError) Is(target error) bool {
	_, ok := target.(UpstreamError)
	if ok {
		return true
	}
	_, ok = target.(*UpstreamError)
	return ok
}

// NotificationError reports a failed email. It is logged, never returned to callers of Reserve.
type NotificationError struct {
	Recipient string
	Err       error
}

func (e NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Recipient, e.Err)
}

func (e NotificationError) Unwrap() error { return e.Err }

// Sentinels for errors.Is matching.
var (
	ErrNotFound       = NotFoundError{}
	ErrInvalidRequest = InvalidRequestError{}
	ErrConflict       = ConflictError{}
	ErrConfiguration  = ConfigurationError{}
	ErrUpstream       = UpstreamError{}
)
