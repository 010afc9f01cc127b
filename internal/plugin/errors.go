package plugin

import (
	"errors"
	"fmt"
)

// ErrLockDenied is returned when a registry update is attempted while
// another update is already in progress in this process.
var ErrLockDenied = errors.New("another plugin update operation is already in progress")

// NotFoundError indicates a plugin or manifest was absent at the
// requested location.
type NotFoundError struct {
	Name   string
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("plugin %q not found", e.Name)
	}
	return fmt.Sprintf("plugin %q not found: %s", e.Name, e.Detail)
}

// ParseError indicates a malformed manifest document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid plugin manifest: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IncompatibleError indicates a manifest failed the platform or
// host-version compatibility gate.
type IncompatibleError struct {
	Name   string
	Reason string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("plugin %q is incompatible: %s", e.Name, e.Reason)
}

// DowngradeError indicates the candidate version is older than the
// installed one and the downgrade flag was not set.
type DowngradeError struct {
	Name      string
	Installed string
	Candidate string
}

func (e *DowngradeError) Error() string {
	return fmt.Sprintf(
		"plugin %q version %s is older than installed version %s; pass --downgrade to downgrade",
		e.Name, e.Candidate, e.Installed)
}

// ChecksumError indicates a downloaded artifact failed its integrity check.
type ChecksumError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for plugin %q: expected %s, got %s", e.Name, e.Expected, e.Actual)
}
