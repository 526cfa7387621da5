// Package errors defines the typed errors used across the federation tooling.
//
// Callers decide escalation explicitly: missing configuration, failed
// authentication and failed primary fetches are fatal (process exits 1),
// while link-status reads, backups of a possibly-empty target and
// post-migration verification stay advisory.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// MissingConfigError reports every required environment variable that was
// not set, so the operator can fix all of them in one pass.
type MissingConfigError struct {
	Vars []string
}

func NewMissingConfigError(vars ...string) error {
	return &MissingConfigError{Vars: vars}
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("the following required environment variables are missing: %s", strings.Join(e.Vars, ", "))
}

func IsMissingConfigError(err error) bool {
	var t *MissingConfigError
	return errors.As(err, &t)
}

// AuthFailedError indicates the broker rejected the credentials or could not
// be reached at all during the authentication probe.
type AuthFailedError struct {
	Broker string
}

func NewAuthFailedError(broker string) error {
	return &AuthFailedError{Broker: broker}
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed with %s, please check credentials", e.Broker)
}

func IsAuthFailedError(err error) bool {
	var t *AuthFailedError
	return errors.As(err, &t)
}

// FetchError wraps a failed read of a management API resource.
type FetchError struct {
	Broker   string
	Resource string
	Err      error
}

func NewFetchError(broker, resource string, err error) error {
	return &FetchError{Broker: broker, Resource: resource, Err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not get %s from %s: %v", e.Resource, e.Broker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var t *FetchError
	return errors.As(err, &t)
}

// WriteError wraps a failed PUT of a single upstream or policy. The broker
// response body is kept because the management API explains rejections there.
type WriteError struct {
	Kind       string
	Name       string
	StatusCode int
	Body       string
	Err        error
}

func NewWriteError(kind, name string, statusCode int, body string, err error) error {
	return &WriteError{Kind: kind, Name: name, StatusCode: statusCode, Body: body, Err: err}
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not create %s %s: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("could not create %s %s: status %d: %s", e.Kind, e.Name, e.StatusCode, e.Body)
}

func (e *WriteError) Unwrap() error { return e.Err }

func IsWriteError(err error) bool {
	var t *WriteError
	return errors.As(err, &t)
}

// IsFatal reports whether err belongs to the precondition class that must
// terminate the run with a non-zero exit code.
func IsFatal(err error) bool {
	return IsMissingConfigError(err) || IsAuthFailedError(err) || IsFetchError(err)
}
