package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSourceUnavailable marks failures that retrying will not fix
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrStoreCorruption marks an unreadable store file
	ErrStoreCorruption = errors.New("store corruption")

	// ErrBreakerOpen is returned once a source exhausted its failure budget
	ErrBreakerOpen = errors.New("circuit breaker open")
)

// FetchError is a transient failure talking to a source
type FetchError struct {
	Source     string
	StatusCode int
	RetryAfter time.Duration // server-requested wait, zero when absent
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response or record that could not be interpreted
type ParseError struct {
	Source string
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse %s: %s", e.Source, e.Detail)
	}
	return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Detail, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreIOError is an unrecoverable filesystem failure in the durable store
type StoreIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// IntegrityError records a corruption the store recovered from
type IntegrityError struct {
	File     string `json:"file"`
	Recovery string `json:"recovery"`
	Detail   string `json:"detail"`
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s (recovered by %s)", e.File, e.Detail, e.Recovery)
}

func (e IntegrityError) Unwrap() error { return ErrStoreCorruption }

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
