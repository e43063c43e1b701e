package models

import (
	"errors"
	"fmt"
)

var (
	ErrResolution   = errors.New("location could not be resolved")
	ErrStoreWrite   = errors.New("event store write failed")
	ErrStoreQuery   = errors.New("event store query failed")
	ErrNotification = errors.New("notification could not be delivered")
	ErrNoRecipient  = errors.New("user has no email address")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEvent = errors.New("invalid event")
)

const (
	OpWrite = "write"
	OpQuery = "query"
)

// StoreError is returned by the event store. It matches ErrStoreWrite or
// ErrStoreQuery depending on Op.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("event store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreWrite:
		return e.Op == OpWrite
	case ErrStoreQuery:
		return e.Op == OpQuery
	}
	return false
}
