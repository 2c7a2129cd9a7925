// Package repository holds the storage adapters of the seat lock engine:
// the Redis lease store that serializes every seat decision and the MySQL
// reader for the venue layout.
package repository

import "errors"

// ErrCorruptRecord is returned when a lease store value cannot be decoded
// as a seat record.  Readers treat it like any other unreadable entry.
var ErrCorruptRecord = errors.New("corrupt seat record")
