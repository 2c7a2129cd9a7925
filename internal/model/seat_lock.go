package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SeatStatus is the externally visible state of a seat.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatLocked    SeatStatus = "locked"
	SeatSold      SeatStatus = "sold"
	// SeatUnknown is only reported by status reads configured to fail
	// closed when the lease store cannot be read.
	SeatUnknown SeatStatus = "unknown"
)

// SeatRecord is the single value stored per (event, seat) in the lease
// store.  An absent record means the seat is available.  While Status is
// SeatLocked the store entry carries the lease as its ttl; a SeatSold record
// has no ttl.
//
// Fields:
//
//	Status   – SeatLocked or SeatSold.
//	Holder   – client that holds or bought the seat; never changes for the
//	           life of the record.
//	LockedAt – unix milliseconds of the acquisition.
//	SoldAt   – unix milliseconds of the promotion (sold records only).
type SeatRecord struct {
	Status   SeatStatus `json:"status"`
	Holder   string     `json:"holder"`
	LockedAt int64      `json:"locked_at"`
	SoldAt   int64      `json:"sold_at,omitempty"`
}

// NewLockRecord builds the record written by a successful acquisition.
func NewLockRecord(holder string, at time.Time) SeatRecord {
	return SeatRecord{Status: SeatLocked, Holder: holder, LockedAt: at.UnixMilli()}
}

// Sold returns the sold form of a locked record.
func (r SeatRecord) Sold(at time.Time) SeatRecord {
	r.Status = SeatSold
	r.SoldAt = at.UnixMilli()
	return r
}

// Encode serializes the record for storage.
func (r SeatRecord) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSeatRecord parses a stored record and rejects values that do not
// describe a held or sold seat.
func DecodeSeatRecord(raw string) (SeatRecord, error) {
	var r SeatRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return SeatRecord{}, fmt.Errorf("decode seat record: %w", err)
	}
	if r.Status != SeatLocked && r.Status != SeatSold {
		return SeatRecord{}, fmt.Errorf("decode seat record: unexpected status %q", r.Status)
	}
	if r.Holder == "" {
		return SeatRecord{}, fmt.Errorf("decode seat record: missing holder")
	}
	return r, nil
}

// SeatView is the read model returned to polling clients.  Holder and
// TTLSeconds are omitted for available seats; TTLSeconds is also omitted for
// sold seats.
type SeatView struct {
	Status     SeatStatus `json:"status"`
	Holder     string     `json:"holder,omitempty"`
	TTLSeconds int64      `json:"ttl_seconds,omitempty"`
}
