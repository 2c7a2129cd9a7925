package repository

// DefaultLockKeyPrefix namespaces seat lock records in the lease store.
const DefaultLockKeyPrefix = "event"

// SeatLockKey returns the lease store key of the record for one seat of one
// event, e.g. "event:42:seat:vip-A-1".
func SeatLockKey(prefix, eventID, seatID string) string {
	if prefix == "" {
		prefix = DefaultLockKeyPrefix
	}
	return prefix + ":" + eventID + ":seat:" + seatID
}
