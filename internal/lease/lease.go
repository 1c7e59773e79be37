package lease

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Duration is how long an acquired lease stays valid without renewal.
const Duration = 10 * time.Minute

var (
	ErrInvalidID = errors.New("invalid causa ID format")
)

// Lease is a successful acquisition. Token increases on every acquire of
// the same record and lets a holder detect that it was taken over.
type Lease struct {
	CausaID    string    `json:"causaId"`
	WorkerID   string    `json:"workerId"`
	AcquiredAt time.Time `json:"lockedAt"`
	Token      int64     `json:"token"`
}

func (l Lease) ExpiresAt() time.Time {
	return l.AcquiredAt.Add(Duration)
}

// Held reports whether the lease still blocks other workers at now. A zero
// AcquiredAt means the record carries no lockedAt.
func (l Lease) Held(now time.Time) bool {
	var lockedAt *time.Time
	if !l.AcquiredAt.IsZero() {
		lockedAt = &l.AcquiredAt
	}
	return !IsAvailable(l.WorkerID, lockedAt, now)
}

// Expired reports whether the lease may be taken over at now.
func Expired(lockedAt time.Time, now time.Time) bool {
	return lockedAt.Before(now.Add(-Duration))
}

// IsAvailable mirrors AvailableFilter for a single record. An empty holder
// counts as unlocked; a holder without lockedAt never expires.
func IsAvailable(lockedBy string, lockedAt *time.Time, now time.Time) bool {
	if lockedBy == "" {
		return true
	}
	if lockedAt == nil {
		return false
	}
	return Expired(*lockedAt, now)
}

// AvailableClauses is the $or list matching records that can be acquired.
func AvailableClauses(now time.Time) bson.A {
	return bson.A{
		bson.M{"lockedBy": bson.M{"$exists": false}},
		bson.M{"lockedBy": nil},
		bson.M{"lockedBy": ""},
		bson.M{"lockedAt": bson.M{"$lt": now.Add(-Duration)}},
	}
}

// AvailableFilter matches records whose lease is free or expired.
func AvailableFilter(now time.Time) bson.M {
	return bson.M{"$or": AvailableClauses(now)}
}

// holderPresent matches a non-empty lockedBy.
func holderPresent() bson.M {
	return bson.M{"$exists": true, "$nin": bson.A{nil, ""}}
}

// HeldFilter matches records holding an unexpired lease.
func HeldFilter(now time.Time) bson.M {
	return bson.M{
		"lockedBy": holderPresent(),
		"lockedAt": bson.M{"$gte": now.Add(-Duration)},
	}
}

// StuckFilter matches records whose holder never released an expired lease.
func StuckFilter(now time.Time) bson.M {
	return bson.M{
		"lockedBy": holderPresent(),
		"lockedAt": bson.M{"$lt": now.Add(-Duration)},
	}
}

// UnsetUpdate clears the holder fields. lockToken is kept so tokens stay
// monotonic across releases.
func UnsetUpdate() bson.M {
	return bson.M{"$unset": bson.M{"lockedBy": "", "lockedAt": ""}}
}
