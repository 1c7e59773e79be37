package lease

import (
	"context"
	"time"

	"ejeapi/pkg/model"
)

// Store persists lease fields on the record itself. ClaimIfAvailable must
// be a single atomic conditional update.
type Store interface {
	ClaimIfAvailable(ctx context.Context, causaID, workerID string, now time.Time) (token int64, ok bool, err error)
	Clear(ctx context.Context, causaID string) error
	// Holder returns the current holder, or nil when unlocked or missing.
	Holder(ctx context.Context, causaID string) (*Lease, error)
	FindStuck(ctx context.Context, now time.Time) ([]*model.CausaSummary, error)
	ClearStuck(ctx context.Context, now time.Time) (int64, error)
}
