package lease

import (
	"context"
	"errors"
	"time"

	"ejeapi/internal/events"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/metrics"
	"ejeapi/pkg/model"
)

// Locker coordinates workers competing for causas. All state lives in the
// Store, so any number of Locker instances may run side by side.
type Locker struct {
	store     Store
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewLocker(store Store, publisher events.Publisher, log *logger.Logger) *Locker {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Locker{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Acquire claims causaID for workerID. It returns false when the record is
// held by an unexpired lease, does not exist, or the store fails.
func (l *Locker) Acquire(ctx context.Context, causaID, workerID string) (Lease, bool) {
	if workerID == "" {
		return Lease{}, false
	}

	now := l.now()
	token, ok, err := l.store.ClaimIfAvailable(ctx, causaID, workerID, now)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			l.log.Debug("Lease acquire rejected", "causa_id", causaID, "worker_id", workerID, "error", err)
			metrics.LeaseAcquireTotal.WithLabelValues(metrics.OutcomeHeld).Inc()
			return Lease{}, false
		}
		l.log.Error("Failed to acquire lease", "causa_id", causaID, "worker_id", workerID, "error", err)
		metrics.LeaseAcquireTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return Lease{}, false
	}
	if !ok {
		l.log.Debug("Lease unavailable", "causa_id", causaID, "worker_id", workerID)
		metrics.LeaseAcquireTotal.WithLabelValues(metrics.OutcomeHeld).Inc()
		return Lease{}, false
	}

	metrics.LeaseAcquireTotal.WithLabelValues(metrics.OutcomeAcquired).Inc()
	l.log.Info("Lease acquired", "causa_id", causaID, "worker_id", workerID, "token", token)
	l.publisher.Publish(ctx, events.New(events.TypeLeaseAcquired, causaID, map[string]any{
		"workerId": workerID,
		"token":    token,
	}))

	return Lease{CausaID: causaID, WorkerID: workerID, AcquiredAt: now, Token: token}, true
}

// Release clears the lease regardless of holder. Missing records and
// records that were not locked both count as released.
func (l *Locker) Release(ctx context.Context, causaID string) bool {
	if err := l.store.Clear(ctx, causaID); err != nil {
		l.log.Error("Failed to release lease", "causa_id", causaID, "error", err)
		metrics.LeaseReleaseTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return false
	}

	metrics.LeaseReleaseTotal.WithLabelValues(metrics.OutcomeReleased).Inc()
	l.log.Info("Lease released", "causa_id", causaID)
	l.publisher.Publish(ctx, events.New(events.TypeLeaseReleased, causaID, nil))
	return true
}

// Verify reports whether workerID still holds causaID under token. A worker
// whose lease expired and was taken over sees false and must drop its work.
func (l *Locker) Verify(ctx context.Context, causaID, workerID string, token int64) bool {
	holder, err := l.store.Holder(ctx, causaID)
	if err != nil {
		if !errors.Is(err, ErrInvalidID) {
			l.log.Error("Failed to verify lease", "causa_id", causaID, "worker_id", workerID, "error", err)
		}
		metrics.LeaseVerifyTotal.WithLabelValues(metrics.ResultStale).Inc()
		return false
	}

	valid := holder != nil &&
		holder.WorkerID == workerID &&
		holder.Token == token &&
		holder.Held(l.now())

	result := metrics.ResultStale
	if valid {
		result = metrics.ResultValid
	}
	metrics.LeaseVerifyTotal.WithLabelValues(result).Inc()
	return valid
}

// Stuck lists records whose lease expired without being released.
func (l *Locker) Stuck(ctx context.Context) ([]*model.CausaSummary, error) {
	return l.store.FindStuck(ctx, l.now())
}

// ClearStuck releases every expired lease in one update.
func (l *Locker) ClearStuck(ctx context.Context) (int64, error) {
	cleared, err := l.store.ClearStuck(ctx, l.now())
	if err != nil {
		l.log.Error("Failed to clear stuck leases", "error", err)
		return 0, err
	}

	metrics.LeaseStuckClearedTotal.Add(float64(cleared))
	l.log.Info("Stuck leases cleared", "count", cleared)
	if cleared > 0 {
		l.publisher.Publish(ctx, events.New(events.TypeLeaseStuckCleared, "", map[string]any{
			"cleared": cleared,
		}))
	}
	return cleared, nil
}
