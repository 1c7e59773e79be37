package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeLeaseAcquired     = "lease.acquired"
	TypeLeaseReleased     = "lease.released"
	TypeLeaseStuckCleared = "lease.stuck_cleared"
	TypeCausaCreated      = "causa.created"
	TypeCausaDeleted      = "causa.deleted"
	TypeFolderAssociated  = "folder.associated"
	TypeFolderDissociated = "folder.dissociated"
	TypePivotResolved     = "pivot.resolved"
)

// Event is a domain event describing a change to a causa.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	CausaID    string         `json:"causaId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(eventType, causaID string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CausaID:    causaID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher emits domain events. Publish never fails the caller; delivery
// problems are the publisher's to log.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}

func (NoopPublisher) Close() error { return nil }
