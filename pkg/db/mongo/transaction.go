package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "ejeapi/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	DefaultTransactionAttempts = 3
	DefaultTransactionBackoff  = 50 * time.Millisecond

	labelTransient     = "TransientTransactionError"
	labelUnknownCommit = "UnknownTransactionCommitResult"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client      *mongo.Client
	maxAttempts int
	backoff     time.Duration
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client:      client,
		maxAttempts: DefaultTransactionAttempts,
		backoff:     DefaultTransactionBackoff,
	}
}

// ExecuteTransaction runs fn in a majority read/write transaction. Attempts
// that fail with a TransientTransactionError (write conflict with a worker
// touching the same causa, primary step-down) are rerun from the start, up
// to maxAttempts. AppErrors returned by fn abort and pass through unwrapped.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	opts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	err := retryTransient(ctx, m.maxAttempts, m.backoff, func() error {
		return m.runOnce(ctx, fn, opts)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (m *mongoTransactionManager) runOnce(ctx context.Context, fn TransactionFunc, opts *options.TransactionOptions) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	return mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := session.StartTransaction(opts); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if err := fn(sessCtx); err != nil {
			_ = session.AbortTransaction(context.WithoutCancel(ctx))
			return err
		}
		return commitWithRetry(m.maxAttempts, func() error {
			return session.CommitTransaction(sessCtx)
		})
	})
}

// commitWithRetry repeats a commit whose outcome the server could not
// confirm. Commits are idempotent on the server for the same transaction.
func commitWithRetry(attempts int, commit func() error) error {
	var err error
	for range max(attempts, 1) {
		err = commit()
		if err == nil || !hasLabel(err, labelUnknownCommit) {
			return err
		}
	}
	return err
}

func retryTransient(ctx context.Context, attempts int, backoff time.Duration, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || attempt >= attempts || !hasLabel(err, labelTransient) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
}

func hasLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}
