package mongo

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeout(t *testing.T) {
	t.Run("adds deadline", func(t *testing.T) {
		ctx, cancel := WithTimeout(context.Background(), time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected a deadline")
		}
		if time.Until(deadline) > time.Second {
			t.Errorf("deadline too far: %v", time.Until(deadline))
		}
	})

	t.Run("keeps shorter parent deadline", func(t *testing.T) {
		parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer parentCancel()

		ctx, cancel := WithTimeout(parent, time.Hour)
		defer cancel()

		deadline, _ := ctx.Deadline()
		if time.Until(deadline) > 50*time.Millisecond {
			t.Errorf("expected parent deadline to win, got %v", time.Until(deadline))
		}
	})
}
