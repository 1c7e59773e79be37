package kafka_middleware

import (
	"context"

	"ejeapi/pkg/kafka"
	"ejeapi/pkg/metrics"
)

// MetricsProducerMiddleware counts publishes by event type and outcome.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)

		outcome := metrics.OutcomeSent
		if err != nil {
			outcome = metrics.OutcomeError
		}
		metrics.EventsPublishedTotal.WithLabelValues(msg.GetEventType(), outcome).Inc()

		return err
	}
}
