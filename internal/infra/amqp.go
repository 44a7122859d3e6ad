package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpDialAttempts = 5

// DialAMQP connects to RabbitMQ, retrying with exponential backoff.
func DialAMQP(ctx context.Context, url string) (*amqp.Connection, error) {
	var err error
	for i := 1; i <= amqpDialAttempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			slog.Info("infra: connected to RabbitMQ")
			return conn, nil
		}
		slog.Warn("infra: RabbitMQ dial failed", "attempt", i, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second << i):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}
