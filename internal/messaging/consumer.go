package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
)

// AuditConsumer drains the audit queue and writes each event to the
// structured log. It stands in for downstream notification services until
// those exist.
type AuditConsumer struct {
	rmq *RabbitMQ
}

func NewAuditConsumer(rmq *RabbitMQ) *AuditConsumer {
	return &AuditConsumer{rmq: rmq}
}

// Start consumes until the context is cancelled. Deliveries are acked after
// logging; a malformed body is logged and acked rather than redelivered
// forever.
func (c *AuditConsumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.channel.Consume(
		auditQueue, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("audit consumer stopping")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("audit consumer channel closed")
					return
				}

				var event RoomEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					slog.Error("failed to parse audit event",
						slog.String("error", err.Error()))
					msg.Ack(false)
					continue
				}

				slog.Info("room event",
					slog.String("routing_key", msg.RoutingKey),
					slog.String("room_id", event.RoomID),
					slog.String("user_id", event.UserID),
					slog.String("actor_id", event.ActorID),
					slog.String("chat_id", event.ChatID))
				msg.Ack(false)
			}
		}
	}()

	slog.Info("started audit consumer", slog.String("queue", auditQueue))
	return nil
}
