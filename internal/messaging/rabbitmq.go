package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomchat/internal/domain"
	"roomchat/internal/observability"
)

const (
	eventsExchange = "room.events"
	auditQueue     = "room.audit"
)

// RabbitMQ publishes room lifecycle events to a topic exchange. It satisfies
// domain.EventPublisher.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// RoomEvent is the wire envelope for every published event.
type RoomEvent struct {
	RoomID    string `json:"room_id"`
	RoomType  string `json:"room_type,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry dials the broker with exponential backoff until the
// context is done. Useful at startup when the broker container may still be
// coming up.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	backoff := time.Second
	for {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not ready, retrying",
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connection timed out: %w", err)
		case <-time.After(backoff):
		}

		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

// Setup declares the events exchange and the audit queue bound to every
// routing key.
func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		eventsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		auditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("failed to declare audit queue: %w", err)
	}

	if err := r.channel.QueueBind(
		auditQueue,
		"#", // every event
		eventsExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind audit queue: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, event *RoomEvent) error {
	event.Timestamp = time.Now().Unix()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		eventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	observability.EventsPublishedTotal.WithLabelValues(routingKey).Inc()
	slog.Info("published event",
		slog.String("routing_key", routingKey),
		slog.String("room_id", event.RoomID))
	return nil
}

func (r *RabbitMQ) PublishRoomCreated(ctx context.Context, room *domain.Room) error {
	return r.publish(ctx, "room.created", &RoomEvent{
		RoomID:   room.ID,
		RoomType: string(room.Type),
		ActorID:  room.Owner,
	})
}

func (r *RabbitMQ) PublishMemberRemoved(ctx context.Context, roomID, userID, removedBy string) error {
	return r.publish(ctx, "room.member.removed", &RoomEvent{
		RoomID:  roomID,
		UserID:  userID,
		ActorID: removedBy,
	})
}

func (r *RabbitMQ) PublishMemberLeft(ctx context.Context, roomID, userID string) error {
	return r.publish(ctx, "room.member.left", &RoomEvent{
		RoomID: roomID,
		UserID: userID,
	})
}

func (r *RabbitMQ) PublishChatCreated(ctx context.Context, roomID string, chat *domain.Chat) error {
	return r.publish(ctx, "chat.created", &RoomEvent{
		RoomID:    roomID,
		ChatID:    chat.ID,
		ActorID:   chat.SenderID,
		MediaType: chat.MediaType,
	})
}

func (r *RabbitMQ) PublishChatDeleted(ctx context.Context, roomID, chatID string) error {
	return r.publish(ctx, "chat.deleted", &RoomEvent{
		RoomID: roomID,
		ChatID: chatID,
	})
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
