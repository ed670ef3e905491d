package domain

import "context"

// EventPublisher emits room lifecycle events for downstream consumers
// (notification services, audit). Publishing is best-effort: services log
// failures and never fail the operation over a broker error.
type EventPublisher interface {
	PublishRoomCreated(ctx context.Context, room *Room) error
	PublishMemberRemoved(ctx context.Context, roomID, userID, removedBy string) error
	PublishMemberLeft(ctx context.Context, roomID, userID string) error
	PublishChatCreated(ctx context.Context, roomID string, chat *Chat) error
	PublishChatDeleted(ctx context.Context, roomID, chatID string) error
}
