package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomchat/internal/access"
	"roomchat/internal/domain"
	"roomchat/internal/observability"
)

// CreateChatInput is the validated payload for appending a chat. Exactly one
// of Message or File is expected to be set.
type CreateChatInput struct {
	Message string
	File    *domain.FileInput
}

// ChatService implements the chat ledger within a room: append, read
// receipts, edits and soft deletes. Chats are addressed by resolving their
// position by ID at read time, then issuing an index-addressed update.
type ChatService struct {
	roomRepo domain.RoomRepository
	codec    domain.MessageCodec
	events   domain.EventPublisher
}

func NewChatService(roomRepo domain.RoomRepository, codec domain.MessageCodec, events domain.EventPublisher) *ChatService {
	return &ChatService{
		roomRepo: roomRepo,
		codec:    codec,
		events:   events,
	}
}

// CreateChat appends a chat to the room's ledger. Text is stored encrypted;
// a file reference populates the media fields instead, with the media type
// taken from the first segment of the content type.
func (s *ChatService) CreateChat(ctx context.Context, callerID, roomID string, in CreateChatInput) (*domain.Chat, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := access.CanPost(room, callerID); err != nil {
		return nil, err
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.NewString(),
		SenderID:  callerID,
		IsRead:    false,
		Status:    domain.ChatStatusPlain,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if in.Message != "" {
		ciphertext, err := s.codec.Encrypt(in.Message)
		if err != nil {
			return nil, err
		}
		chat.Message = ciphertext
	}
	if in.File != nil {
		chat.Image = in.File.URL
		chat.ImageID = in.File.FileID
		chat.MediaType = mediaType(in.File.ContentType)
	}

	if err := s.roomRepo.AppendChat(ctx, roomID, chat); err != nil {
		return nil, err
	}

	kind := chat.MediaType
	if kind == "" {
		kind = "text"
	}
	observability.ChatsCreatedTotal.WithLabelValues(kind).Inc()

	if err := s.events.PublishChatCreated(ctx, roomID, chat); err != nil {
		slog.Warn("failed to publish event",
			slog.String("event", "chat.created"),
			slog.String("error", err.Error()))
	}
	return chat, nil
}

// SetRead marks the referenced chats as read on behalf of the caller. Chats
// the caller sent, and IDs that match nothing, are silently skipped.
func (s *ChatService) SetRead(ctx context.Context, callerID, roomID string, chatIDs []string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := access.CanPost(room, callerID); err != nil {
		return err
	}

	indices := make([]int, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		idx := access.ChatIndex(room, chatID)
		if idx >= 0 && room.Chats[idx].SenderID != callerID {
			indices = append(indices, idx)
		}
	}
	return s.roomRepo.MarkChatsRead(ctx, roomID, indices)
}

// EditMessage re-encrypts the chat's text and marks it updated. Only the
// original sender may edit.
func (s *ChatService) EditMessage(ctx context.Context, callerID, roomID, chatID, message string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	idx, err := access.CanEditChat(room, callerID, chatID)
	if err != nil {
		return err
	}

	ciphertext, err := s.codec.Encrypt(message)
	if err != nil {
		return err
	}
	return s.roomRepo.SetChatMessage(ctx, roomID, idx, ciphertext)
}

// DeleteMessage soft-deletes a chat. The text is retained; readers filter
// deleted chats out. Deleting twice conflicts.
func (s *ChatService) DeleteMessage(ctx context.Context, callerID, roomID, chatID string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	idx, err := access.CanDeleteChat(room, callerID, chatID)
	if err != nil {
		return err
	}

	if err := s.roomRepo.SetChatStatus(ctx, roomID, idx, domain.ChatStatusDeleted); err != nil {
		return err
	}

	if err := s.events.PublishChatDeleted(ctx, roomID, chatID); err != nil {
		slog.Warn("failed to publish event",
			slog.String("event", "chat.deleted"),
			slog.String("error", err.Error()))
	}
	return nil
}

// mediaType derives the stored media kind from a MIME content type:
// "image/png" -> "image".
func mediaType(contentType string) string {
	kind, _, _ := strings.Cut(contentType, "/")
	return strings.ToLower(kind)
}
