package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roomchat/internal/access"
	"roomchat/internal/domain"
)

// CreateRoomInput is the validated payload for room creation. The member
// list must already be unique; uniqueness is the validation layer's job.
type CreateRoomInput struct {
	Users       []string
	Name        string
	Description string
	File        *domain.FileInput
}

// RoomDetail is the member-facing view of a single room: the chat ledger is
// replaced by the room's non-deleted media attachments.
type RoomDetail struct {
	ID          string             `json:"id"`
	Type        domain.RoomType    `json:"type"`
	Owner       string             `json:"owner,omitempty"`
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Image       string             `json:"image,omitempty"`
	ImageID     string             `json:"imageId,omitempty"`
	Users       []domain.RoomUser  `json:"users"`
	Media       []domain.ChatMedia `json:"media"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// RoomService implements the room directory: lifecycle, membership and role
// changes. Every mutation is a read for access control followed by one write.
type RoomService struct {
	roomRepo domain.RoomRepository
	events   domain.EventPublisher
}

func NewRoomService(roomRepo domain.RoomRepository, events domain.EventPublisher) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		events:   events,
	}
}

// CreateRoom builds and persists a room for the caller plus the candidate
// members. The room is a group iff the caller supplied more than one
// candidate; the caller is stripped from the candidates and re-appended
// last, as first admin for a group.
func (s *RoomService) CreateRoom(ctx context.Context, callerID string, in CreateRoomInput) (*domain.Room, error) {
	room := &domain.Room{
		Type:  domain.RoomTypePrivate,
		Chats: []domain.Chat{},
	}

	if len(in.Users) > 1 {
		room.Type = domain.RoomTypeGroup
		room.Owner = callerID
		room.Name = in.Name
		if room.Name == "" {
			room.Name = "No Name"
		}
		room.Description = in.Description
		if in.File != nil {
			room.Image = in.File.URL
			room.ImageID = in.File.FileID
		}
	}

	callerRole := domain.RoleMember
	if room.Type == domain.RoomTypeGroup {
		callerRole = domain.RoleAdmin
	}

	now := time.Now()
	for _, userID := range in.Users {
		if userID == callerID {
			continue
		}
		room.Users = append(room.Users, domain.RoomUser{
			UserID:  userID,
			Role:    domain.RoleMember,
			AddedAt: now,
		})
	}
	room.Users = append(room.Users, domain.RoomUser{
		UserID:  callerID,
		Role:    callerRole,
		AddedAt: now,
	})

	// A caller who only listed themselves ends up alone.
	if len(room.Users) < 2 {
		return nil, domain.ErrNoUsers
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	s.publish(ctx, "room.created", func() error {
		return s.events.PublishRoomCreated(ctx, room)
	})
	return room, nil
}

// DeleteUser removes a member from a group room on behalf of its owner.
func (s *RoomService) DeleteUser(ctx context.Context, callerID, roomID, userID string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := access.CanRemoveMember(room, callerID, userID); err != nil {
		return err
	}
	if err := s.roomRepo.PullUser(ctx, roomID, userID); err != nil {
		return err
	}

	s.publish(ctx, "member.removed", func() error {
		return s.events.PublishMemberRemoved(ctx, roomID, userID, callerID)
	})
	return nil
}

// LeaveRoom removes the caller from a group room. When the owner leaves,
// ownership passes to the last-listed remaining admin in the same update;
// without a successor the leave is rejected before any write.
func (s *RoomService) LeaveRoom(ctx context.Context, callerID, roomID string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	successor, err := access.Leave(room, callerID)
	if err != nil {
		return err
	}

	if successor != "" {
		err = s.roomRepo.PullUserSetOwner(ctx, roomID, callerID, successor)
	} else {
		err = s.roomRepo.PullUser(ctx, roomID, callerID)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, "member.left", func() error {
		return s.events.PublishMemberLeft(ctx, roomID, callerID)
	})
	return nil
}

// SetAdmin promotes a member to admin and returns the updated membership.
func (s *RoomService) SetAdmin(ctx context.Context, callerID, roomID, userID string) ([]domain.RoomUser, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	idx, err := access.CanPromote(room, callerID, userID)
	if err != nil {
		return nil, err
	}
	return s.roomRepo.SetUserRole(ctx, roomID, idx, domain.RoleAdmin)
}

// DownAdmin demotes an admin back to member and returns the updated membership.
func (s *RoomService) DownAdmin(ctx context.Context, callerID, roomID, userID string) ([]domain.RoomUser, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	idx, err := access.CanDemote(room, callerID, userID)
	if err != nil {
		return nil, err
	}
	return s.roomRepo.SetUserRole(ctx, roomID, idx, domain.RoleMember)
}

// GetByID returns the member-facing view of a room.
func (s *RoomService) GetByID(ctx context.Context, callerID, roomID string) (*RoomDetail, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := access.CanView(room, callerID); err != nil {
		return nil, err
	}

	detail := &RoomDetail{
		ID:          room.ID,
		Type:        room.Type,
		Owner:       room.Owner,
		Name:        room.Name,
		Description: room.Description,
		Image:       room.Image,
		ImageID:     room.ImageID,
		Users:       room.Users,
		Media:       []domain.ChatMedia{},
		CreatedAt:   room.CreatedAt,
	}
	for _, chat := range room.Chats {
		if chat.MediaType == "" || chat.Image == "" || chat.ImageID == "" {
			continue
		}
		if chat.Status == domain.ChatStatusDeleted {
			continue
		}
		detail.Media = append(detail.Media, domain.ChatMedia{
			Image:     chat.Image,
			ImageID:   chat.ImageID,
			MediaType: chat.MediaType,
			SenderID:  chat.SenderID,
		})
	}
	return detail, nil
}

// GetRoomByUserID resolves the caller's private room with another user.
func (s *RoomService) GetRoomByUserID(ctx context.Context, callerID, userID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindPrivateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !access.IsMember(room, callerID) {
		return nil, fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	return room, nil
}

// publish runs a best-effort event emission; a broker failure is logged and
// never fails the domain operation.
func (s *RoomService) publish(ctx context.Context, event string, fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("failed to publish event",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}
