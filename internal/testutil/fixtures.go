package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"roomchat/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NewGroupRoom creates a group room fixture. The first member is the owner
// with the Admin role; the rest join as plain members.
func NewGroupRoom(ownerID string, memberIDs ...string) *domain.Room {
	now := time.Now()
	room := &domain.Room{
		ID:        nextID("room"),
		Type:      domain.RoomTypeGroup,
		Owner:     ownerID,
		Name:      "No Name",
		Chats:     []domain.Chat{},
		CreatedAt: now,
		Users: []domain.RoomUser{
			{UserID: ownerID, Role: domain.RoleAdmin, AddedAt: now},
		},
	}
	for _, id := range memberIDs {
		room.Users = append(room.Users, domain.RoomUser{
			UserID:  id,
			Role:    domain.RoleMember,
			AddedAt: now,
		})
	}
	return room
}

// NewPrivateRoom creates a 1:1 room fixture with both participants as members.
func NewPrivateRoom(userA, userB string) *domain.Room {
	now := time.Now()
	return &domain.Room{
		ID:        nextID("room"),
		Type:      domain.RoomTypePrivate,
		Chats:     []domain.Chat{},
		CreatedAt: now,
		Users: []domain.RoomUser{
			{UserID: userA, Role: domain.RoleMember, AddedAt: now},
			{UserID: userB, Role: domain.RoleMember, AddedAt: now},
		},
	}
}

// NewTextChat creates a text chat fixture carrying mock-codec ciphertext.
func NewTextChat(senderID, plaintext string) domain.Chat {
	codec := &MockCodec{}
	ciphertext, _ := codec.Encrypt(plaintext)
	now := time.Now()
	return domain.Chat{
		ID:        nextID("chat"),
		SenderID:  senderID,
		Message:   ciphertext,
		Status:    domain.ChatStatusPlain,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMediaChat creates a media chat fixture.
func NewMediaChat(senderID, mediaType string) domain.Chat {
	now := time.Now()
	id := nextID("chat")
	return domain.Chat{
		ID:        id,
		SenderID:  senderID,
		Image:     "https://cdn.example.com/" + id,
		ImageID:   "file-" + id,
		MediaType: mediaType,
		Status:    domain.ChatStatusPlain,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
