package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("user is not a member of this room")
	ErrChatNotFound   = errors.New("chat not found")

	// ErrForbidden covers every access-control denial. Callers wrap it with
	// the failing rule so logs stay useful while handlers can still match it.
	ErrForbidden = errors.New("forbidden")

	ErrAlreadyAdmin = errors.New("user is already an admin")
	ErrChatDeleted  = errors.New("chat already deleted")

	// Domain preconditions that abort the operation before any write.
	ErrNoSuccessorAdmin = errors.New("please set a admin first")
	ErrNoUsers          = errors.New("there is no user")
)

// RoomType discriminates 1:1 rooms from group rooms. Immutable after creation.
type RoomType string

const (
	RoomTypePrivate RoomType = "Private"
	RoomTypeGroup   RoomType = "Group"

	// RoomTypeAll is a listing filter value, never persisted.
	RoomTypeAll RoomType = "All"
)

// RoomRole is the membership role inside a room.
type RoomRole string

const (
	RoleAdmin  RoomRole = "Admin"
	RoleMember RoomRole = "Member"
)

// RoomUser is one membership entry. Position within Room.Users is the
// addressing key for role updates.
type RoomUser struct {
	UserID  string    `json:"userId"`
	Role    RoomRole  `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

// Room is the aggregate document: membership plus the embedded chat ledger.
// Owner, Name, Description and Image* are only populated for group rooms.
type Room struct {
	ID          string     `json:"id"`
	Type        RoomType   `json:"type"`
	Owner       string     `json:"owner,omitempty"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image,omitempty"`
	ImageID     string     `json:"imageId,omitempty"`
	Users       []RoomUser `json:"users"`
	Chats       []Chat     `json:"chats"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// RoomPreview is the bounded projection returned by the listing query:
// at most the first 5 member IDs and the first 15 chats of a room.
type RoomPreview struct {
	ID    string   `json:"id"`
	Type  RoomType `json:"type"`
	Name  string   `json:"name,omitempty"`
	Image string   `json:"image,omitempty"`
	Users []string `json:"users"`
	Chats []Chat   `json:"chats"`
}

// RoomRepository defines the persistence contract for rooms. Array-element
// updates are addressed by the index resolved from a prior read; there is no
// optimistic token tying the read to the write.
type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	// FindPrivateByUser returns the private room that has userID among its
	// two participants.
	FindPrivateByUser(ctx context.Context, userID string) (*Room, error)
	PullUser(ctx context.Context, roomID, userID string) error
	// PullUserSetOwner removes userID and reassigns ownership in one update.
	PullUserSetOwner(ctx context.Context, roomID, userID, newOwner string) error
	// SetUserRole flips the role of the member at idx and returns the
	// updated membership list.
	SetUserRole(ctx context.Context, roomID string, idx int, role RoomRole) ([]RoomUser, error)
	AppendChat(ctx context.Context, roomID string, chat *Chat) error
	SetChatMessage(ctx context.Context, roomID string, idx int, ciphertext string) error
	SetChatStatus(ctx context.Context, roomID string, idx int, status ChatStatus) error
	MarkChatsRead(ctx context.Context, roomID string, indices []int) error
	// ListUserRooms returns one page of bounded previews for rooms where
	// userID is a member, plus the pre-pagination total. roomType narrows
	// the filter unless it is RoomTypeAll.
	ListUserRooms(ctx context.Context, userID string, roomType RoomType, offset, limit int) ([]*RoomPreview, int, error)
}
