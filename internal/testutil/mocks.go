// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the roomchat application.
package testutil

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"roomchat/internal/domain"
)

// MockRoomRepository implements domain.RoomRepository for testing
type MockRoomRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc            func(ctx context.Context, room *domain.Room) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Room, error)
	FindPrivateByUserFunc func(ctx context.Context, userID string) (*domain.Room, error)
	ListUserRoomsFunc     func(ctx context.Context, userID string, roomType domain.RoomType, offset, limit int) ([]*domain.RoomPreview, int, error)

	// In-memory storage for simple tests
	Rooms map[string]*domain.Room
}

// NewMockRoomRepository creates a new MockRoomRepository with initialized maps
func NewMockRoomRepository() *MockRoomRepository {
	return &MockRoomRepository{
		Rooms: make(map[string]*domain.Room),
	}
}

func (m *MockRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, room)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" {
		room.ID = fmt.Sprintf("room-%d", len(m.Rooms)+1)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	m.Rooms[room.ID] = room
	return nil
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if room, ok := m.Rooms[id]; ok {
		return room, nil
	}
	return nil, domain.ErrRoomNotFound
}

func (m *MockRoomRepository) FindPrivateByUser(ctx context.Context, userID string) (*domain.Room, error) {
	if m.FindPrivateByUserFunc != nil {
		return m.FindPrivateByUserFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, room := range m.Rooms {
		if room.Type != domain.RoomTypePrivate {
			continue
		}
		for _, u := range room.Users {
			if u.UserID == userID {
				return room, nil
			}
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (m *MockRoomRepository) PullUser(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	users := make([]domain.RoomUser, 0, len(room.Users))
	for _, u := range room.Users {
		if u.UserID != userID {
			users = append(users, u)
		}
	}
	room.Users = users
	return nil
}

func (m *MockRoomRepository) PullUserSetOwner(ctx context.Context, roomID, userID, newOwner string) error {
	if err := m.PullUser(ctx, roomID, userID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rooms[roomID].Owner = newOwner
	return nil
}

func (m *MockRoomRepository) SetUserRole(ctx context.Context, roomID string, idx int, role domain.RoomRole) ([]domain.RoomUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if idx < 0 || idx >= len(room.Users) {
		return nil, fmt.Errorf("index %d out of range", idx)
	}
	room.Users[idx].Role = role
	return room.Users, nil
}

func (m *MockRoomRepository) AppendChat(ctx context.Context, roomID string, chat *domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Chats = append(room.Chats, *chat)
	return nil
}

func (m *MockRoomRepository) SetChatMessage(ctx context.Context, roomID string, idx int, ciphertext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if idx < 0 || idx >= len(room.Chats) {
		return fmt.Errorf("index %d out of range", idx)
	}
	room.Chats[idx].Message = ciphertext
	room.Chats[idx].Status = domain.ChatStatusUpdated
	return nil
}

func (m *MockRoomRepository) SetChatStatus(ctx context.Context, roomID string, idx int, status domain.ChatStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if idx < 0 || idx >= len(room.Chats) {
		return fmt.Errorf("index %d out of range", idx)
	}
	room.Chats[idx].Status = status
	return nil
}

func (m *MockRoomRepository) MarkChatsRead(ctx context.Context, roomID string, indices []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.Rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for _, idx := range indices {
		if idx >= 0 && idx < len(room.Chats) {
			room.Chats[idx].IsRead = true
		}
	}
	return nil
}

func (m *MockRoomRepository) ListUserRooms(ctx context.Context, userID string, roomType domain.RoomType, offset, limit int) ([]*domain.RoomPreview, int, error) {
	if m.ListUserRoomsFunc != nil {
		return m.ListUserRoomsFunc(ctx, userID, roomType, offset, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*domain.RoomPreview, 0)
	for _, room := range m.Rooms {
		member := false
		for _, u := range room.Users {
			if u.UserID == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		if roomType != domain.RoomTypeAll && room.Type != roomType {
			continue
		}
		matched = append(matched, PreviewOf(room))
	}

	total := len(matched)
	if offset >= len(matched) {
		return []*domain.RoomPreview{}, 0, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// PreviewOf builds the bounded listing projection of a room the way the
// store query does: first 5 member IDs, first 15 chats.
func PreviewOf(room *domain.Room) *domain.RoomPreview {
	preview := &domain.RoomPreview{
		ID:    room.ID,
		Type:  room.Type,
		Name:  room.Name,
		Image: room.Image,
		Users: []string{},
	}
	for i, u := range room.Users {
		if i == 5 {
			break
		}
		preview.Users = append(preview.Users, u.UserID)
	}
	n := len(room.Chats)
	if n > 15 {
		n = 15
	}
	preview.Chats = append([]domain.Chat{}, room.Chats[:n]...)
	return preview
}

// MockCodec implements domain.MessageCodec with a reversible base64 scheme
// so tests can assert both ciphertext shape and round-trips without keys.
type MockCodec struct {
	EncryptFunc func(plaintext string) (string, error)
	DecryptFunc func(ciphertext string) (string, error)
}

func (m *MockCodec) Encrypt(plaintext string) (string, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(plaintext)
	}
	return "enc:" + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (m *MockCodec) Decrypt(ciphertext string) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext)
	}
	raw, ok := strings.CutPrefix(ciphertext, "enc:")
	if !ok {
		return "", fmt.Errorf("mock codec: not a mock ciphertext: %q", ciphertext)
	}
	plaintext, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// MockEventPublisher implements domain.EventPublisher and records every
// published event for assertions.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []string
	Err    error
}

func (m *MockEventPublisher) record(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockEventPublisher) PublishRoomCreated(ctx context.Context, room *domain.Room) error {
	return m.record("room.created:" + room.ID)
}

func (m *MockEventPublisher) PublishMemberRemoved(ctx context.Context, roomID, userID, removedBy string) error {
	return m.record("member.removed:" + roomID + ":" + userID)
}

func (m *MockEventPublisher) PublishMemberLeft(ctx context.Context, roomID, userID string) error {
	return m.record("member.left:" + roomID + ":" + userID)
}

func (m *MockEventPublisher) PublishChatCreated(ctx context.Context, roomID string, chat *domain.Chat) error {
	return m.record("chat.created:" + roomID)
}

func (m *MockEventPublisher) PublishChatDeleted(ctx context.Context, roomID, chatID string) error {
	return m.record("chat.deleted:" + roomID + ":" + chatID)
}

// MockListingCache is an in-memory listing cache for service tests.
type MockListingCache struct {
	mu      sync.Mutex
	Entries map[string][]byte
	Sets    int
	Hits    int
}

func NewMockListingCache() *MockListingCache {
	return &MockListingCache{Entries: make(map[string][]byte)}
}

func (m *MockListingCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw, ok := m.Entries[key]; ok {
		m.Hits++
		return raw, nil
	}
	return nil, nil
}

func (m *MockListingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[key] = value
	m.Sets++
	return nil
}
