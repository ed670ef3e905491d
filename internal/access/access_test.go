package access

import (
	"errors"
	"testing"
	"time"

	"roomchat/internal/domain"
)

func groupRoom(owner string, users ...domain.RoomUser) *domain.Room {
	return &domain.Room{
		ID:    "room-1",
		Type:  domain.RoomTypeGroup,
		Owner: owner,
		Users: users,
	}
}

func member(id string, role domain.RoomRole) domain.RoomUser {
	return domain.RoomUser{UserID: id, Role: role, AddedAt: time.Now()}
}

func TestCanView(t *testing.T) {
	room := groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember))

	if err := CanView(room, "u2"); err != nil {
		t.Fatalf("member should view, got %v", err)
	}
	if err := CanView(room, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCanRemoveMember(t *testing.T) {
	tests := []struct {
		name     string
		room     *domain.Room
		caller   string
		target   string
		wantErr  error
	}{
		{
			name:    "owner removes member",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember), member("u3", domain.RoleMember)),
			caller:  "u1",
			target:  "u2",
			wantErr: nil,
		},
		{
			name:    "owner removes admin",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleAdmin), member("u3", domain.RoleMember)),
			caller:  "u1",
			target:  "u2",
			wantErr: nil,
		},
		{
			name:    "self removal",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember)),
			caller:  "u1",
			target:  "u1",
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "admin but not owner",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleAdmin), member("u3", domain.RoleMember)),
			caller:  "u2",
			target:  "u3",
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "plain member",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember), member("u3", domain.RoleMember)),
			caller:  "u2",
			target:  "u3",
			wantErr: domain.ErrForbidden,
		},
		{
			name: "private room",
			room: &domain.Room{
				ID:    "room-p",
				Type:  domain.RoomTypePrivate,
				Users: []domain.RoomUser{member("u1", domain.RoleMember), member("u2", domain.RoleMember)},
			},
			caller:  "u1",
			target:  "u2",
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "target not a member",
			room:    groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember)),
			caller:  "u1",
			target:  "ghost",
			wantErr: domain.ErrMemberNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanRemoveMember(tt.room, tt.caller, tt.target)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLeave(t *testing.T) {
	t.Run("private room denied", func(t *testing.T) {
		room := &domain.Room{
			Type:  domain.RoomTypePrivate,
			Users: []domain.RoomUser{member("u1", domain.RoleMember), member("u2", domain.RoleMember)},
		}
		if _, err := Leave(room, "u1"); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("plain member leaves without handoff", func(t *testing.T) {
		room := groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember))
		successor, err := Leave(room, "u2")
		if err != nil {
			t.Fatalf("expected allow, got %v", err)
		}
		if successor != "" {
			t.Fatalf("expected no successor, got %q", successor)
		}
	})

	t.Run("owner hands off to last-listed admin", func(t *testing.T) {
		room := groupRoom("u1",
			member("u1", domain.RoleAdmin),
			member("u2", domain.RoleAdmin),
			member("u3", domain.RoleAdmin),
			member("u4", domain.RoleMember),
		)
		successor, err := Leave(room, "u1")
		if err != nil {
			t.Fatalf("expected allow, got %v", err)
		}
		if successor != "u3" {
			t.Fatalf("expected u3 (scanning from the end), got %q", successor)
		}
	})

	t.Run("owner with no other admin rejected", func(t *testing.T) {
		room := groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember))
		if _, err := Leave(room, "u1"); !errors.Is(err, domain.ErrNoSuccessorAdmin) {
			t.Fatalf("expected ErrNoSuccessorAdmin, got %v", err)
		}
	})
}

func TestCanPromote(t *testing.T) {
	room := groupRoom("u1",
		member("u1", domain.RoleAdmin),
		member("u2", domain.RoleMember),
		member("u3", domain.RoleAdmin),
	)

	idx, err := CanPromote(room, "u1", "u2")
	if err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}

	if _, err := CanPromote(room, "u1", "u3"); !errors.Is(err, domain.ErrAlreadyAdmin) {
		t.Fatalf("expected ErrAlreadyAdmin, got %v", err)
	}
	if _, err := CanPromote(room, "u3", "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-owner admin promote: expected ErrForbidden, got %v", err)
	}
	if _, err := CanPromote(room, "u1", "ghost"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	private := &domain.Room{
		Type:  domain.RoomTypePrivate,
		Users: []domain.RoomUser{member("u1", domain.RoleMember), member("u2", domain.RoleMember)},
	}
	if _, err := CanPromote(private, "u1", "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("private promote: expected ErrForbidden, got %v", err)
	}
}

func TestCanDemote(t *testing.T) {
	room := groupRoom("u1",
		member("u1", domain.RoleAdmin),
		member("u2", domain.RoleAdmin),
		member("u3", domain.RoleMember),
	)

	idx, err := CanDemote(room, "u1", "u2")
	if err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}

	if _, err := CanDemote(room, "u1", "u1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self demote: expected ErrForbidden, got %v", err)
	}
	if _, err := CanDemote(room, "u2", "u1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-owner demote: expected ErrForbidden, got %v", err)
	}
	if _, err := CanDemote(room, "u1", "ghost"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestCanEditChat(t *testing.T) {
	room := groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember))
	room.Chats = []domain.Chat{
		{ID: "c1", SenderID: "u2", Status: domain.ChatStatusPlain},
		{ID: "c2", SenderID: "u2", Status: domain.ChatStatusDeleted},
	}

	idx, err := CanEditChat(room, "u2", "c1")
	if err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}

	if _, err := CanEditChat(room, "u1", "c1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-sender edit: expected ErrForbidden, got %v", err)
	}
	if _, err := CanEditChat(room, "u2", "missing"); !errors.Is(err, domain.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}

	// Deleted chats are still editable; only delete guards on status.
	if _, err := CanEditChat(room, "u2", "c2"); err != nil {
		t.Fatalf("edit of deleted chat should be allowed, got %v", err)
	}
}

func TestCanDeleteChat(t *testing.T) {
	room := groupRoom("u1", member("u1", domain.RoleAdmin), member("u2", domain.RoleMember))
	room.Chats = []domain.Chat{
		{ID: "c1", SenderID: "u2", Status: domain.ChatStatusUpdated},
		{ID: "c2", SenderID: "u2", Status: domain.ChatStatusDeleted},
	}

	idx, err := CanDeleteChat(room, "u2", "c1")
	if err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}

	if _, err := CanDeleteChat(room, "u1", "c1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-sender delete: expected ErrForbidden, got %v", err)
	}
	if _, err := CanDeleteChat(room, "u2", "c2"); !errors.Is(err, domain.ErrChatDeleted) {
		t.Fatalf("second delete: expected ErrChatDeleted, got %v", err)
	}
}
