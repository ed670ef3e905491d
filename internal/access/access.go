// Package access holds the pure access-control rules for room and chat
// operations. Every function takes an already-loaded room plus the caller
// and returns either nil or a wrapped domain sentinel; nothing here touches
// storage.
package access

import (
	"fmt"

	"roomchat/internal/domain"
)

// MemberIndex returns the position of userID within room.Users, or -1.
func MemberIndex(room *domain.Room, userID string) int {
	for i, u := range room.Users {
		if u.UserID == userID {
			return i
		}
	}
	return -1
}

// Member returns the membership entry for userID.
func Member(room *domain.Room, userID string) (domain.RoomUser, bool) {
	if i := MemberIndex(room, userID); i >= 0 {
		return room.Users[i], true
	}
	return domain.RoomUser{}, false
}

// IsMember reports whether userID belongs to the room.
func IsMember(room *domain.Room, userID string) bool {
	return MemberIndex(room, userID) >= 0
}

// ChatIndex returns the position of chatID within room.Chats, or -1.
func ChatIndex(room *domain.Room, chatID string) int {
	for i, c := range room.Chats {
		if c.ID == chatID {
			return i
		}
	}
	return -1
}

// CanView allows any member to read the room.
func CanView(room *domain.Room, callerID string) error {
	if !IsMember(room, callerID) {
		return fmt.Errorf("caller is not a member: %w", domain.ErrForbidden)
	}
	return nil
}

// CanPost allows any member to append chats or flip read receipts.
func CanPost(room *domain.Room, callerID string) error {
	return CanView(room, callerID)
}

// CanRemoveMember decides whether callerID may remove targetID from a group
// room. The caller must hold the Admin role and be the room owner.
func CanRemoveMember(room *domain.Room, callerID, targetID string) error {
	if callerID == targetID {
		return fmt.Errorf("cannot self delete: %w", domain.ErrForbidden)
	}
	caller, ok := Member(room, callerID)
	if !ok || caller.Role != domain.RoleAdmin || room.Owner != callerID || room.Type == domain.RoomTypePrivate {
		return fmt.Errorf("only the group owner may remove members: %w", domain.ErrForbidden)
	}
	target, ok := Member(room, targetID)
	if !ok {
		return domain.ErrMemberNotFound
	}
	if target.Role == domain.RoleAdmin && room.Owner != callerID {
		return fmt.Errorf("cannot remove an admin: %w", domain.ErrForbidden)
	}
	return nil
}

// Leave decides whether callerID may leave the room. For an owner leave it
// returns the successor owner: the last-listed admin other than the leaver.
// A non-owner leave returns an empty successor.
func Leave(room *domain.Room, callerID string) (successor string, err error) {
	if room.Type == domain.RoomTypePrivate {
		return "", fmt.Errorf("cannot leave a private room: %w", domain.ErrForbidden)
	}
	if room.Owner != callerID {
		return "", nil
	}
	for i := len(room.Users) - 1; i >= 0; i-- {
		if room.Users[i].Role == domain.RoleAdmin && room.Users[i].UserID != callerID {
			return room.Users[i].UserID, nil
		}
	}
	return "", domain.ErrNoSuccessorAdmin
}

// CanPromote decides whether callerID may grant targetID the Admin role and
// resolves the target's current index for the update.
func CanPromote(room *domain.Room, callerID, targetID string) (int, error) {
	if room.Type == domain.RoomTypePrivate {
		return -1, fmt.Errorf("cannot set admin in a private room: %w", domain.ErrForbidden)
	}
	caller, ok := Member(room, callerID)
	if !ok || caller.Role != domain.RoleAdmin || room.Owner != callerID {
		return -1, fmt.Errorf("only the group owner may promote: %w", domain.ErrForbidden)
	}
	idx := MemberIndex(room, targetID)
	if idx < 0 {
		return -1, domain.ErrMemberNotFound
	}
	if room.Users[idx].Role == domain.RoleAdmin {
		return -1, domain.ErrAlreadyAdmin
	}
	return idx, nil
}

// CanDemote decides whether callerID may strip targetID back to Member.
// Owners cannot demote themselves.
func CanDemote(room *domain.Room, callerID, targetID string) (int, error) {
	if room.Type == domain.RoomTypePrivate {
		return -1, fmt.Errorf("cannot set admin in a private room: %w", domain.ErrForbidden)
	}
	if room.Owner != callerID || callerID == targetID {
		return -1, fmt.Errorf("only the group owner may demote others: %w", domain.ErrForbidden)
	}
	idx := MemberIndex(room, targetID)
	if idx < 0 {
		return -1, domain.ErrMemberNotFound
	}
	return idx, nil
}

// CanEditChat allows only the original sender to edit a chat and resolves
// its index. Edit intentionally does not guard on status: an already-deleted
// chat may still be edited, matching the delete-only guard below.
func CanEditChat(room *domain.Room, callerID, chatID string) (int, error) {
	idx := ChatIndex(room, chatID)
	if idx < 0 {
		return -1, domain.ErrChatNotFound
	}
	if room.Chats[idx].SenderID != callerID {
		return -1, fmt.Errorf("only the sender may edit a chat: %w", domain.ErrForbidden)
	}
	return idx, nil
}

// CanDeleteChat allows only the original sender to soft-delete a chat, once.
func CanDeleteChat(room *domain.Room, callerID, chatID string) (int, error) {
	idx := ChatIndex(room, chatID)
	if idx < 0 {
		return -1, domain.ErrChatNotFound
	}
	if room.Chats[idx].SenderID != callerID {
		return -1, fmt.Errorf("only the sender may delete a chat: %w", domain.ErrForbidden)
	}
	if room.Chats[idx].Status == domain.ChatStatusDeleted {
		return -1, domain.ErrChatDeleted
	}
	return idx, nil
}
