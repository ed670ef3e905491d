package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/domain"
	"roomchat/internal/middleware"
	"roomchat/internal/service"
)

// RoomDirectory is the slice of the room service the room handler needs.
type RoomDirectory interface {
	CreateRoom(ctx context.Context, callerID string, in service.CreateRoomInput) (*domain.Room, error)
	DeleteUser(ctx context.Context, callerID, roomID, userID string) error
	LeaveRoom(ctx context.Context, callerID, roomID string) error
	SetAdmin(ctx context.Context, callerID, roomID, userID string) ([]domain.RoomUser, error)
	DownAdmin(ctx context.Context, callerID, roomID, userID string) ([]domain.RoomUser, error)
	GetByID(ctx context.Context, callerID, roomID string) (*service.RoomDetail, error)
	GetRoomByUserID(ctx context.Context, callerID, userID string) (*domain.Room, error)
}

// RoomLister is the listing slice consumed by the room handler.
type RoomLister interface {
	GetUserRoom(ctx context.Context, callerID string, roomType domain.RoomType, page, limit int) (*service.RoomListing, error)
}

// RoomHandler handles room directory and listing endpoints
type RoomHandler struct {
	rooms   RoomDirectory
	listing RoomLister
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomDirectory, listing RoomLister) *RoomHandler {
	return &RoomHandler{
		rooms:   rooms,
		listing: listing,
	}
}

// CreateRoomRequest represents room creation request
type CreateRoomRequest struct {
	Users       []string          `json:"users"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	File        *domain.FileInput `json:"file"`
}

// Create creates a new room
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), identity.ID, service.CreateRoomInput{
		Users:       req.Users,
		Name:        req.Name,
		Description: req.Description,
		File:        req.File,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// List returns the caller's rooms grouped by type
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	roomType := domain.RoomType(r.URL.Query().Get("type"))
	if roomType == "" {
		roomType = domain.RoomTypeAll
	}

	listing, err := h.listing.GetUserRoom(r.Context(), identity.ID, roomType, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// Get returns one room with its media attachments
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	detail, err := h.rooms.GetByID(r.Context(), identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// GetPrivate resolves the caller's private room with another user
func (h *RoomHandler) GetPrivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	room, err := h.rooms.GetRoomByUserID(r.Context(), identity.ID, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// DeleteUser removes a member from a group room
func (h *RoomHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	err := h.rooms.DeleteUser(r.Context(), identity.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, "success")
}

// Leave removes the caller from a group room
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	if err := h.rooms.LeaveRoom(r.Context(), identity.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, "success")
}

// SetAdmin promotes a member to admin
func (h *RoomHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	users, err := h.rooms.SetAdmin(r.Context(), identity.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// DownAdmin demotes an admin back to member
func (h *RoomHandler) DownAdmin(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	users, err := h.rooms.DownAdmin(r.Context(), identity.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
