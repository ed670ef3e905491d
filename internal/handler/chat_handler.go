package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/domain"
	"roomchat/internal/middleware"
	"roomchat/internal/service"
)

// ChatLedger is the slice of the chat service the chat handler needs.
type ChatLedger interface {
	CreateChat(ctx context.Context, callerID, roomID string, in service.CreateChatInput) (*domain.Chat, error)
	SetRead(ctx context.Context, callerID, roomID string, chatIDs []string) error
	EditMessage(ctx context.Context, callerID, roomID, chatID, message string) error
	DeleteMessage(ctx context.Context, callerID, roomID, chatID string) error
}

// ChatHandler exposes the chat ledger endpoints nested under a room.
type ChatHandler struct {
	chats ChatLedger
}

func NewChatHandler(chats ChatLedger) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type createChatRequest struct {
	Message string            `json:"message"`
	File    *domain.FileInput `json:"file,omitempty"`
}

// Create handles POST /rooms/{id}/chats.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Message == "" && req.File == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message or file is required"})
		return
	}

	chat, err := h.chats.CreateChat(r.Context(), identity.ID, chi.URLParam(r, "id"), service.CreateChatInput{
		Message: req.Message,
		File:    req.File,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

type setReadRequest struct {
	ChatIDs []string `json:"chatIds"`
}

// SetRead handles PATCH /rooms/{id}/chats/read. It marks the listed chats
// as read, skipping the caller's own messages and unknown IDs.
func (h *ChatHandler) SetRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req setReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.chats.SetRead(r.Context(), identity.ID, chi.URLParam(r, "id"), req.ChatIDs); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, "success")
}

type editChatRequest struct {
	Message string `json:"message"`
}

// Edit handles PATCH /rooms/{id}/chats/{chatId}.
func (h *ChatHandler) Edit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req editChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	err := h.chats.EditMessage(r.Context(), identity.ID, chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, "success")
}

// Delete handles DELETE /rooms/{id}/chats/{chatId}. The chat row is kept and
// flagged deleted rather than removed.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	err := h.chats.DeleteMessage(r.Context(), identity.ID, chi.URLParam(r, "id"), chi.URLParam(r, "chatId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, "success")
}
