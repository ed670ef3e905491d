package domain

import "time"

// ChatStatus is the message state machine: plain -> updated -> deleted.
// Deleted is terminal; chats are never removed from the ledger.
type ChatStatus string

const (
	ChatStatusPlain   ChatStatus = "plain"
	ChatStatusUpdated ChatStatus = "updated"
	ChatStatusDeleted ChatStatus = "deleted"
)

// Chat is one entry of a room's embedded ledger. Exactly one of Message or
// the Image/ImageID/MediaType triple is populated. Message holds ciphertext.
type Chat struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"senderId"`
	Message   string     `json:"message,omitempty"`
	Image     string     `json:"image,omitempty"`
	ImageID   string     `json:"imageId,omitempty"`
	MediaType string     `json:"mediaType,omitempty"`
	IsRead    bool       `json:"isRead"`
	Status    ChatStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ChatMedia is the media projection exposed when fetching a room by ID.
type ChatMedia struct {
	Image     string `json:"image"`
	ImageID   string `json:"imageId"`
	MediaType string `json:"mediaType"`
	SenderID  string `json:"senderId"`
}

// FileInput is an opaque reference to an already-uploaded blob. Storage of
// the blob itself is out of scope; the caller supplies the triple.
type FileInput struct {
	URL         string `json:"url"`
	FileID      string `json:"fileId"`
	ContentType string `json:"contentType"`
}
