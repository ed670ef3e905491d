package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"roomchat/internal/domain"
	"roomchat/internal/observability"
)

const (
	defaultPage      = 1
	defaultPageLimit = 20
	listingCacheTTL  = 30 * time.Second
)

// ListingCache is an optional read-through cache for listing pages. A nil
// cache disables caching; failures degrade to a direct query.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RoomBucket is one type group of a listing page. Total is the shared
// pre-pagination count of rooms matching the filter.
type RoomBucket struct {
	Type  domain.RoomType       `json:"type"`
	Rooms []*domain.RoomPreview `json:"rooms"`
	Total int                   `json:"total"`
}

// RoomListing is a paginated, type-grouped room listing page.
type RoomListing struct {
	TotalData int        `json:"totalData"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	TotalPage int        `json:"totalPage"`
	Group     RoomBucket `json:"group"`
	Private   RoomBucket `json:"private"`
}

// ListingService implements the paginated, type-grouped room listing.
// Access control is folded into the store query itself: only rooms where
// the caller is a member can match.
type ListingService struct {
	roomRepo domain.RoomRepository
	codec    domain.MessageCodec
	cache    ListingCache
}

func NewListingService(roomRepo domain.RoomRepository, codec domain.MessageCodec, cache ListingCache) *ListingService {
	return &ListingService{
		roomRepo: roomRepo,
		codec:    codec,
		cache:    cache,
	}
}

// GetUserRoom returns one page of the caller's rooms, grouped by type, with
// previews bounded to the first 5 member IDs and 15 chats per room. Chat
// text is decrypted and soft-deleted chats are dropped per bucket. A page
// with no matching rooms is reported as not found.
func (s *ListingService) GetUserRoom(ctx context.Context, callerID string, roomType domain.RoomType, page, limit int) (*RoomListing, error) {
	if page <= 0 {
		page = defaultPage
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if roomType != domain.RoomTypePrivate && roomType != domain.RoomTypeGroup {
		roomType = domain.RoomTypeAll
	}

	cacheKey := fmt.Sprintf("rooms:%s:%s:%d:%d", callerID, roomType, page, limit)
	if listing, ok := s.fromCache(ctx, cacheKey); ok {
		return listing, nil
	}
	observability.ListingCacheMissesTotal.Inc()

	previews, total, err := s.roomRepo.ListUserRooms(ctx, callerID, roomType, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, domain.ErrRoomNotFound
	}

	listing := &RoomListing{
		TotalData: total,
		Page:      page,
		Limit:     limit,
		TotalPage: (total + limit - 1) / limit,
		Group:     RoomBucket{Type: domain.RoomTypeGroup, Rooms: []*domain.RoomPreview{}, Total: total},
		Private:   RoomBucket{Type: domain.RoomTypePrivate, Rooms: []*domain.RoomPreview{}, Total: total},
	}

	for _, preview := range previews {
		if err := s.decryptPreview(preview); err != nil {
			return nil, err
		}
		switch preview.Type {
		case domain.RoomTypeGroup:
			listing.Group.Rooms = append(listing.Group.Rooms, preview)
		case domain.RoomTypePrivate:
			listing.Private.Rooms = append(listing.Private.Rooms, preview)
		}
	}

	s.toCache(ctx, cacheKey, listing)
	return listing, nil
}

// decryptPreview decrypts the preview's chat text in place and drops
// soft-deleted chats.
func (s *ListingService) decryptPreview(preview *domain.RoomPreview) error {
	visible := make([]domain.Chat, 0, len(preview.Chats))
	for _, chat := range preview.Chats {
		if chat.Status == domain.ChatStatusDeleted {
			continue
		}
		if chat.Message != "" {
			plaintext, err := s.codec.Decrypt(chat.Message)
			if err != nil {
				return fmt.Errorf("failed to decrypt chat %s: %w", chat.ID, err)
			}
			chat.Message = plaintext
		}
		visible = append(visible, chat)
	}
	preview.Chats = visible
	return nil
}

func (s *ListingService) fromCache(ctx context.Context, key string) (*RoomListing, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, false
	}
	listing := &RoomListing{}
	if err := json.Unmarshal(raw, listing); err != nil {
		return nil, false
	}
	observability.ListingCacheHitsTotal.Inc()
	return listing, true
}

func (s *ListingService) toCache(ctx context.Context, key string, listing *RoomListing) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(listing)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, listingCacheTTL); err != nil {
		slog.Debug("listing cache write failed", slog.String("error", err.Error()))
	}
}
