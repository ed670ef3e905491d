package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"roomchat/internal/domain"
	"roomchat/internal/observability"
)

// RoomRepository implements domain.RoomRepository for PostgreSQL. Each room
// is one row; membership and the chat ledger live in JSONB columns so that
// array elements can be updated in place by index, matching the embedded
// document shape the services expect.
type RoomRepository struct {
	db *sql.DB
}

// NewRoomRepository creates a new PostgreSQL room repository
func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// observe reports query latency under the given operation label.
func observe(operation string) func() {
	start := time.Now()
	return func() {
		observability.DBQueryDuration.
			WithLabelValues(operation, "rooms").
			Observe(time.Since(start).Seconds())
	}
}

const roomColumns = `
		id, type, COALESCE(owner, ''), COALESCE(name, ''), COALESCE(description, ''),
		COALESCE(image, ''), COALESCE(image_id, ''), users, chats, created_at
`

// Create inserts a new room row
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	defer observe("insert")()

	users, err := json.Marshal(room.Users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	chats, err := json.Marshal(room.Chats)
	if err != nil {
		return fmt.Errorf("failed to marshal chats: %w", err)
	}

	query := `
		INSERT INTO rooms (type, owner, name, description, image, image_id, users, chats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		room.Type,
		nullable(room.Owner),
		nullable(room.Name),
		nullable(room.Description),
		nullable(room.Image),
		nullable(room.ImageID),
		users,
		chats,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	defer observe("select")()

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, id))
}

// FindPrivateByUser retrieves the private room containing userID
func (r *RoomRepository) FindPrivateByUser(ctx context.Context, userID string) (*domain.Room, error) {
	defer observe("select")()

	match, err := memberFilter(userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE type = 'Private' AND users @> $1 LIMIT 1`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, match))
}

// PullUser removes one member by ID
func (r *RoomRepository) PullUser(ctx context.Context, roomID, userID string) error {
	query := `
		UPDATE rooms
		SET users = COALESCE(
			(SELECT jsonb_agg(u) FROM jsonb_array_elements(users) AS u WHERE u->>'userId' <> $2),
			'[]'::jsonb
		)
		WHERE id = $1
	`
	return r.execOnRoom(ctx, query, roomID, userID)
}

// PullUserSetOwner removes userID and hands ownership to newOwner in one
// atomic update, used for an owner leaving a group room.
func (r *RoomRepository) PullUserSetOwner(ctx context.Context, roomID, userID, newOwner string) error {
	query := `
		UPDATE rooms
		SET users = COALESCE(
			(SELECT jsonb_agg(u) FROM jsonb_array_elements(users) AS u WHERE u->>'userId' <> $2),
			'[]'::jsonb
		),
		owner = $3
		WHERE id = $1
	`
	return r.execOnRoom(ctx, query, roomID, userID, newOwner)
}

// SetUserRole updates the role of the member at idx. The index comes from a
// prior read; a concurrent membership change can make it stale.
func (r *RoomRepository) SetUserRole(ctx context.Context, roomID string, idx int, role domain.RoomRole) ([]domain.RoomUser, error) {
	defer observe("update")()

	query := `
		UPDATE rooms
		SET users = jsonb_set(users, ARRAY[$2, 'role'], to_jsonb($3::text))
		WHERE id = $1
		RETURNING users
	`
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, roomID, strconv.Itoa(idx), string(role)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set user role: %w", err)
	}

	var users []domain.RoomUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users: %w", err)
	}
	return users, nil
}

// AppendChat appends one chat to the room's ledger
func (r *RoomRepository) AppendChat(ctx context.Context, roomID string, chat *domain.Chat) error {
	body, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	query := `UPDATE rooms SET chats = chats || $2::jsonb WHERE id = $1`
	return r.execOnRoom(ctx, query, roomID, body)
}

// SetChatMessage replaces the ciphertext of the chat at idx and marks it updated
func (r *RoomRepository) SetChatMessage(ctx context.Context, roomID string, idx int, ciphertext string) error {
	query := `
		UPDATE rooms
		SET chats = jsonb_set(
			jsonb_set(chats, ARRAY[$2, 'message'], to_jsonb($3::text)),
			ARRAY[$2, 'status'], '"updated"'
		)
		WHERE id = $1
	`
	return r.execOnRoom(ctx, query, roomID, strconv.Itoa(idx), ciphertext)
}

// SetChatStatus flips the status of the chat at idx
func (r *RoomRepository) SetChatStatus(ctx context.Context, roomID string, idx int, status domain.ChatStatus) error {
	query := `
		UPDATE rooms
		SET chats = jsonb_set(chats, ARRAY[$2, 'status'], to_jsonb($3::text))
		WHERE id = $1
	`
	return r.execOnRoom(ctx, query, roomID, strconv.Itoa(idx), string(status))
}

// MarkChatsRead sets isRead on every chat whose zero-based position is in
// indices, in a single update.
func (r *RoomRepository) MarkChatsRead(ctx context.Context, roomID string, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	positions := make([]int64, len(indices))
	for i, idx := range indices {
		positions[i] = int64(idx)
	}

	query := `
		UPDATE rooms
		SET chats = COALESCE(
			(SELECT jsonb_agg(
				CASE WHEN (t.ord - 1) = ANY($2::bigint[])
					THEN t.chat || '{"isRead": true}'::jsonb
					ELSE t.chat
				END
				ORDER BY t.ord)
			FROM jsonb_array_elements(chats) WITH ORDINALITY AS t(chat, ord)),
			'[]'::jsonb
		)
		WHERE id = $1
	`
	return r.execOnRoom(ctx, query, roomID, pq.Array(positions))
}

// ListUserRooms returns one page of bounded room previews for rooms where
// userID is a member, plus the pre-pagination total. Previews carry at most
// the first 5 member IDs and the first 15 chats.
func (r *RoomRepository) ListUserRooms(ctx context.Context, userID string, roomType domain.RoomType, offset, limit int) ([]*domain.RoomPreview, int, error) {
	defer observe("select")()

	match, err := memberFilter(userID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			id, type, COALESCE(name, ''), COALESCE(image, ''),
			jsonb_path_query_array(users, '$[0 to 4].userId'),
			jsonb_path_query_array(chats, '$[0 to 14]'),
			count(*) OVER()
		FROM rooms
		WHERE users @> $1 AND ($2 = 'All' OR type = $2)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, match, string(roomType), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	previews := make([]*domain.RoomPreview, 0)
	total := 0
	for rows.Next() {
		preview := &domain.RoomPreview{}
		var userIDs, chats []byte
		if err := rows.Scan(
			&preview.ID,
			&preview.Type,
			&preview.Name,
			&preview.Image,
			&userIDs,
			&chats,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan room preview: %w", err)
		}
		if err := json.Unmarshal(userIDs, &preview.Users); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal member ids: %w", err)
		}
		if err := json.Unmarshal(chats, &preview.Chats); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal chats: %w", err)
		}
		previews = append(previews, preview)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return previews, total, nil
}

// execOnRoom runs a single-row update and maps a zero row count to
// domain.ErrRoomNotFound.
func (r *RoomRepository) execOnRoom(ctx context.Context, query, roomID string, args ...interface{}) error {
	defer observe("update")()

	res, err := r.db.ExecContext(ctx, query, append([]interface{}{roomID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) scanRoom(row *sql.Row) (*domain.Room, error) {
	room := &domain.Room{}
	var users, chats []byte
	err := row.Scan(
		&room.ID,
		&room.Type,
		&room.Owner,
		&room.Name,
		&room.Description,
		&room.Image,
		&room.ImageID,
		&users,
		&chats,
		&room.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if err := json.Unmarshal(users, &room.Users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users: %w", err)
	}
	if err := json.Unmarshal(chats, &room.Chats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chats: %w", err)
	}
	return room, nil
}

// memberFilter builds the containment document matching rooms that have
// userID among their members.
func memberFilter(userID string) ([]byte, error) {
	match, err := json.Marshal([]map[string]string{{"userId": userID}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal member filter: %w", err)
	}
	return match, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
