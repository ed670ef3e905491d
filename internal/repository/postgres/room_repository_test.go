package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"roomchat/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomColumnNames = []string{
	"id", "type", "owner", "name", "description",
	"image", "image_id", "users", "chats", "created_at",
}

func roomRow(t *testing.T, room *domain.Room) *sqlmock.Rows {
	t.Helper()

	users, err := json.Marshal(room.Users)
	require.NoError(t, err)
	chats, err := json.Marshal(room.Chats)
	require.NoError(t, err)

	return sqlmock.NewRows(roomColumnNames).AddRow(
		room.ID, string(room.Type), room.Owner, room.Name, room.Description,
		room.Image, room.ImageID, users, chats, room.CreatedAt,
	)
}

func TestRoomRepository_Create(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		createdAt := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rooms")).
			WithArgs(
				"Group",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
				AddRow("room-123", createdAt))

		room := &domain.Room{
			Type:  domain.RoomTypeGroup,
			Owner: "user-1",
			Name:  "Project",
			Users: []domain.RoomUser{
				{UserID: "user-1", Role: domain.RoleAdmin},
				{UserID: "user-2", Role: domain.RoleMember},
			},
			Chats: []domain.Chat{},
		}

		err = repo.Create(context.Background(), room)
		require.NoError(t, err)
		assert.Equal(t, "room-123", room.ID)
		assert.Equal(t, createdAt, room.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert_fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rooms")).
			WillReturnError(errors.New("connection refused"))

		err = repo.Create(context.Background(), &domain.Room{Type: domain.RoomTypePrivate})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create room")
	})
}

func TestRoomRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		want := &domain.Room{
			ID:    "room-1",
			Type:  domain.RoomTypeGroup,
			Owner: "user-1",
			Name:  "Project",
			Users: []domain.RoomUser{{UserID: "user-1", Role: domain.RoleAdmin}},
			Chats: []domain.Chat{
				{ID: "chat-1", SenderID: "user-1", Message: "cipher", Status: domain.ChatStatusPlain},
			},
			CreatedAt: time.Now(),
		}

		mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1")).
			WithArgs("room-1").
			WillReturnRows(roomRow(t, want))

		got, err := repo.GetByID(context.Background(), "room-1")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Type, got.Type)
		assert.Len(t, got.Users, 1)
		assert.Len(t, got.Chats, 1)
		assert.Equal(t, "cipher", got.Chats[0].Message)
	})

	t.Run("not_found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(roomColumnNames))

		_, err = repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomRepository_FindPrivateByUser(t *testing.T) {
	t.Run("matches_member_containment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		want := &domain.Room{
			ID:   "room-p",
			Type: domain.RoomTypePrivate,
			Users: []domain.RoomUser{
				{UserID: "user-1", Role: domain.RoleMember},
				{UserID: "user-2", Role: domain.RoleMember},
			},
			Chats:     []domain.Chat{},
			CreatedAt: time.Now(),
		}

		filter, err := json.Marshal([]map[string]string{{"userId": "user-2"}})
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE type = 'Private' AND users @> $1")).
			WithArgs(filter).
			WillReturnRows(roomRow(t, want))

		got, err := repo.FindPrivateByUser(context.Background(), "user-2")
		require.NoError(t, err)
		assert.Equal(t, "room-p", got.ID)
	})

	t.Run("no_private_room", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE type = 'Private' AND users @> $1")).
			WillReturnRows(sqlmock.NewRows(roomColumnNames))

		_, err = repo.FindPrivateByUser(context.Background(), "loner")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomRepository_PullUser(t *testing.T) {
	t.Run("removes_member", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms")).
			WithArgs("room-1", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.PullUser(context.Background(), "room-1", "user-2")
		assert.NoError(t, err)
	})

	t.Run("unknown_room", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms")).
			WithArgs("missing", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.PullUser(context.Background(), "missing", "user-2")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomRepository_PullUserSetOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("owner = $3")).
		WithArgs("room-1", "old-owner", "new-owner").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.PullUserSetOwner(context.Background(), "room-1", "old-owner", "new-owner")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_SetUserRole(t *testing.T) {
	t.Run("returns_updated_roster", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		updated, err := json.Marshal([]domain.RoomUser{
			{UserID: "user-1", Role: domain.RoleAdmin},
			{UserID: "user-2", Role: domain.RoleAdmin},
		})
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta("jsonb_set(users, ARRAY[$2, 'role']")).
			WithArgs("room-1", "1", "Admin").
			WillReturnRows(sqlmock.NewRows([]string{"users"}).AddRow(updated))

		users, err := repo.SetUserRole(context.Background(), "room-1", 1, domain.RoleAdmin)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, domain.RoleAdmin, users[1].Role)
	})

	t.Run("unknown_room", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("jsonb_set(users, ARRAY[$2, 'role']")).
			WillReturnRows(sqlmock.NewRows([]string{"users"}))

		_, err = repo.SetUserRole(context.Background(), "missing", 0, domain.RoleMember)
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomRepository_AppendChat(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRoomRepository(db)

	chat := &domain.Chat{
		ID:       "chat-1",
		SenderID: "user-1",
		Message:  "ciphertext",
		Status:   domain.ChatStatusPlain,
	}
	body, err := json.Marshal(chat)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("SET chats = chats || $2::jsonb")).
		WithArgs("room-1", body).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.AppendChat(context.Background(), "room-1", chat)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_SetChatMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`ARRAY[$2, 'status'], '"updated"'`)).
		WithArgs("room-1", "3", "new-ciphertext").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetChatMessage(context.Background(), "room-1", 3, "new-ciphertext")
	assert.NoError(t, err)
}

func TestRoomRepository_SetChatStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("jsonb_set(chats, ARRAY[$2, 'status']")).
		WithArgs("room-1", "0", "deleted").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetChatStatus(context.Background(), "room-1", 0, domain.ChatStatusDeleted)
	assert.NoError(t, err)
}

func TestRoomRepository_MarkChatsRead(t *testing.T) {
	t.Run("no_indices_is_a_no_op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		// No query expected
		err = repo.MarkChatsRead(context.Background(), "room-1", nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates_listed_positions", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("WITH ORDINALITY")).
			WithArgs("room-1", pq.Array([]int64{0, 2})).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.MarkChatsRead(context.Background(), "room-1", []int{0, 2})
		assert.NoError(t, err)
	})
}

func TestRoomRepository_ListUserRooms(t *testing.T) {
	t.Run("returns_previews_and_total", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		filter, err := json.Marshal([]map[string]string{{"userId": "user-1"}})
		require.NoError(t, err)

		userIDs, err := json.Marshal([]string{"user-1", "user-2"})
		require.NoError(t, err)
		chats, err := json.Marshal([]domain.Chat{
			{ID: "chat-1", SenderID: "user-2", Message: "cipher", Status: domain.ChatStatusPlain},
		})
		require.NoError(t, err)

		rows := sqlmock.NewRows([]string{"id", "type", "name", "image", "users", "chats", "total"}).
			AddRow("room-1", "Group", "Project", "", userIDs, chats, 7).
			AddRow("room-2", "Private", "", "", userIDs, chats, 7)

		mock.ExpectQuery(regexp.QuoteMeta("count(*) OVER()")).
			WithArgs(filter, "All", 0, 20).
			WillReturnRows(rows)

		previews, total, err := repo.ListUserRooms(context.Background(), "user-1", domain.RoomTypeAll, 0, 20)
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		require.Len(t, previews, 2)
		assert.Equal(t, domain.RoomTypeGroup, previews[0].Type)
		assert.Equal(t, []string{"user-1", "user-2"}, previews[0].Users)
		require.Len(t, previews[0].Chats, 1)
		assert.Equal(t, "cipher", previews[0].Chats[0].Message)
	})

	t.Run("empty_page", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("count(*) OVER()")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "name", "image", "users", "chats", "total"}))

		previews, total, err := repo.ListUserRooms(context.Background(), "user-1", domain.RoomTypeGroup, 40, 20)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, previews)
	})

	t.Run("query_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRoomRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("count(*) OVER()")).
			WillReturnError(errors.New("connection reset"))

		_, _, err = repo.ListUserRooms(context.Background(), "user-1", domain.RoomTypeAll, 0, 20)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list rooms")
	})
}
