package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.InvocationEvent{})
	require.NoError(t, err)

	return db
}

func newEvent(id, command string, status entities.AuditStatus, createdAt time.Time) *entities.InvocationEvent {
	return &entities.InvocationEvent{
		InvocationID: id,
		Command:      command,
		Args:         `["` + command + `"]`,
		Status:       status,
		CreatedAt:    createdAt,
	}
}

func TestRepository_LogEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	event := &entities.InvocationEvent{
		InvocationID: "0b8e2f4c-1111-2222-3333-444455556666",
		Command:      "list",
		Args:         `["list","--for-machine"]`,
		Status:       entities.AuditStatusSuccess,
		DurationMs:   42,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	for i := 0; i < 15; i++ {
		id := "list-" + string(rune('a'+i))
		require.NoError(t, repo.LogEvent(newEvent(id, "list", entities.AuditStatusSuccess, now.Add(time.Duration(-i)*time.Hour))))
	}
	for i := 0; i < 5; i++ {
		id := "add-" + string(rune('a'+i))
		require.NoError(t, repo.LogEvent(newEvent(id, "add", entities.AuditStatusFailed, now)))
	}

	t.Run("get all events", func(t *testing.T) {
		events, total, err := repo.GetEvents(EventFilter{}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
		assert.Len(t, events, 20)
	})

	t.Run("filter by command", func(t *testing.T) {
		events, total, err := repo.GetEvents(EventFilter{Command: "add"}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, e := range events {
			assert.Equal(t, "add", e.Command)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		_, total, err := repo.GetEvents(EventFilter{Status: entities.AuditStatusSuccess}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.GetEvents(EventFilter{Command: "list"}, 10, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 5)
	})

	t.Run("most recent first", func(t *testing.T) {
		events, _, err := repo.GetEvents(EventFilter{Command: "list"}, 2, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))
	})

	t.Run("default limit", func(t *testing.T) {
		events, _, err := repo.GetEvents(EventFilter{}, 0, -1)
		require.NoError(t, err)
		assert.Len(t, events, 20)
	})
}

func TestRepository_GetEventByInvocationID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.LogEvent(newEvent("abc", "remove", entities.AuditStatusSuccess, time.Now())))

	event, err := repo.GetEventByInvocationID("abc")
	require.NoError(t, err)
	assert.Equal(t, "remove", event.Command)

	_, err = repo.GetEventByInvocationID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	require.NoError(t, repo.LogEvent(newEvent("old-1", "list", entities.AuditStatusSuccess, now.Add(-48*time.Hour))))
	require.NoError(t, repo.LogEvent(newEvent("old-2", "add", entities.AuditStatusFailed, now.Add(-72*time.Hour))))
	require.NoError(t, repo.LogEvent(newEvent("new-1", "list", entities.AuditStatusSuccess, now)))

	deleted, err := repo.DeleteOldEvents(now.Add(-24*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, total, err := repo.GetEvents(EventFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRepository_DeleteOldEventsByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	require.NoError(t, repo.LogEvent(newEvent("ok-old", "list", entities.AuditStatusSuccess, now.Add(-48*time.Hour))))
	require.NoError(t, repo.LogEvent(newEvent("failed-old", "add", entities.AuditStatusFailed, now.Add(-48*time.Hour))))

	deleted, err := repo.DeleteOldEvents(now.Add(-24*time.Hour), entities.AuditStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, _, err := repo.GetEvents(EventFilter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "failed-old", events[0].InvocationID)
}
