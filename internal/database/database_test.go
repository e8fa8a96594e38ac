package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bridge.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())
	assert.True(t, db.DB.Migrator().HasTable(&entities.InvocationEvent{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.IngestRecord{}))
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bridge.db")

	first, err := NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.DB.Create(&entities.IngestRecord{Path: "a.epub", Status: entities.IngestStatusAdded}).Error)
	require.NoError(t, first.Close())

	second, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var count int64
	require.NoError(t, second.DB.Model(&entities.IngestRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
