package testutil

import (
	"testing"

	"github.com/ayasaki/udpchat/config"
	dbadapter "github.com/ayasaki/udpchat/db"
	"github.com/ayasaki/udpchat/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory database and runs AutoMigrate. It
// requires no external services and each call returns an independent store.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}
