// Package dbtest opens migrated in-memory sqlite databases for package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
)

// Open returns a client over a fresh database holding every model table.
// Statements issued outside an open transaction's handle fail with a table
// lock error instead of silently reading around it.
func Open(t *testing.T) *db.Client {
	t.Helper()
	return open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=0", uuid.NewString()))
}

// OpenFile returns a client over a file database for tests that race
// goroutines against each other. Transactions begin IMMEDIATE so concurrent
// writers queue on the busy timeout the way row locks queue on postgres.
func OpenFile(t *testing.T) *db.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fastbag.db")
	return open(t, fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_foreign_keys=0", path))
}

func open(t *testing.T, dsn string) *db.Client {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	require.NoError(t, conn.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_order_assignments_accepted ON order_assignments (order_id) WHERE is_accepted",
	).Error)

	return db.FromConn(conn)
}
