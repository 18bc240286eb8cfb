//go:build integration

// Package integration runs the repositories and services against a real
// PostgreSQL started with testcontainers. Run with -tags integration.
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/infrastructure/logger"
	"github.com/dealerops/backend/internal/infrastructure/migration"
	"github.com/dealerops/backend/internal/infrastructure/persistence"
	"github.com/dealerops/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL database in a throwaway container
type TestDB struct {
	DB        *gorm.DB
	Container testcontainers.Container
	DSN       string
}

// NewTestDB starts a container, applies the embedded migrations and
// registers cleanup on t
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dealerops_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.NewGormLogger(zap.NewNop(), level, 0),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "Failed to apply migrations")

	return &TestDB{DB: db, Container: container, DSN: dsn}
}

// Database wraps the connection the way the server holds it
func (tdb *TestDB) Database() *persistence.Database {
	return &persistence.Database{DB: tdb.DB}
}
