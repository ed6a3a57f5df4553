package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/websync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newDryRunPostgres returns a postgres-dialect DB that builds statements
// without executing them, plus a pointer to the last INSERT it built.
func newDryRunPostgres(t *testing.T) (*gorm.DB, *string) {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	var captured string
	err = db.Callback().Create().After("gorm:create").Register("test:capture_sql", func(tx *gorm.DB) {
		captured = tx.Statement.SQL.String()
	})
	require.NoError(t, err)
	return db, &captured
}

func TestGormWebProductRepository_UpsertSQL(t *testing.T) {
	db, sql := newDryRunPostgres(t)
	repo := NewGormWebProductRepository(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := newTestWebProduct("MUG-1", 7, "north", now)
	p.LinkedSku = integration.IDRef[integration.Sku]("SKU-INTERNAL")
	require.NoError(t, repo.Upsert(context.Background(), p))

	assert.Contains(t, *sql, `INSERT INTO "web_products"`)
	assert.Contains(t, *sql, `ON CONFLICT ("id") DO UPDATE SET`)
	assert.Contains(t, *sql, `"name"="excluded"."name"`)
	assert.Contains(t, *sql, `"variations"="excluded"."variations"`)
	assert.NotContains(t, *sql, `"linked_sku_id"="excluded"."linked_sku_id"`)
	assert.NotContains(t, *sql, `"total_web_orders"="excluded"."total_web_orders"`)
	assert.NotContains(t, *sql, `"created_at"="excluded"."created_at"`)
}

func TestGormSkuRepository_UpsertMirrorSQL(t *testing.T) {
	db, sql := newDryRunPostgres(t)
	repo := NewGormSkuRepository(db)

	require.NoError(t, repo.UpsertMirror(context.Background(), &integration.Sku{
		ID:           "MUG-1",
		Name:         "Blue Mug",
		IsWebProduct: true,
	}))

	assert.Contains(t, *sql, `INSERT INTO "skus"`)
	assert.Contains(t, *sql, `"is_web_product"="excluded"."is_web_product"`)
	assert.NotContains(t, *sql, `"linked_sku_id"="excluded"."linked_sku_id"`)
}

func TestGormSyncCheckpointRepository_UpsertSQL(t *testing.T) {
	db, sql := newDryRunPostgres(t)
	repo := NewGormSyncCheckpointRepository(db)

	cp := integration.NewSyncCheckpoint(integration.ResourceTypeProducts, "north")
	cp.Advance(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), integration.SyncModeIncremental, 3, integration.SyncStats{})
	require.NoError(t, repo.Upsert(context.Background(), cp))

	assert.Contains(t, *sql, `INSERT INTO "sync_checkpoints"`)
	assert.Contains(t, *sql, `ON CONFLICT ("id") DO UPDATE SET`)
	assert.Contains(t, *sql, `"last_sync_at"="excluded"."last_sync_at"`)
}
