package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/util"
	"economy-ledger/pkg/db"
)

// newTestRepository opens a private in-memory SQLite database with the schema applied.
func newTestRepository(t *testing.T) *DocumentRepository {
	t.Helper()
	conn, err := db.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repo := NewDocumentRepository(conn)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestLoadEmpty(t *testing.T) {
	repo := newTestRepository(t)

	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Migrate(context.Background()))
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := domain.NewDocument()
	doc.Set("10.00", "069a79f4-44e9-4726-a5be-fca90e38aaf5", "dollar-balance")
	doc.Set("Unemployed", "069a79f4-44e9-4726-a5be-fca90e38aaf5", "job")
	doc.Set("true", "069a79f4-44e9-4726-a5be-fca90e38aaf5", "jobnotifications")
	doc.Set("250.00", "shop.north", "dollar-balance")
	require.NoError(t, repo.Save(ctx, doc))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	v, ok := loaded.Get("shop.north", "dollar-balance")
	assert.True(t, ok)
	assert.Equal(t, "250.00", v)

	v, ok = loaded.Get("069a79f4-44e9-4726-a5be-fca90e38aaf5", "jobnotifications")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestSaveUpdatesExistingEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := domain.NewDocument()
	doc.Set("10.00", "bank", "dollar-balance")
	require.NoError(t, repo.Save(ctx, doc))

	doc.Set("12.00", "bank", "dollar-balance")
	require.NoError(t, repo.Save(ctx, doc))

	var count int
	require.NoError(t, repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ledger_accounts`))
	assert.Equal(t, 1, count)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	v, _ := loaded.Get("bank", "dollar-balance")
	assert.Equal(t, "12.00", v)
}

func TestSaveBeginFails(t *testing.T) {
	repo := newTestRepository(t)
	repo.beginTx = func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
		return nil, errors.New("connection reset")
	}

	err := repo.Save(context.Background(), domain.NewDocument())
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
}

func TestLoadWithoutSchema(t *testing.T) {
	conn, err := db.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = NewDocumentRepository(conn).Load(context.Background())
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
}
