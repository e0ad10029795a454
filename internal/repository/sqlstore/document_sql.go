// internal/repository/sqlstore/document_sql.go
package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/util"
	"economy-ledger/pkg/db"
)

// attrSep joins the path segments below the account ID into one attribute column.
const attrSep = "."

const schema = `CREATE TABLE IF NOT EXISTS ledger_accounts (
    account_id TEXT NOT NULL,
    attribute  TEXT NOT NULL,
    value      TEXT NOT NULL,
    PRIMARY KEY (account_id, attribute)
)`

// entryRow is one scalar of the ledger document.
type entryRow struct {
	AccountID string `db:"account_id"`
	Attribute string `db:"attribute"`
	Value     string `db:"value"`
}

// DocumentRepository implements repository.DocumentStore on a SQL table.
// It works with PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
type DocumentRepository struct {
	db         *sqlx.DB
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(conn *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{
		db:         conn,
		beginTx:    db.BeginTx,
		commitTx:   db.CommitTx,
		rollbackTx: db.RollbackTx,
	}
}

// Migrate creates the ledger table if it does not exist yet.
func (r *DocumentRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: failed to create ledger_accounts table: %w", util.ErrStorageUnavailable, err)
	}
	return nil
}

// Load reads every entry and rebuilds the document.
func (r *DocumentRepository) Load(ctx context.Context) (*domain.Document, error) {
	return loadDocument(ctx, r.db)
}

func loadDocument(ctx context.Context, q repository.DBExecutor) (*domain.Document, error) {
	var rows []entryRow
	query := q.Rebind(`SELECT account_id, attribute, value FROM ledger_accounts ORDER BY account_id, attribute`)
	if err := q.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%w: failed to load ledger entries: %w", util.ErrStorageUnavailable, err)
	}

	doc := domain.NewDocument()
	for _, row := range rows {
		path := []string{row.AccountID}
		if row.Attribute != "" {
			path = append(path, strings.Split(row.Attribute, attrSep)...)
		}
		doc.Set(row.Value, path...)
	}
	return doc, nil
}

// Save upserts every scalar of doc inside a single transaction.
func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	txController, err := r.beginTx(ctx, r.db)
	if err != nil {
		return fmt.Errorf("%w: save: failed to begin transaction: %w", util.ErrStorageUnavailable, err)
	}
	defer r.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("%w: save: transaction controller does not implement DBExecutor", util.ErrStorageUnavailable)
	}

	query := txExecutor.Rebind(`INSERT INTO ledger_accounts (account_id, attribute, value)
              VALUES (?, ?, ?)
              ON CONFLICT (account_id, attribute) DO UPDATE SET value = excluded.value`)

	var execErr error
	doc.Walk(func(path []string, value string) {
		if execErr != nil {
			return
		}
		accountID, attribute := path[0], strings.Join(path[1:], attrSep)
		if _, err := txExecutor.ExecContext(ctx, query, accountID, attribute, value); err != nil {
			execErr = fmt.Errorf("failed to upsert %s/%s: %w", accountID, attribute, err)
		}
	})
	if execErr != nil {
		return fmt.Errorf("%w: save: %w", util.ErrStorageUnavailable, execErr)
	}

	if err := r.commitTx(txController); err != nil {
		return fmt.Errorf("%w: save: failed to commit transaction: %w", util.ErrStorageUnavailable, err)
	}
	return nil
}

// Compile-time check: ensure DocumentRepository implements DocumentStore interface
var _ repository.DocumentStore = (*DocumentRepository)(nil)
