package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectPossibleCheaters = `
	SELECT timestamp, player_id, event_id, error_id, json_server, json_client
	FROM possible_cheaters`

// PossibleCheaterRepository appends possible cheater rows. The table is
// append-only: existing rows are never read back, compared or overwritten
// while appending.
type PossibleCheaterRepository interface {
	AppendRecords(ctx context.Context, records []PossibleCheaterRecord) (int, error)
	GetRecords(ctx context.Context) ([]PossibleCheaterRecord, error)
	GetRecordsCount(ctx context.Context) (int, error)
}

type PgCheaterRepository struct {
	pool *pgxpool.Pool
}

func NewPgCheaterRepository(pool *pgxpool.Pool) *PgCheaterRepository {
	return &PgCheaterRepository{pool: pool}
}

// AppendRecords copies all records in a single transaction.
func (r *PgCheaterRepository) AppendRecords(ctx context.Context, records []PossibleCheaterRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", ErrWriteFailure, err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"possible_cheaters"},
		PossibleCheaterColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return records[i].Values(), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy possible cheaters: %w: %w", ErrWriteFailure, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit possible cheaters: %w: %w", ErrWriteFailure, err)
	}
	return int(n), nil
}

func (r *PgCheaterRepository) GetRecords(ctx context.Context) ([]PossibleCheaterRecord, error) {
	rows, err := r.pool.Query(ctx, selectPossibleCheaters)
	if err != nil {
		return nil, fmt.Errorf("failed to query possible cheaters: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[PossibleCheaterRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to collect possible cheaters: %w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *PgCheaterRepository) GetRecordsCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM possible_cheaters").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get possible cheaters count: %w: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

// SQLCheaterRepository writes through database/sql (SQLite or MySQL).
type SQLCheaterRepository struct {
	db *sql.DB
}

func NewSQLCheaterRepository(db *sql.DB) *SQLCheaterRepository {
	return &SQLCheaterRepository{db: db}
}

// AppendRecords inserts all records in a single transaction with a
// prepared statement.
func (r *SQLCheaterRepository) AppendRecords(ctx context.Context, records []PossibleCheaterRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", ErrWriteFailure, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO possible_cheaters (timestamp, player_id, event_id, error_id, json_server, json_client)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w: %w", ErrWriteFailure, err)
	}
	defer stmt.Close()

	for i, record := range records {
		if _, err := stmt.ExecContext(ctx, record.Values()...); err != nil {
			return 0, fmt.Errorf("failed to insert possible cheater %d (error_id %s): %w: %w", i, record.ErrorId, ErrWriteFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit possible cheaters: %w: %w", ErrWriteFailure, err)
	}
	return len(records), nil
}

func (r *SQLCheaterRepository) GetRecords(ctx context.Context) ([]PossibleCheaterRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectPossibleCheaters)
	if err != nil {
		return nil, fmt.Errorf("failed to query possible cheaters: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []PossibleCheaterRecord
	for rows.Next() {
		var rec PossibleCheaterRecord
		if err := rows.Scan(&rec.Timestamp, &rec.PlayerId, &rec.EventId, &rec.ErrorId, &rec.JsonServer, &rec.JsonClient); err != nil {
			return nil, fmt.Errorf("failed to scan possible cheater: %w: %w", ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read possible cheaters: %w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *SQLCheaterRepository) GetRecordsCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM possible_cheaters").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get possible cheaters count: %w: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

var (
	_ PossibleCheaterRepository = (*PgCheaterRepository)(nil)
	_ PossibleCheaterRepository = (*SQLCheaterRepository)(nil)
)
