package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const banDateLayout = "2006-01-02"

// PlayerSet is a set of player ids.
type PlayerSet map[int64]struct{}

func (s PlayerSet) Contains(playerId int64) bool {
	_, ok := s[playerId]
	return ok
}

// BanRepository answers which players were banned before a date.
// Only bans with ban_time strictly earlier than the date count: an account
// banned on the date itself is still reported for that day. The cutoff is
// midnight of the date in the date's own location, so a timestamptz
// ban_time is compared in the processing timezone and a DATE ban_time by
// calendar day.
type BanRepository interface {
	BannedBefore(ctx context.Context, date time.Time) (PlayerSet, error)
}

type PgBanRepository struct {
	pool *pgxpool.Pool
}

func NewPgBanRepository(pool *pgxpool.Pool) *PgBanRepository {
	return &PgBanRepository{pool: pool}
}

func (r *PgBanRepository) BannedBefore(ctx context.Context, date time.Time) (PlayerSet, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	rows, err := r.pool.Query(ctx, "SELECT player_id FROM cheaters WHERE ban_time < $1", day)
	if err != nil {
		return nil, fmt.Errorf("failed to query banned players: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect banned players: %w: %w", ErrStoreUnavailable, err)
	}
	return newPlayerSet(ids), nil
}

// SQLBanRepository reads bans through database/sql. It serves both SQLite
// and MySQL; ban_time is compared against a YYYY-MM-DD string, which both
// engines order correctly against DATE and DATETIME values.
type SQLBanRepository struct {
	db *sql.DB
}

func NewSQLBanRepository(db *sql.DB) *SQLBanRepository {
	return &SQLBanRepository{db: db}
}

func (r *SQLBanRepository) BannedBefore(ctx context.Context, date time.Time) (PlayerSet, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT player_id FROM cheaters WHERE ban_time < ?", date.Format(banDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query banned players: %w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan banned player: %w: %w", ErrStoreUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read banned players: %w: %w", ErrStoreUnavailable, err)
	}
	return newPlayerSet(ids), nil
}

func newPlayerSet(ids []int64) PlayerSet {
	set := make(PlayerSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var (
	_ BanRepository = (*PgBanRepository)(nil)
	_ BanRepository = (*SQLBanRepository)(nil)
)
