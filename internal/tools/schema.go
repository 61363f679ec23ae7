package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

var possibleCheatersDDL = map[db.Driver]string{
	db.DriverSQLite: `
		CREATE TABLE IF NOT EXISTS possible_cheaters (
			timestamp INTEGER,
			player_id INTEGER,
			event_id INTEGER,
			error_id TEXT,
			json_server TEXT,
			json_client TEXT
		)`,
	db.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS possible_cheaters (
			timestamp BIGINT,
			player_id BIGINT,
			event_id BIGINT,
			error_id TEXT,
			json_server TEXT,
			json_client TEXT
		)`,
	db.DriverMySQL: `
		CREATE TABLE IF NOT EXISTS possible_cheaters (
			timestamp BIGINT,
			player_id BIGINT,
			event_id BIGINT,
			error_id VARCHAR(255),
			json_server TEXT,
			json_client TEXT
		)`,
}

// The cheaters table belongs to the account service; it is only created
// here for local setups and tests.
var cheatersDDL = map[db.Driver]string{
	db.DriverSQLite: `
		CREATE TABLE IF NOT EXISTS cheaters (
			player_id INTEGER,
			ban_time TEXT
		)`,
	db.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS cheaters (
			player_id BIGINT,
			ban_time DATE
		)`,
	db.DriverMySQL: `
		CREATE TABLE IF NOT EXISTS cheaters (
			player_id BIGINT,
			ban_time DATE
		)`,
}

// EnsureSchema creates the possible_cheaters table if it does not exist.
// Existing tables and rows are left untouched.
func EnsureSchema(ctx context.Context, store *db.Store) error {
	if err := store.Exec(ctx, possibleCheatersDDL[store.Driver]); err != nil {
		return fmt.Errorf("failed to create possible_cheaters table: %w: %w", db.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureBanTable creates the cheaters table if it does not exist.
func EnsureBanTable(ctx context.Context, store *db.Store) error {
	if err := store.Exec(ctx, cheatersDDL[store.Driver]); err != nil {
		return fmt.Errorf("failed to create cheaters table: %w: %w", db.ErrStoreUnavailable, err)
	}
	return nil
}

// InsertBan records a ban. Used to seed local stores.
func InsertBan(ctx context.Context, store *db.Store, ban db.BanRecord) error {
	var err error
	if store.Driver == db.DriverPostgres {
		day := time.Date(ban.BanTime.Year(), ban.BanTime.Month(), ban.BanTime.Day(), 0, 0, 0, 0, time.UTC)
		err = store.Exec(ctx, "INSERT INTO cheaters (player_id, ban_time) VALUES ($1, $2)", ban.PlayerId, day)
	} else {
		err = store.Exec(ctx, "INSERT INTO cheaters (player_id, ban_time) VALUES (?, ?)", ban.PlayerId, ban.BanTime.Format("2006-01-02"))
	}
	if err != nil {
		return fmt.Errorf("failed to insert ban: %w", err)
	}
	return nil
}
