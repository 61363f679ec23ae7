package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

func (d Driver) Valid() bool {
	switch d {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	}
	return false
}

// Store is the explicit handle to one database for the duration of a run.
// Exactly one of pool and sqlDB is set, depending on the driver.
type Store struct {
	Driver Driver
	pool   *pgxpool.Pool
	sqlDB  *sql.DB
}

// Open connects to the database for driver and verifies the connection.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection string: %w: %w", ErrStoreUnavailable, err)
		}
		poolCfg.MaxConns = 2
		poolCfg.MaxConnIdleTime = 5 * time.Minute

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w: %w", ErrStoreUnavailable, err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w: %w", ErrStoreUnavailable, err)
		}
		return NewPgStore(pool), nil

	case DriverSQLite, DriverMySQL:
		sqlDB, err := sql.Open(string(driver), dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w: %w", driver, ErrStoreUnavailable, err)
		}
		if driver == DriverSQLite {
			// SQLite only supports one writer
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
		} else {
			sqlDB.SetMaxOpenConns(2)
			sqlDB.SetConnMaxLifetime(5 * time.Minute)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping %s: %w: %w", driver, ErrStoreUnavailable, err)
		}
		return NewSQLStore(driver, sqlDB), nil
	}
	return nil, fmt.Errorf("unsupported driver %q: %w", driver, ErrStoreUnavailable)
}

func NewPgStore(pool *pgxpool.Pool) *Store {
	return &Store{Driver: DriverPostgres, pool: pool}
}

func NewSQLStore(driver Driver, sqlDB *sql.DB) *Store {
	return &Store{Driver: driver, sqlDB: sqlDB}
}

func (s *Store) BanRepository() BanRepository {
	if s.pool != nil {
		return NewPgBanRepository(s.pool)
	}
	return NewSQLBanRepository(s.sqlDB)
}

func (s *Store) CheaterRepository() PossibleCheaterRepository {
	if s.pool != nil {
		return NewPgCheaterRepository(s.pool)
	}
	return NewSQLCheaterRepository(s.sqlDB)
}

// Exec runs a statement that returns no rows, such as DDL.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	var err error
	if s.pool != nil {
		_, err = s.pool.Exec(ctx, query, args...)
	} else {
		_, err = s.sqlDB.ExecContext(ctx, query, args...)
	}
	return err
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
}
