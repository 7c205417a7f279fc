package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rmdgo/anatomy/internal/config"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DB is a snapshot database, either a pgx pool or an embedded sqlite file.
// Queries go through sqlx so one repository serves both.
type DB struct {
	X       *sqlx.DB
	Pool    *pgxpool.Pool // nil for sqlite
	Dialect string
	log     *zap.Logger
}

// Open connects to the database named by cfg and applies migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case DialectPostgres:
		db, err = NewDB(ctx, cfg, log)
	case DialectSQLite:
		db, err = OpenSQLite(cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db.X.DB, db.Dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// NewDB connects to PostgreSQL through a pgx pool.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	x := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	return &DB{X: x, Pool: pool, Dialect: DialectPostgres, log: log}, nil
}

// OpenSQLite opens (creating if needed) an sqlite database file. A bare path
// gets a busy timeout and foreign keys switched on.
func OpenSQLite(dsn string, log *zap.Logger) (*DB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	raw.SetMaxOpenConns(1)
	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dsn, err)
	}
	return &DB{X: sqlx.NewDb(raw, "sqlite"), Dialect: DialectSQLite, log: log}, nil
}

func (db *DB) Close() {
	db.X.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
}
