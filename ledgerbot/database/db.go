package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

// DB owns the SQL connections. On PostgreSQL a pgx pool is kept next to the
// bun handle for health checks and maintenance statements.
type DB struct {
	driver string
	pool   *pgxpool.Pool
	bunDB  *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverPostgres, "pg":
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenSQLite opens an embedded database file, creating parent directories.
// A single connection is used; sqlite serializes writers anyway.
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		path = "data/ledgerbot.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	return &DB{driver: DriverSQLite, bunDB: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

func openPostgres(ctx context.Context, cfg DBConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		var conn net.Conn
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			conn.Close()
			break
		}
		slog.Warn("Database not reachable yet",
			slog.String("type", "db"),
			slog.String("addr", addr),
			slog.Int("attempt", i+1),
			slog.Any("error", err),
		)
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{driver: DriverPostgres, pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Driver() string {
	return db.driver
}

// InitializeSchema creates all required tables and indexes.
func (db *DB) InitializeSchema(ctx context.Context) error {
	start := time.Now()
	if err := models.CreateSchema(ctx, db.bunDB); err != nil {
		return err
	}
	slog.Info("Database schema ready",
		slog.String("type", "db"),
		slog.String("driver", db.driver),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// ResetAppTables empties every application table.
func (db *DB) ResetAppTables(ctx context.Context) error {
	if db.driver == DriverPostgres {
		stmt := "TRUNCATE TABLE " + joinIdentifiers(models.TableNames) + " RESTART IDENTITY CASCADE;"
		if _, err := db.ExecWithLog(ctx, stmt); err != nil {
			return fmt.Errorf("failed to truncate tables: %w", err)
		}
	} else {
		for _, t := range models.TableNames {
			if _, err := db.bunDB.ExecContext(ctx, "DELETE FROM "+joinIdentifiers([]string{t})); err != nil {
				return fmt.Errorf("failed to clear %s: %w", t, err)
			}
		}
	}

	slog.Info("App tables reset", slog.String("type", "db"), slog.Any("tables", models.TableNames))
	return nil
}

func joinIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// ExecWithLog runs a maintenance statement on the pgx pool.
func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "exec"),
			slog.String("query", sql),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return result, err
	}

	slog.Info("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.String("query", sql),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", result.RowsAffected()),
	)
	return result, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return fmt.Errorf("pgxpool ping failed: %w", err)
		}
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}
