package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/resources"
)

type dialect struct {
	name           string
	driver         string
	migrateDialect string
	migrationsRoot string
}

var (
	dialectSQLite = dialect{
		name:           "sqlite",
		driver:         "sqlite",
		migrateDialect: "sqlite3",
		migrationsRoot: "migrations/sqlite",
	}
	dialectPostgres = dialect{
		name:           "postgres",
		driver:         "pgx",
		migrateDialect: "postgres",
		migrationsRoot: "migrations/postgres",
	}
)

// sqlite params: writers take the database lock on BEGIN, readers wait for it.
const sqliteParams = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

type sqlClient struct {
	db      *sqlx.DB
	q       queries
	dialect dialect
	mutex   sync.RWMutex
	retry   RetryPolicy
}

var _ db.Client = (*sqlClient)(nil)

func NewSQLiteClient(ctx context.Context, dir string, name string) (*sqlClient, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, name) + "?" + sqliteParams
	dbx, err := sqlx.Open(dialectSQLite.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	dbx.SetMaxOpenConns(8)

	return newClient(ctx, dbx, dialectSQLite)
}

func NewPostgresClient(ctx context.Context, dsn string) (*sqlClient, error) {
	dbx, err := sqlx.Open(dialectPostgres.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	dbx.SetMaxOpenConns(16)
	dbx.SetConnMaxIdleTime(5 * time.Minute)

	return newClient(ctx, dbx, dialectPostgres)
}

func newClient(ctx context.Context, dbx *sqlx.DB, d dialect) (*sqlClient, error) {
	c := &sqlClient{
		db:      dbx,
		q:       queries{ext: dbx},
		dialect: d,
		retry:   DefaultRetryPolicy(),
	}
	if err := c.Ping(ctx); err != nil {
		_ = dbx.Close()
		return nil, err
	}
	if err := c.migrate(ctx); err != nil {
		_ = dbx.Close()
		return nil, err
	}
	return c, nil
}

// SetRetryPolicy replaces the reconnect policy applied to every storage call.
func (c *sqlClient) SetRetryPolicy(policy RetryPolicy) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.retry = policy
}

func (c *sqlClient) migrate(ctx context.Context) error {
	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       c.dialect.migrationsRoot,
	}
	n, err := migrate.ExecContext(ctx, c.db.DB, c.dialect.migrateDialect, migrationsSource, migrate.Up)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.WithField("dialect", c.dialect.name).Infof("applied %d migrations!", n)
	}
	return nil
}

func (c *sqlClient) Close() error {
	return c.db.Close()
}

func (c *sqlClient) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", func(ctx context.Context) error {
		return c.db.PingContext(ctx)
	})
}

func (c *sqlClient) WithinTx(ctx context.Context, username string, fn func(ctx context.Context, ledger db.Ledger) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.do(ctx, "within tx", func(ctx context.Context) error {
		tx, err := c.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := c.lockTarget(ctx, tx, username); err != nil {
			return err
		}
		if err := fn(ctx, queries{ext: tx}); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// lockTarget serializes writers on one username across processes. SQLite
// already holds the database write lock from BEGIN IMMEDIATE.
func (c *sqlClient) lockTarget(ctx context.Context, tx *sqlx.Tx, username string) error {
	if c.dialect.name != dialectPostgres.name {
		return nil
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(`SELECT pg_advisory_xact_lock(hashtext(?))`), db.NormalizeUsername(username))
	return err
}
