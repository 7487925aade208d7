package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/migrations"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/httpcache"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/records"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/farmadvisor/internal/dbx"
	"github.com/dmitrijs2005/farmadvisor/internal/filex"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// Repositories bundles everything the client keeps locally.
type Repositories struct {
	Store    *RecordStore
	Queue    syncqueue.Repository
	Cache    httpcache.Repository
	Metadata metadata.Repository

	db            *sql.DB
	path          string
	schemaVersion int64
}

type options struct {
	now    func() time.Time
	logger logging.Logger
}

// Option customizes Open and OpenMemory.
type Option func(*options)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used while opening and seeding.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: logging.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Open opens (creating if needed) the SQLite file at path, applies the
// embedded migrations and seeds the reference data. Failures are returned
// as *StorageError.
func Open(ctx context.Context, path string, opts ...Option) (*Repositories, error) {
	o := buildOptions(opts)
	log := o.logger.With("module", "store")

	if path != MemoryDSN {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, storageErr("open", "", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", "", err)
	}
	// one writer; keeps :memory: databases on a single connection too
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, storageErr("open", "", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	version, err := migrations.Up(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", "", err)
	}

	recs := records.NewSQLiteRepository(db)
	queue := syncqueue.NewSQLiteRepository(db)
	inTx := func(ctx context.Context, fn func(context.Context, records.Repository) error) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, records.NewSQLiteRepository(tx))
		})
	}

	r := &Repositories{
		Store:         newRecordStore(recs, queue, inTx, o.now),
		Queue:         queue,
		Cache:         httpcache.NewSQLiteRepository(db),
		Metadata:      metadata.NewSQLiteRepository(db),
		db:            db,
		path:          path,
		schemaVersion: version,
	}

	n, err := Seed(ctx, recs, o.now())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info(ctx, "local store ready", "path", path, "schema_version", version, "seeded", n)
	return r, nil
}

// OpenMemory returns repositories that live only in process memory,
// seeded with the same reference data as a database.
func OpenMemory(ctx context.Context, opts ...Option) (*Repositories, error) {
	o := buildOptions(opts)

	recs := records.NewMemoryRepository()
	queue := syncqueue.NewMemoryRepository()

	r := &Repositories{
		Store:    newRecordStore(recs, queue, nil, o.now),
		Queue:    queue,
		Cache:    httpcache.NewMemoryRepository(),
		Metadata: metadata.NewMemoryRepository(),
	}

	if _, err := Seed(ctx, recs, o.now()); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenOrFallback tries Open and, when the database is unavailable, logs the
// failure and falls back to OpenMemory. The returned error is the original
// storage failure (nil when the database opened); the repositories are
// usable either way.
func OpenOrFallback(ctx context.Context, path string, opts ...Option) (*Repositories, error) {
	r, err := Open(ctx, path, opts...)
	if err == nil {
		return r, nil
	}

	o := buildOptions(opts)
	o.logger.Error(ctx, "local store unavailable, keeping data in memory only", "path", path, "error", err)

	mem, memErr := OpenMemory(ctx, opts...)
	if memErr != nil {
		return nil, errors.Join(err, memErr)
	}
	return mem, err
}

// Persistent reports whether data survives a restart.
func (r *Repositories) Persistent() bool { return r.db != nil }

// Path returns the database file path, or "" in memory mode.
func (r *Repositories) Path() string { return r.path }

// DB returns the underlying database handle, or nil in memory mode.
func (r *Repositories) DB() *sql.DB { return r.db }

// SchemaVersion returns the applied migration version (0 in memory mode).
func (r *Repositories) SchemaVersion() int64 { return r.schemaVersion }

func (r *Repositories) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
