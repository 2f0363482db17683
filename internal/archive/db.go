package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
)

type Config struct {
	Driver          string // constants.DriverSQLite | constants.DriverPgx
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// FromCommon maps the archive section of the app config.
func FromCommon(c common.ArchiveConfig) Config {
	return Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		PingTimeout:     c.PingTimeout,
	}
}

// Store persists batches through an ent SQL driver; statements are built with
// the dialect builder so placeholders match the backend.
type Store struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool // set for the pgx driver only
	dialect string
	cfg     Config
	logger  *slog.Logger
}

// Open connects to the archive database. Call Migrate before first use.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, common.NewAppError(common.CodeArchive, "dsn is required", common.ErrInvalidInput)
	}
	logger.Info("connecting to archive", "driver", cfg.Driver)

	s := &Store{cfg: cfg, logger: logger}
	var db *sql.DB
	switch cfg.Driver {
	case constants.DriverSQLite:
		var err error
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open archive", "driver", cfg.Driver, "error", err)
			return nil, common.NewAppError(common.CodeArchive, "open sqlite", err)
		}
		// one writer; sqlite serializes anyway and this avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		s.dialect = dialect.SQLite
	case constants.DriverPgx:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse archive dsn", "error", err)
			return nil, common.NewAppError(common.CodeArchive, "parse dsn", err)
		}
		if cfg.MaxOpenConns > 0 {
			pc.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			pc.MaxConnLifetime = cfg.ConnMaxLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "ektp-scanner"

		dialCtx, cancel := common.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to archive", "error", err)
			return nil, common.NewAppError(common.CodeArchive, "connect", err)
		}
		s.pool = pool
		db = stdlib.OpenDBFromPool(pool)
		s.dialect = dialect.Postgres
	default:
		return nil, common.NewAppError(common.CodeArchive, fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	s.drv = entsql.OpenDB(s.dialect, db)

	logger.Info("successfully connected to archive", "driver", cfg.Driver)
	return s, nil
}

// Ping checks connectivity, bounded by the configured ping timeout.
func (s *Store) Ping(ctx context.Context) error {
	s.logger.Debug("pinging archive")
	ctx, cancel := common.WithTimeout(ctx, s.cfg.PingTimeout)
	defer cancel()
	if err := s.drv.DB().PingContext(ctx); err != nil {
		return common.NewAppError(common.CodeArchive, "ping", err)
	}
	s.logger.Debug("archive ping successful")
	return nil
}

// Close closes the database connections gracefully.
func (s *Store) Close() error {
	s.logger.Info("closing archive connections")
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	if err != nil {
		s.logger.Error("failed to close archive", "error", err)
		return err
	}
	return nil
}

// builder returns a statement builder for the store's dialect.
func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}
