// catalog-service/internal/store/open.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Supported DB_DRIVER values.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMongo    = "mongodb"
)

// sqliteUnicodeDriver is go-sqlite3 with lower() replaced by a Unicode-aware
// fold, so search matches the same rows as the other backends.
const sqliteUnicodeDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteUnicodeDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// Backend bundles the stores of one storage driver with its shutdown hook.
type Backend struct {
	Movies MovieStore
	Users  UserStore
	close  func(context.Context) error
}

// Close releases the underlying connection, if any.
func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}

// Open connects the configured driver, prepares its schema or indexes and
// returns ready stores.
func Open(ctx context.Context, driver, dsn, mongoDatabase string, logger *slog.Logger) (*Backend, error) {
	switch driver {
	case DriverMemory, "":
		logger.Info("Using in-memory stores")
		return &Backend{
			Movies: NewMemoryMovieStore(logger),
			Users:  NewMemoryUserStore(logger),
		}, nil
	case DriverPostgres, DriverSQLite:
		db, err := ConnectSQL(ctx, driver, dsn, logger)
		if err != nil {
			return nil, err
		}
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		movies, err := NewSQLMovieStore(db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		users, err := NewSQLUserStore(db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{
			Movies: movies,
			Users:  users,
			close: func(context.Context) error {
				logger.Info("Closing database connection", slog.String("driver", driver))
				return db.Close()
			},
		}, nil
	case DriverMongo:
		return openMongo(ctx, dsn, mongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// ConnectSQL opens and pings a sqlx connection.
func ConnectSQL(ctx context.Context, driver, dsn string, logger *slog.Logger) (*sqlx.DB, error) {
	logger.Info("Attempting to connect to database", slog.String("driver", driver), slog.String("dsn", redactDSN(dsn)))

	db, err := connectSQL(ctx, driver, dsn)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("driver", driver), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" a single database and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	logger.Info("Successfully connected to database", slog.String("driver", driver))
	return db, nil
}

func connectSQL(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverSQLite {
		return sqlx.ConnectContext(ctx, driver, dsn)
	}
	sqlDB, err := sql.Open(sqliteUnicodeDriver, dsn)
	if err != nil {
		return nil, err
	}
	// Bind type and schema selection key off the plain driver name.
	return sqlx.NewDb(sqlDB, DriverSQLite), nil
}

func openMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*Backend, error) {
	logger.Info("Attempting to connect to MongoDB", slog.String("uri", redactDSN(uri)), slog.String("database", database))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx) //nolint:errcheck
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	movies := NewMongoMovieStore(db, logger)
	users := NewMongoUserStore(db, logger)
	if err := movies.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx) //nolint:errcheck
		return nil, err
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx) //nolint:errcheck
		return nil, err
	}
	logger.Info("Successfully connected to MongoDB")

	return &Backend{
		Movies: movies,
		Users:  users,
		close: func(ctx context.Context) error {
			logger.Info("Disconnecting from MongoDB")
			return client.Disconnect(ctx)
		},
	}, nil
}

var dsnPasswordPattern = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// redactDSN hides the password of URL-style and key/value DSNs for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPasswordPattern.ReplaceAllString(dsn, "${1}xxxxx")
}
