package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"justice_flow_go/config"

	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

const slowQueryThreshold = 200 * time.Millisecond

// Initialize opens the configured database and makes it the process-wide handle
func Initialize(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = conn
	return nil
}

// Open connects to Turso when a URL is configured, and to the local SQLite file otherwise.
// The local file runs in WAL mode with foreign keys on and a single writer connection,
// so workflow transactions queue instead of failing with SQLITE_BUSY.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: newLogger(cfg)}

	if cfg.TursoDatabaseURL != "" {
		conn, err := gorm.Open(sqlite.New(sqlite.Config{
			DriverName: "libsql",
			DSN:        tursoDSN(cfg.TursoDatabaseURL, cfg.TursoAuthToken),
		}), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to turso database: %w", err)
		}
		log.Println("[DB] Connected to Turso (libsql)")
		return conn, nil
	}

	dsn := cfg.DBPath + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Printf("[DB] Opened %s (WAL mode)", cfg.DBPath)
	return conn, nil
}

// newLogger routes GORM's own logging through logrus
func newLogger(cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg.IsDevelopment() {
		level = logger.Info
	}
	return logger.New(log.StandardLogger(), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func tursoDSN(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Printf("[DB] Migrated %d tables", len(models))
	return nil
}

// Ping checks that the database answers
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
