package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rpgate/rpgate/internal/config"
)

// ErrUnknownDriver is returned by Open for an unsupported database driver.
var ErrUnknownDriver = errors.New("unknown audit driver")

// Recorder records audit events.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Event) {}

// Trail is a Recorder backed by gorm.
type Trail struct {
	db *gorm.DB
}

// Open connects to the database of cfg and migrates the audit table.
// A disabled trail returns Discard.
func Open(cfg config.Audit) (Recorder, error) {
	if !cfg.Enabled {
		return Discard, nil
	}

	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = gormmysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect audit database: %w", err)
	}

	return New(db)
}

// New uses db for the trail and migrates the audit table.
func New(db *gorm.DB) (*Trail, error) {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}

	return &Trail{db: db}, nil
}

// Record stores e. Errors are logged.
func (t *Trail) Record(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	if err := t.db.WithContext(ctx).Create(&e).Error; err != nil {
		log.Error().Err(err).Str("type", string(e.Type)).Msg("failed to write audit event")
	}
}

// Recent returns the latest events, newest first.
func (t *Trail) Recent(ctx context.Context, limit int) ([]Event, error) {
	var events []Event

	err := t.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}

	return events, nil
}
