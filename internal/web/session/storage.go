package session

import (
	"fmt"
	"time"

	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/config"
)

// Storage backend names of config.Session.Storage.
const (
	StorageMemory   = "memory"
	StorageValkey   = "valkey"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
)

// Storage is the key value backend of the session store. It is the
// non-context part of fiber.Storage, so every gofiber/storage driver fits.
// Get returns nil, nil for a missing key.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Reset() error
	Close() error
}

// NewStorage opens the backend selected by cfg.Storage.
func NewStorage(cfg config.Session) (s Storage, err error) {
	switch cfg.Storage {
	case StorageMemory, "":
		return NewCache(cfg.CleanupEvery), nil
	case StorageValkey:
		return NewValkey(cfg.Valkey)
	case StorageMySQL, StoragePostgres:
		// the sql drivers panic when the database is unreachable
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, cfg.Storage, r)
			}
		}()

		if cfg.Storage == StorageMySQL {
			s = mysql.New(mysql.Config{
				ConnectionURI: cfg.ConnectionURI,
				Table:         cfg.Table,
				GCInterval:    cfg.CleanupEvery,
			})
		} else {
			s = postgres.New(postgres.Config{
				ConnectionURI: cfg.ConnectionURI,
				Table:         cfg.Table,
				GCInterval:    cfg.CleanupEvery,
			})
		}

		log.Info().Str("storage", cfg.Storage).Str("table", cfg.Table).Msg("session storage connected")

		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Storage)
	}
}
