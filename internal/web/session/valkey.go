package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/rpgate/rpgate/internal/config"
)

const valkeyTimeout = 5 * time.Second

// Valkey is a Storage in a valkey (or redis) server, shared by all replicas.
type Valkey struct {
	client valkey.Client
	prefix string
}

// NewValkey connects to the valkey server of cfg.
func NewValkey(cfg config.Valkey) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: cfg.Address,
		Username:    cfg.Username,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: valkey: %w", ErrStorageUnavailable, err)
	}

	return NewValkeyWithClient(client, cfg.Prefix), nil
}

// NewValkeyWithClient uses an existing client, keys are stored as <prefix>:<key>.
func NewValkeyWithClient(client valkey.Client, prefix string) *Valkey {
	return &Valkey{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

// Get returns the value of key or nil.
func (v *Valkey) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	b, err := v.client.Do(ctx, v.client.B().Get().Key(v.key(key)).Build()).AsBytes()
	if err != nil {
		if valkeyErr, ok := valkey.IsValkeyErr(err); ok && valkeyErr.IsNil() {
			return nil, nil
		}

		return nil, fmt.Errorf("executing get command: %w", err)
	}

	return b, nil
}

// Set stores val under key. An exp of 0 keeps the key until it is deleted.
func (v *Valkey) Set(key string, val []byte, exp time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	set := v.client.B().Set().Key(v.key(key)).Value(valkey.BinaryString(val))

	var err error
	if exp > 0 {
		err = v.client.Do(ctx, set.PxMilliseconds(expiryMillis(exp)).Build()).Error()
	} else {
		err = v.client.Do(ctx, set.Build()).Error()
	}

	if err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

// Delete removes key.
func (v *Valkey) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	if err := v.client.Do(ctx, v.client.B().Del().Key(v.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

// Reset removes every key below the prefix.
func (v *Valkey) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	var cursor uint64

	for {
		scan, err := v.client.Do(ctx, v.client.B().Scan().Cursor(cursor).Match(v.key("*")).Count(100).Build()).AsScanEntry()
		if err != nil {
			return fmt.Errorf("executing scan command: %w", err)
		}

		if len(scan.Elements) > 0 {
			if err = v.client.Do(ctx, v.client.B().Del().Key(scan.Elements...).Build()).Error(); err != nil {
				return fmt.Errorf("executing del command: %w", err)
			}
		}

		cursor = scan.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the client.
func (v *Valkey) Close() error {
	v.client.Close()
	return nil
}

// expiryMillis rounds exp up to whole milliseconds. Valkey rejects an expiry
// of 0 and whole seconds would cut up to a second off every session.
func expiryMillis(exp time.Duration) int64 {
	return int64((exp + time.Millisecond - 1) / time.Millisecond)
}

func (v *Valkey) key(key string) string {
	if v.prefix == "" {
		return key
	}

	return v.prefix + ":" + key
}
