package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpgate/rpgate/internal/auth"
)

const requestKeyPrefix = "request:"

// Requests keeps pending sign in challenges keyed by their state value.
type Requests struct {
	storage Storage
	now     func() time.Time
}

// NewRequests returns a challenge store on top of storage.
func NewRequests(storage Storage) *Requests {
	if storage == nil {
		panic("storage is nil")
	}

	return &Requests{storage: storage, now: time.Now}
}

// SetClock replaces the clock, for tests.
func (r *Requests) SetClock(now func() time.Time) {
	r.now = now
}

// Save stores rc until it expires.
func (r *Requests) Save(rc auth.RequestContext) error {
	ttl := rc.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: request context already expired", auth.ErrCorrelationMismatch)
	}

	out, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("failed to encode request context: %w", err)
	}

	if err = r.storage.Set(requestKeyPrefix+rc.State, out, ttl); err != nil {
		return fmt.Errorf("failed to write request context: %w", err)
	}

	return nil
}

// Consume loads and removes the challenge of state. A missing or expired
// challenge is an auth.ErrCorrelationMismatch.
func (r *Requests) Consume(state string) (auth.RequestContext, error) {
	if state == "" {
		return auth.RequestContext{}, fmt.Errorf("%w: empty state", auth.ErrCorrelationMismatch)
	}

	key := requestKeyPrefix + state

	raw, err := r.storage.Get(key)
	if err != nil {
		return auth.RequestContext{}, fmt.Errorf("failed to read request context: %w", err)
	}

	if raw == nil {
		return auth.RequestContext{}, fmt.Errorf("%w: no pending challenge", auth.ErrCorrelationMismatch)
	}

	if err = r.storage.Delete(key); err != nil {
		return auth.RequestContext{}, fmt.Errorf("failed to delete request context: %w", err)
	}

	var rc auth.RequestContext
	if err = json.Unmarshal(raw, &rc); err != nil {
		return auth.RequestContext{}, fmt.Errorf("failed to decode request context: %w", err)
	}

	if rc.Expired(r.now()) {
		return auth.RequestContext{}, fmt.Errorf("%w: challenge expired", auth.ErrCorrelationMismatch)
	}

	return rc, nil
}
