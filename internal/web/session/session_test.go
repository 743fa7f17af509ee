package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/config"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testStore(t *testing.T, cfg config.Session) (*Store, *clock) {
	t.Helper()

	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	s := New(NewCache(time.Minute), cfg, true)
	s.SetClock(c.now)

	return s, c
}

func defaultSessionConfig() config.Session {
	return config.Session{
		Storage:     StorageMemory,
		CookieName:  "rpgate_session",
		IdleTimeout: 5 * time.Minute,
		MaxLifetime: time.Hour,
		Sliding:     true,
	}
}

var testIdentity = auth.Identity{Subject: "user@example.com", Email: "user@example.com", Name: "Example User"}

func TestCreateAndRead(t *testing.T) {
	s, c := testStore(t, defaultSessionConfig())

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "user@example.com", d.Subject)
	assert.Equal(t, c.t, d.IssuedAt)
	assert.Equal(t, c.t.Add(5*time.Minute), d.ExpiresAt)
	assert.Equal(t, c.t.Add(time.Hour), d.AbsoluteExpiry)
	assert.True(t, d.Sliding)

	read, err := s.Read(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, read.ID)
	assert.Equal(t, d.Subject, read.Subject)
	assert.True(t, d.ExpiresAt.Equal(read.ExpiresAt))

	_, err = s.Read("unknown")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Read("")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIdleExpiry(t *testing.T) {
	s, c := testStore(t, defaultSessionConfig())

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	c.advance(5 * time.Minute)

	_, err = s.Read(d.ID)
	require.ErrorIs(t, err, ErrExpired)

	// expired sessions are removed
	_, err = s.Read(d.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSlidingRenewalIsCappedByMaxLifetime(t *testing.T) {
	s, c := testStore(t, defaultSessionConfig())

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	// keep the session busy for longer than its absolute lifetime
	for range 14 {
		c.advance(4 * time.Minute)

		d, err = s.Read(d.ID)
		require.NoError(t, err)
		require.NoError(t, s.Touch(&d))
	}

	assert.Equal(t, d.AbsoluteExpiry, d.ExpiresAt)

	c.advance(4 * time.Minute)

	_, err = s.Read(d.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpired) || errors.Is(err, ErrNotFound))
}

func TestTouchWithoutSliding(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.Sliding = false
	s, c := testStore(t, cfg)

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	expires := d.ExpiresAt

	c.advance(time.Minute)
	require.NoError(t, s.Touch(&d))
	assert.Equal(t, expires, d.ExpiresAt)
}

func TestNoMaxLifetime(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.MaxLifetime = 0
	s, c := testStore(t, cfg)

	d, err := s.Create(testIdentity)
	require.NoError(t, err)
	assert.True(t, d.AbsoluteExpiry.IsZero())

	for range 30 {
		c.advance(4 * time.Minute)
		require.NoError(t, s.Touch(&d))
	}

	_, err = s.Read(d.ID)
	require.NoError(t, err)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s, _ := testStore(t, defaultSessionConfig())

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	require.NoError(t, s.Invalidate(d.ID))
	require.NoError(t, s.Invalidate(d.ID))
	require.NoError(t, s.Invalidate(""))
	require.NoError(t, s.Invalidate("never-existed"))

	_, err = s.Read(d.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIsValid(t *testing.T) {
	s, c := testStore(t, defaultSessionConfig())
	now := c.t

	tests := []struct {
		name string
		d    Data
		want bool
	}{
		{"valid", Data{ID: "a", Subject: "s", ExpiresAt: now.Add(time.Minute), AbsoluteExpiry: now.Add(time.Hour)}, true},
		{"no absolute expiry", Data{ID: "a", Subject: "s", ExpiresAt: now.Add(time.Minute)}, true},
		{"idle expired", Data{ID: "a", Subject: "s", ExpiresAt: now, AbsoluteExpiry: now.Add(time.Hour)}, false},
		{"absolute expired", Data{ID: "a", Subject: "s", ExpiresAt: now.Add(time.Minute), AbsoluteExpiry: now}, false},
		{"no subject", Data{ID: "a", ExpiresAt: now.Add(time.Minute)}, false},
		{"zero", Data{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsValid(tt.d, now))
		})
	}
}

func TestCookies(t *testing.T) {
	s, _ := testStore(t, defaultSessionConfig())

	d, err := s.Create(testIdentity)
	require.NoError(t, err)

	c := s.Cookie(d)
	assert.Equal(t, "rpgate_session", c.Name)
	assert.Equal(t, d.ID, c.Value)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "Lax", c.SameSite)
	assert.Equal(t, 300, c.MaxAge)

	clear := s.ClearCookie()
	assert.Equal(t, "rpgate_session", clear.Name)
	assert.Empty(t, clear.Value)
	assert.True(t, clear.HTTPOnly)
	assert.True(t, clear.Expires.Before(time.Now()))
}
