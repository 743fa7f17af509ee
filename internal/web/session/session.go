package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/config"
	"github.com/rpgate/rpgate/internal/uniuri"
)

const sessionKeyPrefix = "session:"

// Data is a signed in browser session.
type Data struct {
	ID             string    `json:"id"`
	Subject        string    `json:"sub"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	IssuedAt       time.Time `json:"iat"`
	ExpiresAt      time.Time `json:"exp"`
	AbsoluteExpiry time.Time `json:"abs_exp,omitzero"`
	Sliding        bool      `json:"sliding"`
}

// Store creates, reads and invalidates sessions.
type Store struct {
	storage Storage
	cfg     config.Session
	secure  bool
	now     func() time.Time
}

// New returns a session store on top of storage. secure sets the Secure flag of the cookies.
func New(storage Storage, cfg config.Session, secure bool) *Store {
	if storage == nil {
		panic("storage is nil")
	}

	return &Store{
		storage: storage,
		cfg:     cfg,
		secure:  secure,
		now:     time.Now,
	}
}

// SetClock replaces the clock, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// CookieName is the name of the session cookie.
func (s *Store) CookieName() string {
	return s.cfg.CookieName
}

// Create starts a session for identity.
func (s *Store) Create(identity auth.Identity) (Data, error) {
	id, err := uniuri.Token()
	if err != nil {
		return Data{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.now()

	d := Data{
		ID:       id,
		Subject:  identity.Subject,
		Email:    identity.Email,
		Name:     identity.Name,
		IssuedAt: now,
		Sliding:  s.cfg.Sliding,
	}

	if s.cfg.MaxLifetime > 0 {
		d.AbsoluteExpiry = now.Add(s.cfg.MaxLifetime)
	}

	d.ExpiresAt = s.capped(now.Add(s.cfg.IdleTimeout), d.AbsoluteExpiry)

	if err = s.write(d, now); err != nil {
		return Data{}, err
	}

	return d, nil
}

// Read loads the session id. Expired sessions are removed and reported as ErrExpired.
func (s *Store) Read(id string) (Data, error) {
	if id == "" {
		return Data{}, ErrNotFound
	}

	raw, err := s.storage.Get(sessionKeyPrefix + id)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read session: %w", err)
	}

	if raw == nil {
		return Data{}, ErrNotFound
	}

	var d Data
	if err = json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("failed to decode session: %w", err)
	}

	if !s.IsValid(d, s.now()) {
		_ = s.Invalidate(id)
		return Data{}, ErrExpired
	}

	return d, nil
}

// Touch renews the idle expiry of a sliding session, never past its absolute expiry.
func (s *Store) Touch(d *Data) error {
	if !d.Sliding {
		return nil
	}

	now := s.now()
	d.ExpiresAt = s.capped(now.Add(s.cfg.IdleTimeout), d.AbsoluteExpiry)

	return s.write(*d, now)
}

// Invalidate removes the session. Unknown ids are not an error.
func (s *Store) Invalidate(id string) error {
	if id == "" {
		return nil
	}

	if err := s.storage.Delete(sessionKeyPrefix + id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// IsValid reports whether d is within its idle and absolute expiry at now.
func (s *Store) IsValid(d Data, now time.Time) bool {
	if d.ID == "" || d.Subject == "" {
		return false
	}

	if !now.Before(d.ExpiresAt) {
		return false
	}

	return d.AbsoluteExpiry.IsZero() || now.Before(d.AbsoluteExpiry)
}

// Cookie returns the session cookie for d.
func (s *Store) Cookie(d Data) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    d.ID,
		Path:     "/",
		MaxAge:   max(int(d.ExpiresAt.Sub(s.now()).Seconds()), 1),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that removes the session cookie from the browser.
func (s *Store) ClearCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(1, 0),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (s *Store) write(d Data, now time.Time) error {
	out, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err = s.storage.Set(sessionKeyPrefix+d.ID, out, d.ExpiresAt.Sub(now)); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

func (s *Store) capped(t, limit time.Time) time.Time {
	if !limit.IsZero() && t.After(limit) {
		return limit
	}

	return t
}
