package config

import (
	"time"

	"github.com/rpgate/rpgate/internal/logger"
)

// Config overall data structure.
// It is built once at startup and treated as read-only afterwards.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	Log       logger.Log
	Webserver Webserver
	Session   Session
	Auth      Auth
	Audit     Audit
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover      bool   // disable recover middleware
	Metrics             bool   // expose /metrics
	Port                int    `validate:"min=1,max=65535"` // listening port for the webserver
	ShutDownTime        int    // seconds to report 503 on /checkalive before stopping
	URL                 string `validate:"required,url"` // public base url, used to build the callback url
	CookieEncryptionKey string `validate:"omitempty,base64"` // base64 AES key for cookie encryption, generated when empty
	ProxyHeader         string // header holding the client ip behind a load balancer, e.g. X-Forwarded-For
}

// Session settings.
type Session struct {
	Storage       string        `validate:"oneof=memory valkey mysql postgres"`
	CookieName    string        `validate:"required"`
	IdleTimeout   time.Duration `validate:"gt=0"` // cookie lifetime, renewed on use when Sliding
	MaxLifetime   time.Duration // absolute cap for sliding renewal, 0 disables the cap
	Sliding       bool
	CleanupEvery  time.Duration // memory storage gc interval
	Table         string        // mysql/postgres table
	ConnectionURI string        // mysql/postgres connection uri
	Valkey        Valkey
}

// Valkey connection settings for the valkey session storage.
type Valkey struct {
	Address  []string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Auth holds the OpenID Connect relying party settings.
type Auth struct {
	Authority    string `validate:"omitempty,url"` // issuer url of the identity provider
	ClientID     string
	ClientSecret string
	Scopes       []string

	HomePath      string `validate:"startswith=/"`
	ChallengePath string `validate:"startswith=/"`
	CallbackPath  string `validate:"startswith=/"`
	LogoutPath    string `validate:"startswith=/"`
	ErrorPath     string `validate:"startswith=/"`

	// EndSessionEndpoint overrides the discovered end_session_endpoint.
	EndSessionEndpoint string `validate:"omitempty,url"`
	// FederatedSignOut sends the browser to the end session endpoint after the local logout.
	FederatedSignOut bool

	// Production hides failure details from the browser.
	Production bool
	// FailureRedirect redirects failed callbacks to ErrorPath instead of rendering a 500.
	FailureRedirect bool

	CorrelationTTL time.Duration `validate:"gt=0"`
	HTTPTimeout    time.Duration `validate:"gt=0"`
}

// Audit configures the optional login audit trail.
type Audit struct {
	Enabled bool
	Driver  string `validate:"omitempty,oneof=sqlite mysql postgres"`
	DSN     string
}

// CallbackURL returns the absolute callback url registered at the identity provider.
func (c *Config) CallbackURL() string {
	return joinURL(c.Webserver.URL, c.Auth.CallbackPath)
}

// HomeURL returns the absolute url of the application home.
func (c *Config) HomeURL() string {
	return joinURL(c.Webserver.URL, c.Auth.HomePath)
}
