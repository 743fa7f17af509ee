// Package config reads the rpgate configuration from etc/main.toml and the environment.
package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. RPGATE_AUTH_CLIENTSECRET.
	EnvPrefix = "RPGATE"

	// EnvConfigJSON holds a json document merged over the file and env config.
	EnvConfigJSON = EnvPrefix + "_CONFIG_JSON"

	redacted = "[redacted]"
)

// ReadConfig from <path>/main.toml, environment variables and EnvConfigJSON.
// A missing main.toml is not an error, containers usually configure through the environment.
func ReadConfig(path string) (Config, error) {
	var (
		c   Config
		err error
		v   = viper.New()
	)

	if path == "" {
		path = "./etc/"
	}

	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "failed to read main config file")
		}
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		if c, err = decodeAndMergeConfig(c, configAsJSON); err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

//nolint:mnd
func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "rpgate")
	v.SetDefault("devmode", false)

	v.SetDefault("log.loglevel", "info")
	v.SetDefault("log.appname", "rpgate")
	v.SetDefault("log.servicename", "rpgate")
	v.SetDefault("log.reportcaller", false)
	v.SetDefault("log.enableaccesslogtoconsole", true)
	v.SetDefault("log.disablecheckalive", true)
	v.SetDefault("log.console.enabled", true)
	v.SetDefault("log.console.useconsolewriter", false)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "./logs")

	for _, name := range []string{"access", "error", "info", "trace", "warn"} {
		v.SetDefault("log.file."+name+".name", name+".log")
		v.SetDefault("log.file."+name+".maxsize", 100)
		v.SetDefault("log.file."+name+".maxbackups", 3)
		v.SetDefault("log.file."+name+".maxage", 28)
	}

	v.SetDefault("webserver.port", 8080)
	v.SetDefault("webserver.url", "")
	v.SetDefault("webserver.shutdowntime", 5)
	v.SetDefault("webserver.disablerecover", false)
	v.SetDefault("webserver.metrics", true)
	v.SetDefault("webserver.cookieencryptionkey", "")
	v.SetDefault("webserver.proxyheader", "")

	v.SetDefault("session.storage", "memory")
	v.SetDefault("session.cookiename", "rpgate_session")
	v.SetDefault("session.idletimeout", 5*time.Minute)
	v.SetDefault("session.maxlifetime", 8*time.Hour)
	v.SetDefault("session.sliding", true)
	v.SetDefault("session.cleanupevery", time.Minute)
	v.SetDefault("session.table", "rpgate_sessions")
	v.SetDefault("session.connectionuri", "")
	v.SetDefault("session.valkey.address", []string{"127.0.0.1:6379"})
	v.SetDefault("session.valkey.username", "")
	v.SetDefault("session.valkey.password", "")
	v.SetDefault("session.valkey.db", 0)
	v.SetDefault("session.valkey.prefix", "rpgate")

	v.SetDefault("auth.authority", "")
	v.SetDefault("auth.clientid", "")
	v.SetDefault("auth.clientsecret", "")
	v.SetDefault("auth.scopes", []string{"openid", "profile", "email"})
	v.SetDefault("auth.homepath", "/")
	v.SetDefault("auth.challengepath", "/challenge")
	v.SetDefault("auth.callbackpath", "/callback")
	v.SetDefault("auth.logoutpath", "/logout")
	v.SetDefault("auth.errorpath", "/error")
	v.SetDefault("auth.endsessionendpoint", "")
	v.SetDefault("auth.federatedsignout", false)
	v.SetDefault("auth.production", true)
	v.SetDefault("auth.failureredirect", false)
	v.SetDefault("auth.correlationttl", 5*time.Minute)
	v.SetDefault("auth.httptimeout", 10*time.Second)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.dsn", "")
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+EnvConfigJSON)
	}

	return c, nil
}

// DumpConfig returns the config as TOML with secrets redacted.
func DumpConfig(c *Config) (string, error) {
	out, err := toml.Marshal(redact(c))
	if err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}

	return string(out), nil
}

// DumpConfigJSON returns the config as indented JSON with secrets redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(redact(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func redact(c *Config) Config {
	out := *c

	if out.Auth.ClientSecret != "" {
		out.Auth.ClientSecret = redacted
	}

	if out.Webserver.CookieEncryptionKey != "" {
		out.Webserver.CookieEncryptionKey = redacted
	}

	if out.Session.Valkey.Password != "" {
		out.Session.Valkey.Password = redacted
	}

	return out
}

// validate checks the config and fills in derived defaults.
// Missing identity provider settings are reported as ErrLocalConfiguration
// so the caller refuses to serve traffic.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	c.Auth.Scopes = normalizeScopes(c.Auth.Scopes)

	required := []struct {
		value string
		err   error
	}{
		{c.Auth.Authority, ErrMissingAuthority},
		{c.Auth.ClientID, ErrMissingClientID},
		{c.Auth.ClientSecret, ErrMissingClientSecret},
	}

	for _, r := range required {
		if r.value == "" {
			return errors.Wrap(fmt.Errorf("%w: %w", ErrLocalConfiguration, r.err), invalidErrMessage)
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateCookieEncryptionKey(c.Webserver.CookieEncryptionKey); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	paths := map[string]struct{}{}
	for _, p := range []string{
		c.Auth.HomePath, c.Auth.ChallengePath, c.Auth.CallbackPath, c.Auth.LogoutPath, c.Auth.ErrorPath,
	} {
		if _, dup := paths[p]; dup {
			return errors.Wrap(ErrPathsCollide, invalidErrMessage)
		}

		paths[p] = struct{}{}
	}

	if c.Audit.Enabled && c.Audit.DSN == "" {
		return errors.Wrap(ErrMissingAuditDSN, invalidErrMessage)
	}

	return nil
}

// validateCookieEncryptionKey accepts an empty key or a base64 AES-128, -192 or -256 key.
func validateCookieEncryptionKey(key string) error {
	if key == "" {
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCookieEncryptionKey, err)
	}

	switch len(decoded) {
	case 16, 24, 32: //nolint:mnd
		return nil
	default:
		return fmt.Errorf("%w: decodes to %d bytes", ErrInvalidCookieEncryptionKey, len(decoded))
	}
}

// normalizeScopes removes duplicates and makes sure openid is requested first.
func normalizeScopes(scopes []string) []string {
	out := []string{"openid"}
	seen := map[string]struct{}{"openid": {}}

	for _, s := range scopes {
		for _, f := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
			if _, ok := seen[f]; ok {
				continue
			}

			seen[f] = struct{}{}
			out = append(out, f)
		}
	}

	if len(out) == 1 {
		out = append(out, "profile", "email")
	}

	return out
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
