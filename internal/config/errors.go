package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrLocalConfiguration marks settings without which the relying party can not serve traffic.
	ErrLocalConfiguration = errors.New("local configuration error")

	// ErrMissingAuthority error if auth.authority is empty.
	ErrMissingAuthority = errors.New("config auth.authority can not be empty")

	// ErrMissingClientID error if auth.clientid is empty.
	ErrMissingClientID = errors.New("config auth.clientid can not be empty")

	// ErrMissingClientSecret error if auth.clientsecret is empty.
	ErrMissingClientSecret = errors.New("config auth.clientsecret can not be empty")

	// ErrPathsCollide error if two auth endpoints share a path.
	ErrPathsCollide = errors.New("config auth paths must be distinct")

	// ErrInvalidCookieEncryptionKey error if webserver.cookieencryptionkey is not a base64 16, 24 or 32 byte key.
	ErrInvalidCookieEncryptionKey = errors.New("config webserver.cookieencryptionkey must be base64 of 16, 24 or 32 bytes")

	// ErrMissingAuditDSN error if the audit trail is enabled without a dsn.
	ErrMissingAuditDSN = errors.New("config audit.dsn can not be empty when audit is enabled")
)
