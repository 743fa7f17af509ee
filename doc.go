// Package main provides the entry point of rpgate, an OpenID Connect relying
// party. rpgate signs users in at an external identity provider and keeps a
// local browser session. See `rpgate start --help`.
package main
