// Package uniuri generates cryptographically secure random strings used as
// correlation values, nonces and session identifiers.
package uniuri
