// Package audit records sign in and sign out events in a SQL database.
//
// The trail is optional. When it is disabled the orchestrator records into
// Discard. Failures to write an event are logged and never fail the request.
package audit
