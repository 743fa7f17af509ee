// Package session keeps server side sessions and pending sign in challenges
// in a key value Storage.
//
// The browser only holds an opaque session id in an HTTP-only cookie, the
// cookie value itself is encrypted by the encryptcookie middleware of the web
// service. Sessions have an idle expiry that slides on use and an absolute
// expiry that never moves.
//
// Pending challenges (auth.RequestContext) are stored under their state value
// and consumed exactly once by the callback.
package session
