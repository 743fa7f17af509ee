package auth

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// redirectParams are query parameters that carry a url the identity provider
// will send the browser back to.
var redirectParams = []string{"redirect_uri", "post_logout_redirect_uri"}

// RedirectTarget is an absolute redirect url with its enforced scheme.
type RedirectTarget struct {
	URL    *url.URL
	Scheme string
}

// NewRedirectTarget parses raw and upgrades it, and the urls it carries in its
// redirect parameters, to https.
func NewRedirectTarget(raw string) (RedirectTarget, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return RedirectTarget{}, fmt.Errorf("%w: %w", ErrInvalidRedirect, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return RedirectTarget{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidRedirect, raw)
	}

	if strings.EqualFold(u.Scheme, schemeHTTP) {
		u.Scheme = schemeHTTPS
	}

	if q := u.Query(); hasAny(q, redirectParams) {
		for _, p := range redirectParams {
			if v := q.Get(p); v != "" {
				q.Set(p, ForceHTTPS(v))
			}
		}

		u.RawQuery = q.Encode()
	}

	return RedirectTarget{URL: u, Scheme: u.Scheme}, nil
}

// String returns the url.
func (t RedirectTarget) String() string {
	return t.URL.String()
}

// SanitizeRedirect is the default redirect hook: it returns raw with an https scheme.
func SanitizeRedirect(raw string) (string, error) {
	t, err := NewRedirectTarget(raw)
	if err != nil {
		return "", err
	}

	return t.String(), nil
}

// ForceHTTPS replaces a leading http:// (any case) with https://.
// Anything else is returned unchanged.
func ForceHTTPS(raw string) string {
	const prefix = schemeHTTP + "://"

	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return schemeHTTPS + "://" + raw[len(prefix):]
	}

	return raw
}

// SafeReturnPath returns p when it is a path inside this application, otherwise fallback.
// Absolute urls, protocol relative urls (//host) and backslash tricks are rejected.
func SafeReturnPath(p, fallback string) string {
	if p == "" || p[0] != '/' {
		return fallback
	}

	if strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n\t") {
		return fallback
	}

	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}

	return p
}

// RedirectURIOf returns the redirect_uri query parameter of an authorization url.
func RedirectURIOf(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	v := u.Query().Get("redirect_uri")

	return v, v != ""
}

func hasAny(q url.Values, keys []string) bool {
	for _, k := range keys {
		if q.Has(k) {
			return true
		}
	}

	return false
}
