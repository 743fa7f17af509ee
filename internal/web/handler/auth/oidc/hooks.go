package oidc

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/auth"
)

// Hooks are called at the points of the flow where deployments usually need
// to intervene. Nil hooks are replaced by the defaults.
type Hooks struct {
	// OnBeforeRedirect gets the authorization url and returns the url the browser is sent to.
	OnBeforeRedirect func(authURL string) (string, error)
	// OnExchangeFailure is called with the error of a failed code exchange or token validation.
	OnExchangeFailure func(ctx context.Context, err error)
	// OnBeforeSignOutRedirect gets the end session url of a federated sign out.
	OnBeforeSignOutRedirect func(endSessionURL string) (string, error)
}

// DefaultHooks force https on every redirect to the identity provider and log exchange failures.
func DefaultHooks() Hooks {
	return Hooks{
		OnBeforeRedirect:        auth.SanitizeRedirect,
		OnExchangeFailure:       logExchangeFailure,
		OnBeforeSignOutRedirect: auth.SanitizeRedirect,
	}
}

func (h Hooks) withDefaults() Hooks {
	d := DefaultHooks()

	if h.OnBeforeRedirect == nil {
		h.OnBeforeRedirect = d.OnBeforeRedirect
	}

	if h.OnExchangeFailure == nil {
		h.OnExchangeFailure = d.OnExchangeFailure
	}

	if h.OnBeforeSignOutRedirect == nil {
		h.OnBeforeSignOutRedirect = d.OnBeforeSignOutRedirect
	}

	return h
}

func logExchangeFailure(_ context.Context, err error) {
	log.Warn().Err(err).Str("reason", auth.Classify(err, true).Reason).Msg("oidc code exchange failed")
}
