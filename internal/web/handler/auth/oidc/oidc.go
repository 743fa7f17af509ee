package oidc

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/audit"
	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/config"
	"github.com/rpgate/rpgate/internal/web/handler"
	"github.com/rpgate/rpgate/internal/web/session"
)

// NoFailureMessage is shown on the error page when the browser has no failed sign in.
const NoFailureMessage = "There is no failed sign in to show."

// Deps are the collaborators of the sign in flow.
type Deps struct {
	Client   auth.Client
	Sessions *session.Store
	Requests *session.Requests
	// Audit defaults to audit.Discard.
	Audit audit.Recorder
	// Hooks default to DefaultHooks.
	Hooks Hooks
	// Reporter defaults to TextReporter.
	Reporter Reporter
}

// Service is the OIDC handler service.
type Service struct {
	cfg      *config.Config
	client   auth.Client
	sessions *session.Store
	requests *session.Requests
	audit    audit.Recorder
	hooks    Hooks
	reporter Reporter
	secure   bool
	now      func() time.Time
}

// Init registers the challenge, callback, logout and error routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps Deps) error {
	if app == nil || cfg == nil || deps.Client == nil || deps.Sessions == nil || deps.Requests == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.client = deps.Client
	s.sessions = deps.Sessions
	s.requests = deps.Requests
	s.hooks = deps.Hooks.withDefaults()
	s.secure = !cfg.DevMode
	s.now = time.Now

	s.audit = deps.Audit
	if s.audit == nil {
		s.audit = audit.Discard
	}

	s.reporter = deps.Reporter
	if s.reporter == nil {
		s.reporter = TextReporter{}
	}

	app.Get(cfg.Auth.ChallengePath, s.Challenge)
	app.Get(cfg.Auth.CallbackPath, s.Callback)
	app.Get(cfg.Auth.LogoutPath, s.Logout)
	app.Post(cfg.Auth.LogoutPath, s.Logout)
	app.Get(cfg.Auth.ErrorPath, s.Error)

	return nil
}

// Challenge starts the sign in: it stores a new request context, binds its
// state to the browser and redirects to the identity provider.
// The query parameter return_to selects where the browser lands afterwards.
func (s *Service) Challenge(c fiber.Ctx) error {
	returnPath := auth.SafeReturnPath(c.Query("return_to"), s.cfg.Auth.HomePath)

	rc, err := auth.NewRequestContext(s.cfg.CallbackURL(), returnPath, s.cfg.Auth.CorrelationTTL, s.now())
	if err != nil {
		return s.failChallenge(c, s.localFailure("request_context", err))
	}

	authURL, err := s.client.AuthorizationURL(rc)
	if err != nil {
		return s.failChallenge(c, s.localFailure("authorization_url", err))
	}

	target, err := s.hooks.OnBeforeRedirect(authURL)
	if err != nil {
		return s.failChallenge(c, s.localFailure("redirect", err))
	}

	// the code exchange has to repeat the redirect_uri the browser was sent with
	if redirectURI, ok := auth.RedirectURIOf(target); ok {
		rc.RedirectURI = redirectURI
	}

	if err = s.requests.Save(rc); err != nil {
		return s.failChallenge(c, s.localFailure("request_store", err))
	}

	c.Cookie(s.correlationCookie(rc.State))
	challengesTotal.Inc()

	log.Debug().Str("return_path", returnPath).Msg("sending browser to the identity provider")

	return c.Redirect().Status(fiber.StatusFound).To(target)
}

// Callback receives the response of the identity provider.
func (s *Service) Callback(c fiber.Ctx) error {
	boundState := c.Cookies(CorrelationCookie)
	c.Cookie(s.clearCookie(CorrelationCookie, s.cfg.Auth.CallbackPath))

	params := auth.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	rc, identity, err := s.validate(c, boundState, params)
	if err != nil {
		return s.fail(c, auth.Classify(err, s.cfg.Auth.Production))
	}

	data, err := s.sessions.Create(identity)
	if err != nil {
		return s.fail(c, s.localFailure("session_store", err))
	}

	c.Cookie(s.sessions.Cookie(data))

	callbacksTotal.WithLabelValues(outcomeSuccess).Inc()
	s.audit.Record(c.Context(), s.event(c, audit.EventLoginSuccess, identity.Subject))

	log.Info().Str("subject", identity.Subject).Str("issuer", identity.Issuer).Msg("user signed in via oidc")

	return c.Redirect().Status(fiber.StatusFound).To(auth.SafeReturnPath(rc.ReturnPath, s.cfg.Auth.HomePath))
}

func (s *Service) validate(
	c fiber.Ctx,
	boundState string,
	params auth.CallbackParams,
) (auth.RequestContext, auth.Identity, error) {
	correlated := boundState != "" && params.State != "" &&
		subtle.ConstantTimeCompare([]byte(boundState), []byte(params.State)) == 1

	// an uncorrelated response is rejected before anything it carries is looked at
	if !correlated {
		return auth.RequestContext{}, auth.Identity{},
			fmt.Errorf("%w: state does not match the correlation cookie", auth.ErrCorrelationMismatch)
	}

	rc, err := s.requests.Consume(params.State)
	if err != nil {
		if !errors.Is(err, auth.ErrCorrelationMismatch) {
			err = s.localFailure("request_store", err)
		}

		return auth.RequestContext{}, auth.Identity{}, err
	}

	if params.Error != "" {
		return auth.RequestContext{}, auth.Identity{},
			fmt.Errorf("%w: %s: %s", auth.ErrProviderError, params.Error, params.ErrorDescription)
	}

	identity, err := s.client.ValidateAndExchange(c.Context(), params, rc)
	if err != nil {
		s.hooks.OnExchangeFailure(c.Context(), err)
		return auth.RequestContext{}, auth.Identity{}, err
	}

	return rc, identity, nil
}

// Logout ends the local session and, in federated mode, sends the browser on
// to the end session endpoint of the identity provider. Logout never fails.
func (s *Service) Logout(c fiber.Ctx) error {
	id := c.Cookies(s.sessions.CookieName())

	if data, err := s.sessions.Read(id); err == nil {
		s.audit.Record(c.Context(), s.event(c, audit.EventLogout, data.Subject))
		log.Info().Str("subject", data.Subject).Msg("user signed out")
	}

	if err := s.sessions.Invalidate(id); err != nil {
		log.Warn().Err(err).Msg("failed to delete session, the cookie is cleared anyway")
	}

	c.Cookie(s.sessions.ClearCookie())

	if s.cfg.Auth.FederatedSignOut {
		if target, ok := s.endSessionURL(); ok {
			logoutsTotal.WithLabelValues("federated").Inc()
			return c.Redirect().Status(fiber.StatusFound).To(target)
		}

		log.Warn().Msg("federated sign out is enabled but no end session endpoint is known, signing out locally")
	}

	logoutsTotal.WithLabelValues("local").Inc()

	return c.Redirect().Status(fiber.StatusFound).To(s.cfg.Auth.HomePath)
}

// endSessionURL builds the RP initiated logout url of the provider.
func (s *Service) endSessionURL() (string, bool) {
	endpoint, ok := s.client.EndSessionEndpoint()
	if !ok {
		return "", false
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("invalid end session endpoint")
		return "", false
	}

	q := u.Query()
	q.Set("client_id", s.cfg.Auth.ClientID)
	q.Set("post_logout_redirect_uri", s.cfg.HomeURL())
	u.RawQuery = q.Encode()

	target, err := s.hooks.OnBeforeSignOutRedirect(u.String())
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("end session url rejected")
		return "", false
	}

	return target, true
}

// Error shows the message of the last failed sign in of this browser once.
func (s *Service) Error(c fiber.Ctx) error {
	handler.NoStore(c)

	message, ok := readFlash(c.Cookies(FlashCookie))
	if !ok {
		return c.SendString(NoFailureMessage)
	}

	c.Cookie(s.clearCookie(FlashCookie, s.cfg.Auth.ErrorPath))

	return c.SendString(message)
}

// fail answers a failed callback.
func (s *Service) fail(c fiber.Ctx, rec auth.FailureRecord) error {
	callbacksTotal.WithLabelValues(outcome(rec)).Inc()

	return s.report(c, rec)
}

// failChallenge answers a challenge that could not be sent to the identity provider.
func (s *Service) failChallenge(c fiber.Ctx, rec auth.FailureRecord) error {
	challengeFailuresTotal.WithLabelValues(rec.Kind.String()).Inc()

	return s.report(c, rec)
}

func (s *Service) report(c fiber.Ctx, rec auth.FailureRecord) error {
	event := log.Warn()
	if rec.Kind == auth.LocalError {
		event = log.Error()
	}

	event.Err(rec.Cause).
		Str("request_id", requestid.FromContext(c)).
		Str("kind", rec.Kind.String()).
		Str("reason", rec.Reason).
		Msg("sign in failed")

	e := s.event(c, audit.EventLoginFailure, "")
	e.Kind = rec.Kind.String()
	e.Reason = rec.Reason
	s.audit.Record(c.Context(), e)

	if s.cfg.Auth.FailureRedirect {
		c.Cookie(s.flashCookie(FailureText(c, rec)))
		return c.Redirect().Status(fiber.StatusFound).To(s.cfg.Auth.ErrorPath)
	}

	return s.reporter.Report(c, rec)
}

func (s *Service) localFailure(reason string, err error) auth.FailureRecord {
	return auth.NewFailureRecord(auth.LocalError, reason, err, s.cfg.Auth.Production)
}

func (s *Service) event(c fiber.Ctx, t audit.EventType, subject string) audit.Event {
	return audit.Event{
		Type:       t,
		Subject:    subject,
		RemoteAddr: c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	}
}
