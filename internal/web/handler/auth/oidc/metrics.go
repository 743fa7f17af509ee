package oidc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rpgate/rpgate/internal/auth"
)

var (
	challengesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpgate_auth_challenges_total",
		Help: "Number of sign in challenges sent to the identity provider.",
	})

	challengeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpgate_auth_challenge_failures_total",
		Help: "Number of sign in challenges that could not be sent to the identity provider, by failure kind.",
	}, []string{"kind"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpgate_auth_callbacks_total",
		Help: "Number of callbacks from the identity provider by outcome.",
	}, []string{"outcome"})

	logoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpgate_auth_logouts_total",
		Help: "Number of sign outs by mode.",
	}, []string{"mode"})
)

const outcomeSuccess = "success"

func outcome(rec auth.FailureRecord) string {
	return rec.Kind.String()
}
