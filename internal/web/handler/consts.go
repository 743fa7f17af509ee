package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// CheckAlivePath answers the load balancer health checks.
	CheckAlivePath = "/checkalive"

	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"
)
