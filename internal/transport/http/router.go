// Package httptransport assembles the service's HTTP surface: shared
// middleware, public read routes and the authenticated, rate-limited writes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	claimshandler "mic/internal/claims/handler"
	"mic/internal/health"
	ledgerhandler "mic/internal/ledger/handler"
	"mic/internal/platform/metrics"
	"mic/internal/platform/middleware"
	ratelimitmw "mic/internal/ratelimit/middleware"
	sanctionshandler "mic/internal/sanctions/handler"
	verdicthandler "mic/internal/verdict/handler"
	authmw "mic/pkg/platform/middleware/auth"
	"mic/pkg/platform/middleware/requesttime"
	"mic/pkg/platform/middleware/traceid"
)

// Deps are the collaborators mounted by NewRouter. Metrics and Prometheus
// are optional.
type Deps struct {
	Logger      *slog.Logger
	HTTPMetrics *metrics.HTTP
	Prometheus  http.Handler
	Resolver    authmw.ActorResolver
	RateLimit   *ratelimitmw.Middleware

	Claims    *claimshandler.Handler
	Verdicts  *verdicthandler.Handler
	Sanctions *sanctionshandler.Handler
	Events    *ledgerhandler.Handler
	Health    *health.Handler
}

// NewRouter wires all endpoints. Reads are public; every write needs an
// authenticated actor and is counted by the rate limiter.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recover(d.Logger))
	r.Use(traceid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics(d.HTTPMetrics))

	d.Health.Register(r)
	if d.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics", d.Prometheus)
	}

	d.Claims.RegisterReads(r)
	d.Verdicts.RegisterReads(r)
	d.Events.Register(r)

	r.Group(func(w chi.Router) {
		w.Use(authmw.RequireActor(d.Resolver, d.Logger))
		if d.RateLimit != nil {
			w.Use(d.RateLimit.LimitWrites)
		}
		d.Claims.RegisterWrites(w)
		d.Verdicts.RegisterWrites(w)
		d.Sanctions.RegisterWrites(w)
	})

	return r
}

// PrometheusHandler exposes the default registry, which every promauto
// collector in the service registers with.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
