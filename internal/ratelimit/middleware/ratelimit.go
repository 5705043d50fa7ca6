package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"mic/internal/ratelimit/metrics"
	"mic/internal/ratelimit/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/circuit"
	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=../mocks/ratelimit-mocks.go -package=mocks Limiter

// Limiter counts one write by actor in the current window.
type Limiter interface {
	Allow(ctx context.Context, actor requestcontext.Actor) (*models.Result, error)
}

// StatusHeader is set to "degraded" when the limiter is bypassed.
const StatusHeader = "X-RateLimit-Status"

type Middleware struct {
	limiter Limiter
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(mw *Middleware) { mw.breaker = b }
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		breaker: circuit.New("ratelimit", circuit.WithSuccessThreshold(1)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LimitWrites counts POST requests per authenticated actor. Limiter errors
// never block a request: the request proceeds uncounted, and after repeated
// failures the limiter is skipped until a periodic probe succeeds.
func (m *Middleware) LimitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		actor, ok := requestcontext.ActorFrom(ctx)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !m.breaker.AllowProbe() {
			m.metrics.IncrementDecision(metrics.DecisionDegraded)
			w.Header().Set(StatusHeader, "degraded")
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.limiter.Allow(ctx, actor)
		if err != nil {
			_, change := m.breaker.RecordFailure()
			if change.Opened {
				m.metrics.SetBreakerOpen(true)
				m.logger.WarnContext(ctx, "rate limiter bypassed after repeated failures",
					"breaker", m.breaker.Name(),
				)
			}
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"trace_id", requestcontext.TraceID(ctx),
				"actor", actor.String(),
				"error", err,
			)
			m.metrics.IncrementDecision(metrics.DecisionError)
			w.Header().Set(StatusHeader, "degraded")
			next.ServeHTTP(w, r)
			return
		}
		if _, change := m.breaker.RecordSuccess(); change.Closed {
			m.metrics.SetBreakerOpen(false)
			m.logger.InfoContext(ctx, "rate limiter recovered", "breaker", m.breaker.Name())
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.metrics.IncrementDecision(metrics.DecisionRejected)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, r, dErrors.New(dErrors.CodeRateLimited,
				"write rate limit exceeded; retry after "+strconv.Itoa(result.RetryAfter)+"s"))
			return
		}
		m.metrics.IncrementDecision(metrics.DecisionAllowed)
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
