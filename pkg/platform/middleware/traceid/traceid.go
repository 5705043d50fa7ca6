// Package traceid assigns every request a trace identifier. When an
// OpenTelemetry provider is installed the identifier is the span's trace id;
// otherwise it is a random UUID.
package traceid

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mic/pkg/requestcontext"
)

// Header echoes the trace id to the client.
const Header = "X-Trace-Id"

const tracerName = "mic/http"

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		id := uuid.NewString()
		if sc := span.SpanContext(); sc.HasTraceID() {
			id = sc.TraceID().String()
		}
		ctx = requestcontext.WithTraceID(ctx, id)
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
