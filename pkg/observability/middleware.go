package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// httpStatusServerError is the threshold for marking a span failed.
const httpStatusServerError = 500

// statusRecorder wraps [http.ResponseWriter] to capture the status code
// the handler sent.
type statusRecorder struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// WriteHeader captures the status code before delegating.
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}

	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(buf []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}

	n, err := sr.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware returns an [http.Handler] that opens a server span per
// request around next. Spans are named by the matched mux pattern when
// one exists ("GET /metrics"); responses at 500 and above mark the span
// failed.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		// Join a caller's W3C traceparent/baggage when present.
		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, spanName(hr),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		sr := &statusRecorder{ResponseWriter: rw}
		next.ServeHTTP(sr, hr.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(sr.statusCode))

		if sr.statusCode >= httpStatusServerError {
			span.SetStatus(codes.Error, http.StatusText(sr.statusCode))
		}
	})
}

// spanName prefers the mux route pattern over the raw path, falling back
// for requests no route matched.
func spanName(hr *http.Request) string {
	if hr.Pattern != "" {
		return hr.Method + " " + hr.Pattern
	}

	return hr.Method + " " + hr.URL.Path
}
