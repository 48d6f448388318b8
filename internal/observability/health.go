package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// healthBody is the JSON response of the health and readiness endpoints.
// Reason carries the first failing check's error, omitted when healthy.
type healthBody struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ReadyCheck reports whether a subsystem is ready to serve. Watch mode
// registers one per watched resource (the proto directory, the watcher
// itself). A nil return means ready.
type ReadyCheck func(ctx context.Context) error

// HealthHandler returns an [http.Handler] for liveness checks at
// /healthz. It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeStatus(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at
// /readyz. The first failing check turns the response into HTTP 503
// naming the failure; no checks means always ready.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				writeStatus(rw, http.StatusServiceUnavailable, healthBody{
					Status: healthStatusUnavailable,
					Reason: err.Error(),
				})

				return
			}
		}

		writeStatus(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

func writeStatus(rw http.ResponseWriter, code int, body healthBody) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_, _ = rw.Write(data)
}
