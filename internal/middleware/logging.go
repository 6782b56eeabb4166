package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.status = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.status = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

func record(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// Logging writes one access log entry per request.
func Logging(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)

			// claims are attached further down the chain
			var claims *claimsHolder
			r, claims = withClaimsHolder(r)

			next.ServeHTTP(rec, r)

			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
				"remote":      clientIP(r),
			}
			if claims.id != "" {
				fields["account_id"] = claims.id
			}

			entry := log.WithFields(fields)
			switch {
			case rec.status >= 500:
				entry.Error("http_request")
			case rec.status >= 400:
				entry.Warn("http_request")
			default:
				entry.Info("http_request")
			}
		})
	}
}

// claimsHolder lets Auth report the account id back to Logging, which sits
// outside it in the chain.
type claimsHolder struct {
	id string
}

const holderKey ctxKey = "claims_holder"

func withClaimsHolder(r *http.Request) (*http.Request, *claimsHolder) {
	h := &claimsHolder{}
	return r.WithContext(context.WithValue(r.Context(), holderKey, h)), h
}
