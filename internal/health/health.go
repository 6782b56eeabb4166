// Package health reports whether the service can reach its database, over
// the standard gRPC health protocol and over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported next to the overall
// "" entry.
const ServiceName = "clinic.booking.v1"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db      Pinger
	srv     *grpchealth.Server
	log     *logrus.Logger
	timeout time.Duration
}

func NewChecker(db Pinger, log *logrus.Logger) *Checker {
	c := &Checker{
		db:      db,
		srv:     grpchealth.NewServer(),
		log:     log,
		timeout: 2 * time.Second,
	}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Register adds the health service and reflection to gs.
func (c *Checker) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, c.srv)
	reflection.Register(gs)
}

func (c *Checker) set(st healthpb.HealthCheckResponse_ServingStatus) {
	c.srv.SetServingStatus("", st)
	c.srv.SetServingStatus(ServiceName, st)
}

// Check pings the database once and updates the gRPC status.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	c.set(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run checks every interval until ctx ends, then reports NOT_SERVING for good.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	healthy := c.Check(ctx) == nil
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			err := c.Check(ctx)
			switch {
			case err != nil && healthy:
				c.log.WithError(err).Warn("database unreachable")
			case err == nil && !healthy:
				c.log.Info("database reachable again")
			}
			healthy = err == nil
		}
	}
}

// ServeHTTP answers GET /health with 200 or 503.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, "ok"
	if err := c.Check(r.Context()); err != nil {
		status, body = http.StatusServiceUnavailable, "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": body})
}
