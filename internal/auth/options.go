package auth

import (
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hongminglow/deepsea-be/internal/auth"

// DefaultRefreshTTL bounds how long a refresh token can be exchanged.
const DefaultRefreshTTL = 7 * 24 * time.Hour

type options struct {
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
	refreshTTL time.Duration
}

// Option configures a Service or Authenticator.
type Option func(*options)

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer used for spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithRefreshTTL sets the refresh token exchange window.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(o *options) { o.refreshTTL = ttl }
}

func buildOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer(tracerName),
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
