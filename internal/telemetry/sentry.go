// Package telemetry wires Sentry tracing around service operations.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serverName = "studyhall"

// flushTimeout bounds how long shutdown waits for buffered events.
const flushTimeout = 5 * time.Second

// Config controls Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns a flush function to
// call on shutdown. An empty DSN disables tracing and yields a no-op flush;
// an init failure is logged and likewise degrades to a no-op.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		Debug:            cfg.Debug,
		ServerName:       serverName,
	})
	if err != nil {
		log.Printf("sentry: init failed, continuing without tracing: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing enabled (environment=%s sample_rate=%.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler keeps scrape endpoints out of the trace stream and makes child
// spans follow their parent's sampling decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(sc sentry.SamplingContext) float64 {
		if isScrapeSpan(sc.Span) {
			return 0
		}
		if sc.Span.ParentSpanID != (sentry.SpanID{}) {
			if sc.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// isScrapeSpan reports whether the span belongs to a health or metrics
// probe. Those fire every few seconds and would drown real traffic.
func isScrapeSpan(span *sentry.Span) bool {
	switch span.Name {
	case "GET /health", "GET /metrics":
		return true
	}
	switch span.Op {
	case "http.server GET /health", "http.server GET /metrics":
		return true
	}
	return false
}

// SpanAttributes carries the tags and data attached to a service span.
// Zero-valued fields are skipped.
type SpanAttributes struct {
	TenantID    string
	CourseTag   string
	StoragePath string
	Operation   string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.TenantID != "" {
		span.SetTag("tenant_id", a.TenantID)
	}
	if a.CourseTag != "" {
		span.SetTag("course_tag", a.CourseTag)
	}
	if a.StoragePath != "" {
		span.SetData("storage_path", a.StoragePath)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span wraps sentry.Span and tolerates a nil inner span, so callers never
// have to branch on whether tracing is active.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a span named name under the transaction in ctx, or a new
// transaction when ctx carries none. The returned context propagates the
// span to nested calls.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// CaptureError reports err on the hub bound to ctx, falling back to the
// global hub when the context carries none.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
