// Package telemetry wires Sentry tracing into the service layer.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 5 * time.Second

// Config controls Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init sets up the Sentry SDK and returns a flush function to call on
// shutdown. An empty DSN disables telemetry entirely; initialization
// failures are logged and the service keeps running untraced.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	rate := cfg.TracesSampleRate
	if rate == 0 {
		rate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		EnableTracing:    true,
		TracesSampleRate: rate,
		Debug:            cfg.Debug,
		ServerName:       "mailsift",
		TracesSampler:    healthAwareSampler(rate),
	})
	if err != nil {
		log.Printf("telemetry: sentry init failed, tracing disabled: %v", err)
		return func() {}, nil
	}

	log.Printf("telemetry: sentry tracing enabled (env=%s rate=%.2f)", env, rate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// healthAwareSampler drops health-check transactions and keeps child spans
// consistent with their parent's sampling decision.
func healthAwareSampler(rate float64) sentry.TracesSampler {
	return func(sc sentry.SamplingContext) float64 {
		if sc.Span.Name == "GET /health" {
			return 0.0
		}
		var root sentry.SpanID
		if sc.Span.ParentSpanID != root {
			if sc.Span.Sampled.Bool() {
				return 1.0
			}
			return 0.0
		}
		return rate
	}
}

// SpanAttributes tags a service span with classification context.
type SpanAttributes struct {
	MessageID  string
	CategoryID string
	Strategy   string
	Operation  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.MessageID != "" {
		span.SetTag("message_id", a.MessageID)
	}
	if a.CategoryID != "" {
		span.SetTag("category_id", a.CategoryID)
	}
	if a.Strategy != "" {
		span.SetTag("strategy", a.Strategy)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a nil-safe handle around a Sentry span. All methods are no-ops
// when telemetry is disabled.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a span named after a service operation. Inside an HTTP
// request it becomes a child of the request transaction; standalone (CLI,
// background worker) it starts a transaction of its own.
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
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
}
