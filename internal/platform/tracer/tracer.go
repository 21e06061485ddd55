// Package tracer wraps OpenTelemetry behind the two calls the services make,
// so a span can be ended with the operation's error in one deferred line.
package tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "mediguard"

// Attribute is an OpenTelemetry key-value pair.
type Attribute = attribute.KeyValue

func String(key, value string) Attribute { return attribute.String(key, value) }

func Bool(key string, value bool) Attribute { return attribute.Bool(key, value) }

func Int64(key string, value int64) Attribute { return attribute.Int64(key, value) }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return attribute.Int64(key, value.Milliseconds())
}

// Span is an active span. End must be called exactly once; a non-nil err
// marks the span failed.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans. Implementations are safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanSubmitProof, tracer.String(tracer.AttrRequestID, rid))
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// OTel adapts a trace.Tracer.
type OTel struct {
	tracer trace.Tracer
}

// New wraps t.
func New(t trace.Tracer) *OTel {
	return &OTel{tracer: t}
}

// NewOTel uses the globally installed provider. With none installed the
// global provider is a no-op, so this is safe to call unconditionally.
func NewOTel() *OTel {
	return New(otel.Tracer(instrumentationName))
}

// NewNoop records nothing. Services default to it.
func NewNoop() *OTel {
	return New(noop.NewTracerProvider().Tracer(instrumentationName))
}

func (o *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(attrs...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Span names.
const (
	SpanCreateRequest = "verification.create_request"
	SpanSubmitProof   = "verification.submit_proof"
	SpanRecordAudit   = "verification.record_audit"
	SpanListAudit     = "verification.list_audit"
	SpanSessionStatus = "verification.session_status"
	SpanIssue         = "issuer.issue"
)

// Attribute keys.
const (
	AttrRequestID    = "request_id"
	AttrProviderID   = "provider_id"
	AttrProviderType = "provider_type"
	AttrIssuerID     = "issuer_id"
	AttrCredType     = "credential_type"
	AttrVerified     = "verified"
	AttrLimit        = "limit"
	AttrResultCount  = "result_count"
)

// Event names.
const (
	EventAuditAppended  = "audit.appended"
	EventAuditPublished = "audit.published"
)

var _ Tracer = (*OTel)(nil)
