package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"depscope/internal/analysis"
	"depscope/internal/jira"
)

const remoteScopeName = "depscope/remote"

// InstrumentedClient wraps an analysis.RemoteClient with OTel tracing and
// metrics. Every remote call gets a span and is counted in depscope.remote.*
// metrics. Use WrapClient; it returns the client unchanged when telemetry is
// disabled.
type InstrumentedClient struct {
	inner  analysis.RemoteClient
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapClient returns c decorated with OTel instrumentation.
func WrapClient(c analysis.RemoteClient) analysis.RemoteClient {
	if !Enabled() {
		return c
	}
	m := Meter(remoteScopeName)
	ops, _ := m.Int64Counter("depscope.remote.requests",
		metric.WithDescription("Total remote API operations executed"),
	)
	dur, _ := m.Float64Histogram("depscope.remote.duration",
		metric.WithDescription("Remote API operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("depscope.remote.errors",
		metric.WithDescription("Total remote API operation errors"),
	)
	return &InstrumentedClient{
		inner:  c,
		tracer: Tracer(remoteScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and counts the named remote operation.
func (c *InstrumentedClient) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("remote.operation", name)}, attrs...)
	ctx, span := c.tracer.Start(ctx, "remote."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	c.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (c *InstrumentedClient) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	c.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (c *InstrumentedClient) FetchRecord(ctx context.Context, key string, fields []string) (*jira.Record, error) {
	attrs := []attribute.KeyValue{attribute.String("record.key", key)}
	ctx, span, start := c.op(ctx, "FetchRecord", attrs...)
	rec, err := c.inner.FetchRecord(ctx, key, fields)
	c.done(ctx, span, start, err, attrs...)
	return rec, err
}

func (c *InstrumentedClient) SearchRecords(ctx context.Context, query string, page jira.Page) (*jira.SearchResult, error) {
	ctx, span, start := c.op(ctx, "SearchRecords")
	result, err := c.inner.SearchRecords(ctx, query, page)
	c.done(ctx, span, start, err)
	return result, err
}

func (c *InstrumentedClient) FetchDocument(ctx context.Context, id string) (*jira.Document, error) {
	attrs := []attribute.KeyValue{attribute.String("document.id", id)}
	ctx, span, start := c.op(ctx, "FetchDocument", attrs...)
	doc, err := c.inner.FetchDocument(ctx, id)
	c.done(ctx, span, start, err, attrs...)
	return doc, err
}
