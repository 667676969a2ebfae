package apm

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Fail records err on span, marks it errored and hands err back so callers
// can return it in one line. A nil err leaves the span alone.
func Fail(span trace.Span, err error, desc string) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if desc == "" {
		desc = err.Error()
	}
	span.SetStatus(codes.Error, desc)
	return err
}
