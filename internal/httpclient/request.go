package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request is a one-shot request builder.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)
	Send(ctx context.Context, method, path string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetQueryParams(params map[string]string) Request
	SetResult(result any) Request
}

// Response is a fully read HTTP response.
type Response struct {
	*http.Response
	body      []byte
	decodeErr error
}

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

// String returns the response body as a string.
func (r *Response) String() string { return string(r.body) }

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// DecodeErr is the error from decoding into the SetResult target. It does
// not fail the request.
func (r *Response) DecodeErr() error { return r.decodeErr }

type requestBuilder struct {
	client  *InstrumentedClient
	opts    requestOptions
	headers map[string]string
	query   map[string]string
	body    any
	result  any
}

func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.query[key] = value
	return r
}

func (r *requestBuilder) SetQueryParams(params map[string]string) Request {
	for k, v := range params {
		r.query[k] = v
	}
	return r
}

func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.Send(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.Send(ctx, http.MethodPost, path)
}

// Send executes the request. Transport failures return a nil response;
// an error from the response handler is returned with the response.
func (r *requestBuilder) Send(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	ctx, span := c.tracer.Start(ctx, "http.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", path),
		attribute.String("provider", c.opts.name),
	))
	defer span.End()

	start := time.Now()
	resp, err := r.roundTrip(ctx, span, method, path)
	success := err == nil && !resp.IsError()
	r.record(ctx, start, success)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, nil
}

func (r *requestBuilder) roundTrip(ctx context.Context, span trace.Span, method, path string) (*Response, error) {
	req, err := r.build(ctx, span, method, path)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.http.Do(req)
	if err != nil {
		var netErr net.Error
		span.SetAttributes(
			attribute.Bool("context.cancelled", errors.Is(err, context.Canceled)),
			attribute.Bool("request.timeout", errors.As(err, &netErr) && netErr.Timeout()),
		)
		return nil, err
	}
	defer raw.Body.Close()

	body, err := io.ReadAll(io.LimitReader(raw.Body, r.client.opts.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if r.client.opts.traceResp {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(body))))
	}

	resp := &Response{Response: raw, body: body}
	if r.result != nil && len(body) > 0 {
		resp.decodeErr = sonnet.Unmarshal(body, r.result)
	}
	if r.opts.onResponse != nil {
		if err := r.opts.onResponse(raw.StatusCode, body); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (r *requestBuilder) build(ctx context.Context, span trace.Span, method, path string) (*http.Request, error) {
	target, err := r.resolve(path)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch b := r.body.(type) {
	case nil:
	case []byte:
		payload = b
	case string:
		payload = []byte(b)
	default:
		if payload, err = sonnet.Marshal(b); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
	}
	if r.client.opts.traceReq && payload != nil {
		span.AddEvent("request.body", trace.WithAttributes(attribute.String("http.request_body", string(payload))))
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.opts.logHeaders {
		r.traceHeaders(span, req.Header)
	}
	return req, nil
}

// resolve joins path onto the base URL and merges the query parameters.
func (r *requestBuilder) resolve(path string) (string, error) {
	target := path
	if base := r.client.opts.baseURL; base != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, v := range r.query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *requestBuilder) traceHeaders(span trace.Span, headers http.Header) {
	attrs := make([]attribute.KeyValue, 0, len(headers))
	for k := range headers {
		v := headers.Get(k)
		for _, h := range r.opts.redactHeaders {
			if strings.EqualFold(h, k) {
				v = "*****"
			}
		}
		attrs = append(attrs, attribute.String("http.request.header."+strings.ToLower(k), v))
	}
	if len(attrs) > 0 {
		span.AddEvent("request.headers", trace.WithAttributes(attrs...))
	}
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool) {
	attrs := make([]attribute.KeyValue, 0, len(r.opts.labels)+2)
	attrs = append(attrs,
		attribute.String("provider", r.client.opts.name),
		attribute.Bool("success", success),
	)
	for _, l := range r.opts.labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	set := metric.WithAttributes(attrs...)
	r.client.metrics.requests.Add(ctx, 1, set)
	r.client.metrics.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
}
