// Package httpclient provides an instrumented HTTP client with OTEL tracing and metrics.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceOption selects which bodies are attached to spans.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

type clientOptions struct {
	name      string
	baseURL   string
	timeout   time.Duration
	headers   map[string]string
	transport http.RoundTripper
	tracer    trace.Tracer
	traceReq  bool
	traceResp bool
	maxBody   int64
}

// ClientOption configures NewInstrumentedClient.
type ClientOption func(*clientOptions)

// WithProviderName names the client in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) { o.name = name }
}

// WithBaseURL resolves relative request paths against url.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithRequestTimeout bounds each request, including reading the body.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) { o.headers = headers }
}

// WithRoundTripper replaces the pooled default transport.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) { o.transport = rt }
}

// WithMaxBodySize caps how much of a response body is read.
func WithMaxBodySize(n int64) ClientOption {
	return func(o *clientOptions) { o.maxBody = n }
}

// WithTraceOptions sets the tracer and which bodies are recorded on spans.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
		for _, opt := range opts {
			o.traceReq = o.traceReq || opt == TraceRequest
			o.traceResp = o.traceResp || opt == TraceResponse
		}
	}
}

// ResponseErrorHandler turns a response into an error. A non-nil error is
// returned from the request alongside the response.
type ResponseErrorHandler func(statusCode int, body []byte) error

// Label is an extra metric attribute for one request.
type Label struct {
	Key   string
	Value string
}

// NewLabel creates a new label.
func NewLabel(key, value string) *Label {
	return &Label{Key: key, Value: value}
}

type requestOptions struct {
	onResponse    ResponseErrorHandler
	labels        []*Label
	logHeaders    bool
	redactHeaders []string
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// WithResponseErrorHandler installs handler for the request.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) { o.onResponse = handler }
}

// WithLabels attaches labels to the request's metrics.
func WithLabels(labels ...*Label) RequestOption {
	return func(o *requestOptions) { o.labels = append(o.labels, labels...) }
}

// WithHeadersLogConfig records request headers on the span, masking the
// redacted ones.
func WithHeadersLogConfig(enable bool, redact ...string) RequestOption {
	return func(o *requestOptions) {
		o.logHeaders = enable
		o.redactHeaders = redact
	}
}
