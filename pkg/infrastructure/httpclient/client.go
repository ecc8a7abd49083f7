// Package httpclient builds the retrying HTTP client shared by the Telegram
// and mcsrvstat integrations.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Observer receives one call per logical request, after retries.
// status is zero when no response was received.
type Observer interface {
	ObserveRequest(api, method string, status int, err error, elapsed time.Duration)
}

// Options configures a Client
type Options struct {
	// API labels metrics and log lines, e.g. "telegram"
	API string

	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string

	// Secrets are replaced with "<redacted>" in logs and errors
	Secrets []string

	Logger   zerolog.Logger
	Observer Observer
}

// Client wraps retryablehttp.Client with redaction and observation
type Client struct {
	api       string
	userAgent string
	http      *retryablehttp.Client
	redactor  *strings.Replacer
	observer  Observer
	tracer    trace.Tracer
}

// New creates a Client from opts. Zero values take retryablehttp defaults.
func New(opts Options) *Client {
	redactor := newRedactor(opts.Secrets)

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = opts.Timeout
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.Logger = &leveledLogger{
		logger:   opts.Logger.With().Str("component", "http").Str("api", opts.API).Logger(),
		redactor: redactor,
	}
	// Hand the final response back instead of a generic "giving up" error so
	// callers can read the API's error body.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		api:       opts.API,
		userAgent: opts.UserAgent,
		http:      rc,
		redactor:  redactor,
		observer:  opts.Observer,
		tracer:    otel.Tracer("github.com/craftwatch/statusbot/pkg/infrastructure/httpclient"),
	}
}

// Do sends the request. method is the logical API method used for metrics,
// not the HTTP verb. The URL is never recorded since it may carry a secret.
func (c *Client) Do(ctx context.Context, method, httpMethod, url string, body interface{}, contentType string) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, c.api+"."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("api", c.api),
			attribute.String("api.method", method),
			attribute.String("http.method", httpMethod),
		))
	defer span.End()

	req, err := retryablehttp.NewRequestWithContext(ctx, httpMethod, url, body)
	if err != nil {
		return nil, c.Redact(fmt.Errorf("build request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.observer != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.observer.ObserveRequest(c.api, method, status, err, time.Since(start))
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	if err != nil {
		err = c.Redact(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return resp, err
	}
	return resp, nil
}

// Redact wraps err so its message never contains a configured secret.
func (c *Client) Redact(err error) error {
	if err == nil || c.redactor == nil {
		return err
	}
	return &redactedError{err: err, msg: c.redactor.Replace(err.Error())}
}

type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func newRedactor(secrets []string) *strings.Replacer {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, "<redacted>")
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return strings.NewReplacer(pairs...)
}
