// Package influxdb delivers line protocol batches to an InfluxDB v2 write
// endpoint.
package influxdb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/metrics"
)

// DefaultTimeout bounds a single write request.
const DefaultTimeout = 60 * time.Second

const (
	contentType = "text/plain; charset=utf-8"
	accept      = "application/json"
)

// Config names the write endpoint and how to authenticate against it.
type Config struct {
	URI    string
	Bucket string
	Org    string
	Token  string

	// TLSConfig is used for https endpoints. Nil means the platform
	// defaults.
	TLSConfig *tls.Config

	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
}

// Metrics registers the gauge the sink reports delivery status on.
type Metrics interface {
	NewGauge(name, helpText string, opts ...metrics.MetricOption) metrics.Gauge
}

// Sink posts one batch per call. It is fire and forget: any HTTP response
// counts as delivered and nothing is retried.
type Sink struct {
	url     *url.URL
	target  string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	log     *log.Logger

	headersOnce sync.Once
	headers     [][2]string

	lastStatus metrics.Gauge
}

// NewSink validates the endpoint and bakes the bucket, org and precision
// query parameters into it.
func NewSink(cfg Config, m Metrics, log *log.Logger) (*Sink, error) {
	u, err := WriteURL(cfg.URI, cfg.Bucket, cfg.Org)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Credentials in the URI would replace the token header.
	target := *u
	target.User = nil

	return &Sink{
		url:     u,
		target:  target.String(),
		token:   cfg.Token,
		timeout: timeout,
		client:  httpClient(cfg.TLSConfig, timeout),
		log:     log,
		lastStatus: m.NewGauge(
			"last_delivery_status",
			"HTTP status of the most recent delivery, 0 when no response was received.",
		),
	}, nil
}

// WriteURL parses uri and appends the bucket, org and precision=ms query
// parameters. The URI must be an absolute http or https URL.
func WriteURL(uri, bucket, org string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid InfluxDB URI: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid InfluxDB URI %q: scheme must be http or https", u.Redacted())
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid InfluxDB URI %q: missing host", u.Redacted())
	}

	q := url.Values{}
	q.Add("bucket", bucket)
	q.Add("org", org)
	q.Add("precision", "ms")

	if u.RawQuery == "" {
		u.RawQuery = q.Encode()
	} else {
		u.RawQuery += "&" + q.Encode()
	}
	return u, nil
}

// URL is the effective write endpoint, credentials redacted.
func (s *Sink) URL() string {
	return s.url.Redacted()
}

// Timeout is the upper bound of a single write request.
func (s *Sink) Timeout() time.Duration {
	return s.timeout
}

// Send posts payload as the request body. The request gives up after the
// configured timeout or the context deadline, whichever comes first.
func (s *Sink) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.target)
	req.Header.SetMethod(fasthttp.MethodPost)
	for _, h := range s.buildHeaders() {
		req.Header.Set(h[0], h[1])
	}
	req.SetBody(payload)

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		s.lastStatus.Set(0)
		return s.sanitizeError(err)
	}

	status := resp.StatusCode()
	s.lastStatus.Set(float64(status))
	s.log.Infof("[InfluxDB] <%d %s %s>", status, fasthttp.StatusMessage(status), s.URL())
	return nil
}

func (s *Sink) buildHeaders() [][2]string {
	s.headersOnce.Do(func() {
		s.headers = [][2]string{
			{fasthttp.HeaderContentType, contentType},
			{fasthttp.HeaderAccept, accept},
			{fasthttp.HeaderAuthorization, "Token " + s.token},
		}
	})
	return s.headers
}

func (s *Sink) sanitizeError(err error) error {
	msg := err.Error()
	if s.token != "" {
		msg = strings.ReplaceAll(msg, s.token, "<REDACTED>")
	}

	if s.url.User != nil {
		if user := s.url.User.Username(); user != "" {
			msg = strings.ReplaceAll(msg, user, "<REDACTED>")
		}
		if p, ok := s.url.User.Password(); ok && p != "" {
			msg = strings.ReplaceAll(msg, p, "<REDACTED>")
		}
	}

	if msg == err.Error() {
		return fmt.Errorf("failed to post to %s: %w", s.URL(), err)
	}
	return fmt.Errorf("failed to post to %s: %w", s.URL(), errors.New(msg))
}

func httpClient(tlsConfig *tls.Config, timeout time.Duration) *fasthttp.Client {
	return &fasthttp.Client{
		Name:                "sysmon-agent",
		MaxConnsPerHost:     5,
		MaxIdleConnDuration: 90 * time.Second,
		TLSConfig:           tlsConfig,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
	}
}
