// Package blocking provides the synchronous HTTP sender. Each Send posts the
// batch to the collector and returns once the collector has answered.
package blocking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

const (
	// DefaultEndpoint is the collector base URL. Paths item/ and item_batch
	// are resolved against it.
	DefaultEndpoint = "https://api.rollbar.com/api/1/"

	// DefaultTimeout bounds one delivery, including connection setup.
	DefaultTimeout = 3 * time.Second

	// AccessTokenHeader carries the project access token.
	AccessTokenHeader = "X-Rollbar-Access-Token"

	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// ErrUnexpectedStatus is wrapped by errors for non-2xx collector responses.
var ErrUnexpectedStatus = errors.New("unexpected collector status")

// SenderOption configures the blocking sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	gzip       bool
	breaker    *gobreaker.CircuitBreaker[int]
	logger     *zap.Logger
}

// WithEndpoint overrides DefaultEndpoint. A trailing slash is added if missing.
func WithEndpoint(endpoint string) SenderOption {
	return func(c *senderConfig) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the default client. Its Timeout is left untouched.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(c *senderConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) SenderOption {
	return func(c *senderConfig) {
		c.timeout = d
	}
}

// WithGzip compresses request bodies.
func WithGzip() SenderOption {
	return func(c *senderConfig) {
		c.gzip = true
	}
}

// WithBreaker replaces the default circuit breaker. Useful for tests or when
// several senders share one collector.
func WithBreaker(cb *gobreaker.CircuitBreaker[int]) SenderOption {
	return func(c *senderConfig) {
		c.breaker = cb
	}
}

// WithLogger logs breaker state changes.
func WithLogger(logger *zap.Logger) SenderOption {
	return func(c *senderConfig) {
		c.logger = logger
	}
}

// blockingSender posts payloads to the collector.
type blockingSender struct {
	endpoint string
	client   *http.Client
	gzip     bool
	breaker  *gobreaker.CircuitBreaker[int]
	logger   *zap.Logger
}

// NewSender creates a blocking sender.
func NewSender(opts ...SenderOption) notifier.Sender {
	cfg := &senderConfig{
		endpoint: DefaultEndpoint,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := cfg.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}
	endpoint := cfg.endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	logger := cfg.logger.With(zap.String("component", "blocking_sender"))
	breaker := cfg.breaker
	if breaker == nil {
		breaker = NewBreaker("collector", logger)
	}

	return &blockingSender{
		endpoint: endpoint,
		client:   client,
		gzip:     cfg.gzip,
		breaker:  breaker,
		logger:   logger,
	}
}

// NewBreaker returns the default breaker: it opens after more than five
// consecutive transport failures, 5xx or 429 responses and probes again
// after 30 seconds.
func NewBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[int] {
	return gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Send posts a single payload to item/ and several to item_batch.
func (s *blockingSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	if len(batch) == 0 {
		return nil
	}

	var (
		url string
		doc any
	)
	if len(batch) == 1 {
		url = s.endpoint + "item/"
		doc = batch[0]
	} else {
		url = s.endpoint + "item_batch"
		doc = batch
	}

	body, err := s.encode(doc)
	if err != nil {
		return err
	}

	status, err := s.breaker.Execute(func() (int, error) {
		return s.post(ctx, url, accessToken, body)
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("post %s: %w %d", url, ErrUnexpectedStatus, status)
	}
	return nil
}

func (s *blockingSender) encode(doc any) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if !s.gzip {
		return raw, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	return buf.Bytes(), nil
}

// post performs one request. Transport failures, 5xx and 429 count against
// the breaker; other statuses are returned for the caller to judge.
func (s *blockingSender) post(ctx context.Context, url, accessToken string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AccessTokenHeader, accessToken)
	req.Header.Set("User-Agent", notifier.NotifierName+"/"+notifier.Version)
	if s.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Close releases idle connections.
func (s *blockingSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
