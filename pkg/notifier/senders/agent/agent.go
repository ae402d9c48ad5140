// Package agent provides the sender for agent mode: payloads are appended to
// a local relay file that a separate agent process ships to the collector.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

const (
	// FileExtension is the suffix the agent watches for.
	FileExtension = ".rollbar"

	// DefaultMaxSizeMB rotates the relay file once it reaches this size.
	DefaultMaxSizeMB = 10
)

// SenderOption configures the agent sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	maxSizeMB  int
	maxBackups int
	now        func() time.Time
}

// WithMaxSize sets the rotation size in megabytes.
func WithMaxSize(mb int) SenderOption {
	return func(c *senderConfig) {
		c.maxSizeMB = mb
	}
}

// WithMaxBackups limits how many rotated relay files are kept. Zero keeps all
// of them, which is what an agent that deletes processed files expects.
func WithMaxBackups(n int) SenderOption {
	return func(c *senderConfig) {
		c.maxBackups = n
	}
}

// agentSender appends payloads to the relay file.
type agentSender struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
}

// NewSender creates a sender writing to {dir}/rollbar-relay.{pid}.{unix}.rollbar.
// dir is created if it does not exist.
func NewSender(dir string, opts ...SenderOption) (notifier.Sender, error) {
	cfg := &senderConfig{
		maxSizeMB: DefaultMaxSizeMB,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if dir == "" {
		return nil, errors.New("agent relay directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create relay directory: %w", err)
	}

	return &agentSender{
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(dir, RelayFileName(os.Getpid(), cfg.now())),
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
		},
	}, nil
}

// RelayFileName returns the relay file name for a process started at t.
func RelayFileName(pid int, t time.Time) string {
	return fmt.Sprintf("rollbar-relay.%d.%d%s", pid, t.Unix(), FileExtension)
}

// Send writes one JSON line per payload with a single append.
func (s *agentSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range batch {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode payload %s: %w", p.Data.UUID(), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append relay file: %w", err)
	}
	return nil
}

// Close closes the relay file.
func (s *agentSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
