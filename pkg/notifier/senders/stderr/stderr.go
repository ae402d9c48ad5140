// Package stderr provides a sender that prints payloads in human-readable
// format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

// SenderOption configures the stderr sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full details including stack frames.
func WithVerbose() SenderOption {
	return func(c *senderConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output away from os.Stderr.
func WithWriter(w io.Writer) SenderOption {
	return func(c *senderConfig) {
		c.out = w
	}
}

// stderrSender writes payloads to stderr in human-readable format.
type stderrSender struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewSender creates a sender that writes to stderr.
func NewSender(opts ...SenderOption) notifier.Sender {
	cfg := &senderConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSender{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Send formats and outputs every payload of the batch.
func (s *stderrSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range batch {
		s.write(p)
	}
	return nil
}

func (s *stderrSender) write(p *notifier.Payload) {
	data := p.Data
	level := strings.ToUpper(string(data.Level()))

	// Format: [NOTIFIER] <timestamp> <LEVEL> <summary> (env: <environment>)
	var timestamp string
	if ts, ok := data["timestamp"].(int64); ok {
		timestamp = time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	parts := []string{fmt.Sprintf("[NOTIFIER] %s %s %s", timestamp, level, summary(data))}
	if env, _ := data["environment"].(string); env != "" {
		parts = append(parts, fmt.Sprintf("(env: %s)", env))
	}
	fmt.Fprintln(s.out, strings.Join(parts, " "))

	if title, _ := data["title"].(string); title != "" {
		fmt.Fprintf(s.out, "        Title: %s\n", title)
	}
	if id := data.UUID(); id != "" {
		fmt.Fprintf(s.out, "        UUID: %s\n", id)
	}
	if fp, _ := data["fingerprint"].(string); fp != "" {
		fmt.Fprintf(s.out, "        Fingerprint: %s\n", fp)
	}
	if request, ok := data["request"].(map[string]any); ok {
		fmt.Fprintf(s.out, "        Request: %v %v\n", request["method"], request["url"])
	}

	// Frames (only in verbose mode), newest first like a Go stack dump
	if trace, ok := firstTrace(data); ok && s.verbose && len(trace.Frames) > 0 {
		fmt.Fprintf(s.out, "        Frames:\n")
		for i := len(trace.Frames) - 1; i >= 0; i-- {
			f := trace.Frames[i]
			fmt.Fprintf(s.out, "          %s (%s:%d)\n", f.Method, f.Filename, f.Lineno)
		}
	}
}

// summary returns "class: message" for traces and the text for messages.
func summary(data notifier.Data) string {
	if trace, ok := firstTrace(data); ok {
		return trace.Exception.Class + ": " + trace.Exception.Message
	}
	if msg, ok := data.Body()["message"].(map[string]any); ok {
		text, _ := msg["body"].(string)
		return text
	}
	return ""
}

func firstTrace(data notifier.Data) (notifier.Trace, bool) {
	body := data.Body()
	if trace, ok := body["trace"].(notifier.Trace); ok {
		return trace, true
	}
	if chain, ok := body["trace_chain"].([]notifier.Trace); ok && len(chain) > 0 {
		return chain[0], true
	}
	return notifier.Trace{}, false
}

// Close is a no-op for the stderr sender.
func (s *stderrSender) Close() error {
	return nil
}
