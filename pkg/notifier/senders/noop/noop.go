// Package noop provides a no-operation sender that discards all payloads.
// Useful for testing and for disabling delivery while keeping capture on.
package noop

import (
	"context"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

// noopSender discards all payloads.
type noopSender struct{}

// NewSender creates a sender that discards all payloads.
// All methods return nil and perform no operations.
func NewSender() notifier.Sender {
	return &noopSender{}
}

// Send discards the batch and returns nil.
func (s *noopSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	return nil
}

// Close is a no-op and returns nil.
func (s *noopSender) Close() error {
	return nil
}
