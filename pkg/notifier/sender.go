// sender.go defines the Sender interface for delivery transports.

package notifier

import "context"

// Sender delivers a batch of payloads. Implementations live in the senders/
// subpackages (blocking, agent, cxdb, multi, noop, stderr).
type Sender interface {
	// Send delivers the batch. A batch holds one payload in immediate mode.
	// Any timeout or cancellation policy belongs to the implementation.
	Send(ctx context.Context, accessToken string, batch []*Payload) error

	// Close releases resources held by the sender.
	Close() error
}

// discardSender drops every batch.
type discardSender struct{}

func (s *discardSender) Send(ctx context.Context, accessToken string, batch []*Payload) error {
	return nil
}

func (s *discardSender) Close() error {
	return nil
}
