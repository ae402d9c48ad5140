// Package multi provides a sender that fans out to multiple senders.
// All senders receive every batch; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

// multiSender fans out to multiple senders.
type multiSender struct {
	senders []notifier.Sender
}

// NewSender creates a sender that delivers to multiple senders, for example
// the blocking sender plus a local cxdb archive. Errors are aggregated via
// errors.Join.
func NewSender(senders ...notifier.Sender) notifier.Sender {
	return &multiSender{
		senders: senders,
	}
}

// Send delivers the batch to all senders, collecting any errors.
// All senders are called even if some return errors.
func (s *multiSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	var errs []error
	for _, sender := range s.senders {
		if err := sender.Send(ctx, accessToken, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all senders, collecting any errors.
func (s *multiSender) Close() error {
	var errs []error
	for _, sender := range s.senders {
		if err := sender.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
