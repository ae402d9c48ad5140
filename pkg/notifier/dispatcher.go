// dispatcher.go routes batches to the sender chosen by the handler mode.

package notifier

import (
	"context"
	"fmt"
)

// dispatcher sends batches through the sender registered for its mode. The
// mode is fixed when the notifier is created.
type dispatcher struct {
	handler HandlerMode
	sender  Sender
	metrics *Metrics
}

func newDispatcher(handler HandlerMode, senders map[HandlerMode]Sender, m *Metrics) *dispatcher {
	sender := senders[handler]
	if sender == nil {
		sender = &discardSender{}
	}
	return &dispatcher{handler: handler, sender: sender, metrics: m}
}

// dispatch delivers the batch. Failures are wrapped in DeliveryError; the batch
// is not retried.
func (d *dispatcher) dispatch(ctx context.Context, accessToken string, batch []*Payload) error {
	if len(batch) == 0 {
		return nil
	}
	if err := d.sender.Send(ctx, accessToken, batch); err != nil {
		d.metrics.batch(d.handler, false)
		d.metrics.dropped(dropDelivery, len(batch))
		return &DeliveryError{Handler: d.handler, Count: len(batch), Err: err}
	}
	d.metrics.batch(d.handler, true)
	return nil
}

func (d *dispatcher) close() error {
	if err := d.sender.Close(); err != nil {
		return fmt.Errorf("close %s sender: %w", d.handler, err)
	}
	return nil
}
