// Package notifier turns application messages, errors and runtime errors into
// redacted diagnostic payloads and hands them to a delivery transport.
//
// The package captures the ambient request, person and server state at report
// time, flattens error cause chains into trace chains, scrubs sensitive request
// fields and either queues the resulting payload for batched delivery or sends
// it immediately.
//
// # Core Components
//
//   - Payload: the canonical envelope sent to the collector (access token + data)
//   - Notifier: public entry points; contains every internal failure
//   - Queue: FIFO of pending payloads, flushed when the batch size is reached
//   - Sender: delivery transport (blocking HTTP, agent relay file, cxdb, stderr)
//   - ScrubRule: exact or pattern rule used to redact request fields
//
// # Quick Start
//
//	n := notifier.New(cfg,
//	    notifier.WithBlockingSender(blocking.NewSender()),
//	    notifier.WithLogger(logger),
//	)
//	defer n.Close(ctx)
//
//	if id := n.ReportError(ctx, err, nil, nil); id != "" {
//	    logger.Info("reported", zap.String("uuid", id))
//	}
//
// For HTTP handlers, attach the request so it is captured with the event:
//
//	ctx := notifier.WithHTTPRequest(r.Context(), r)
//	defer notifier.Recover(ctx, n)
//
// # Design Principles
//
//   - Reporting never disrupts the host: failures are logged and the call returns ""
//   - Synchronous core: no background goroutines, the queue has no locking
//   - Matched containers are collapsed to a single "*", scalars keep their length
package notifier
