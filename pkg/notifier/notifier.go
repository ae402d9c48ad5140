// notifier.go provides the public entry points and failure containment.

package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Option configures a Notifier.
type Option func(*options)

type options struct {
	senders  map[HandlerMode]Sender
	provider RequestContextProvider
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
	newUUID  func() string
}

// WithSender registers the sender used when Config.Handler is mode.
func WithSender(mode HandlerMode, s Sender) Option {
	return func(o *options) {
		o.senders[mode] = s
	}
}

// WithBlockingSender registers the sender for HandlerBlocking.
func WithBlockingSender(s Sender) Option {
	return WithSender(HandlerBlocking, s)
}

// WithAgentSender registers the sender for HandlerAgent.
func WithAgentSender(s Sender) Option {
	return WithSender(HandlerAgent, s)
}

// WithRequestProvider replaces the default provider, which reads the request
// attached to the context with WithHTTPRequest or WithRequestState.
func WithRequestProvider(p RequestContextProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithLogger sets the logger used for internal failures (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables delivery counters.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// withClock overrides time and uuid generation in tests.
func withClock(now func() time.Time, newUUID func() string) Option {
	return func(o *options) {
		o.now = now
		o.newUUID = newUUID
	}
}

// Notifier reports events. It is meant to live for one process or request
// scope and is not safe for concurrent use while batching.
type Notifier struct {
	cfg        Config
	disabled   bool
	builder    *builder
	queue      *Queue
	dispatcher *dispatcher
	logger     *zap.Logger
	metrics    *Metrics
}

// New creates a Notifier. An invalid access token does not fail construction:
// the notifier is disabled and every report returns "".
func New(cfg Config, opts ...Option) *Notifier {
	o := &options{
		senders:  make(map[HandlerMode]Sender),
		provider: contextRequestProvider{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.withDefaults()
	logger := o.logger.With(zap.String("component", "notifier"))

	n := &Notifier{
		cfg:     cfg,
		logger:  logger,
		metrics: o.metrics,
	}

	if !ValidAccessToken(cfg.AccessToken) {
		logger.Warn("reporting disabled", zap.Error(ErrInvalidAccessToken))
		n.disabled = true
		return n
	}

	rules, err := ParseScrubRules(cfg.ScrubFields)
	if err != nil {
		logger.Warn("scrub fields used as exact names", zap.Error(err))
	}

	c := &capturer{
		provider:   o.provider,
		rules:      rules,
		person:     cfg.Person,
		personFunc: cfg.PersonFunc,
	}
	n.builder = newBuilder(cfg, c)
	if o.now != nil {
		n.builder.now = o.now
	}
	if o.newUUID != nil {
		n.builder.newUUID = o.newUUID
	}

	n.dispatcher = newDispatcher(cfg.Handler, o.senders, o.metrics)
	n.queue = NewQueue(cfg.BatchSize, func(ctx context.Context, batch []*Payload) error {
		return n.dispatcher.dispatch(ctx, cfg.AccessToken, batch)
	})
	return n
}

// AccessToken returns the configured access token.
func (n *Notifier) AccessToken() string { return n.cfg.AccessToken }

// Environment returns the configured environment name.
func (n *Notifier) Environment() string { return n.cfg.Environment }

// Disabled reports whether the notifier was disabled by its configuration.
func (n *Notifier) Disabled() bool { return n.disabled }

// ReportMessage reports a text message. level defaults to LevelInfo. extra is
// merged into body.message; overrides replace top-level data keys such as
// title or level (body and uuid cannot be overridden).
//
// It returns the payload uuid, or "" if the event was not accepted.
func (n *Notifier) ReportMessage(ctx context.Context, msg string, level Level, extra, overrides map[string]any) string {
	ev := event{kind: kindMessage, message: msg, level: level}
	return n.report(ctx, "report message", ev, extra, overrides)
}

// ReportError reports err and its Unwrap chain. extra is attached to the
// outermost trace entry only. It returns the payload uuid, or "".
func (n *Notifier) ReportError(ctx context.Context, err error, extra, overrides map[string]any) string {
	if err == nil {
		return ""
	}
	ev := event{kind: kindError, err: err}
	return n.report(ctx, "report error", ev, extra, overrides)
}

// ReportRuntimeError reports a runtime error such as a recovered panic. It
// returns the payload uuid, or "".
func (n *Notifier) ReportRuntimeError(ctx context.Context, rt RuntimeError) string {
	ev := event{kind: kindRuntimeError, runtime: rt}
	return n.report(ctx, "report runtime error", ev, nil, nil)
}

// Flush delivers every queued payload. Delivery failures are logged and the
// payloads dropped.
func (n *Notifier) Flush(ctx context.Context) {
	if n.disabled {
		return
	}
	defer n.contain("flush")
	if err := n.queue.Flush(ctx); err != nil {
		n.logger.Error("flush failed", zap.Error(err))
	}
	n.metrics.setQueueSize(n.queue.Size())
}

// QueueSize returns the number of payloads waiting for a flush.
func (n *Notifier) QueueSize() int {
	if n.disabled {
		return 0
	}
	return n.queue.Size()
}

// Close flushes the queue and closes the configured sender.
func (n *Notifier) Close(ctx context.Context) {
	if n.disabled {
		return
	}
	n.Flush(ctx)
	defer n.contain("close")
	if err := n.dispatcher.close(); err != nil {
		n.logger.Error("close failed", zap.Error(err))
	}
}

// report is the containment boundary shared by all report entry points.
func (n *Notifier) report(ctx context.Context, op string, ev event, extra, overrides map[string]any) (id string) {
	if n.disabled {
		n.metrics.dropped(dropDisabled, 1)
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			n.metrics.dropped(dropCapture, 1)
			n.logger.Error(op+" failed", zap.Error(&CaptureError{Stage: "panic", Err: fmt.Errorf("%v", r)}))
			id = ""
		}
	}()

	id, err := n.process(ctx, ev, extra, overrides)
	if err != nil {
		n.logger.Error(op+" failed", zap.Error(err))
		return ""
	}
	return id
}

func (n *Notifier) process(ctx context.Context, ev event, extra, overrides map[string]any) (string, error) {
	p, err := n.builder.build(ctx, ev, extra, overrides)
	if err != nil {
		n.metrics.dropped(dropCapture, 1)
		return "", err
	}
	if n.cfg.CheckIgnore != nil && n.cfg.CheckIgnore(p) {
		n.metrics.dropped(dropIgnored, 1)
		n.logger.Debug("payload ignored", zap.String("uuid", p.Data.UUID()))
		return "", nil
	}
	n.metrics.reportedItem(p.Data.Level())

	if !n.cfg.Batched {
		if err := n.dispatcher.dispatch(ctx, n.cfg.AccessToken, []*Payload{p}); err != nil {
			return "", err
		}
		return p.Data.UUID(), nil
	}

	// The payload is queued even when the flush of earlier payloads fails;
	// only those earlier payloads are lost.
	if err := n.queue.Enqueue(ctx, p); err != nil {
		n.logger.Error("flush failed", zap.Error(err))
	}
	n.metrics.setQueueSize(n.queue.Size())
	return p.Data.UUID(), nil
}

// contain recovers a panic from flush or close and logs it.
func (n *Notifier) contain(op string) {
	if r := recover(); r != nil {
		n.logger.Error(op+" failed", zap.Error(fmt.Errorf("panic: %v", r)))
	}
}
