package config

import (
	"go.uber.org/zap"

	"github.com/strongdm/diag-notifier/pkg/notifier"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/agent"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/blocking"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/multi"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/stderr"
)

// Build creates a Notifier with the sender for the configured handler. Extra
// options are applied after the ones derived from cfg.
func Build(cfg *Config, logger *zap.Logger, opts ...notifier.Option) (*notifier.Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ncfg := cfg.ToNotifier()
	sender, err := NewSender(cfg, logger)
	if err != nil {
		return nil, err
	}

	base := []notifier.Option{
		notifier.WithSender(ncfg.Handler, sender),
		notifier.WithLogger(logger),
	}
	return notifier.New(ncfg, append(base, opts...)...), nil
}

// NewSender creates the sender for the configured handler, mirrored to
// stderr when Debug is set.
func NewSender(cfg *Config, logger *zap.Logger) (notifier.Sender, error) {
	var (
		sender notifier.Sender
		err    error
	)
	switch notifier.HandlerMode(cfg.Notifier.Handler) {
	case notifier.HandlerAgent:
		sender, err = agent.NewSender(cfg.Agent.Dir,
			agent.WithMaxSize(cfg.Agent.MaxSizeMB),
			agent.WithMaxBackups(cfg.Agent.MaxBackups),
		)
		if err != nil {
			return nil, &ConfigError{Type: ErrSender, Message: "failed to create agent sender", Err: err}
		}
	default:
		opts := []blocking.SenderOption{
			blocking.WithEndpoint(cfg.Blocking.Endpoint),
			blocking.WithTimeout(cfg.Blocking.Timeout),
			blocking.WithLogger(logger),
		}
		if cfg.Blocking.Gzip {
			opts = append(opts, blocking.WithGzip())
		}
		sender = blocking.NewSender(opts...)
	}

	if cfg.Debug {
		sender = multi.NewSender(sender, stderr.NewSender(stderr.WithVerbose()))
	}
	return sender, nil
}
