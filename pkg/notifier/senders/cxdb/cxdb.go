// Package cxdb provides a sender that archives payloads to cxdb as
// SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/diag-notifier/pkg/notifier"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// SenderOption configures the cxdb sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	contextID *uint64
	labels    []string
	clientTag string
}

// WithContextID appends every payload to an existing context instead of
// creating one context per batch.
func WithContextID(id uint64) SenderOption {
	return func(c *senderConfig) {
		c.contextID = &id
	}
}

// WithLabels sets labels for the contexts created by the sender.
func WithLabels(labels []string) SenderOption {
	return func(c *senderConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag for the contexts created by the sender.
func WithClientTag(tag string) SenderOption {
	return func(c *senderConfig) {
		c.clientTag = tag
	}
}

// cxdbSender writes payloads to cxdb as SystemMessage items.
type cxdbSender struct {
	client    CXDBClient
	contextID *uint64
	labels    []string
	clientTag string
}

// NewSender creates a sender that writes to cxdb.
func NewSender(client CXDBClient, opts ...SenderOption) notifier.Sender {
	cfg := &senderConfig{
		labels:    []string{"diagnostics"},
		clientTag: notifier.NotifierName,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSender{
		client:    client,
		contextID: cfg.contextID,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
	}
}

// Send persists every payload of the batch as one turn. Without a fixed
// context the batch gets a fresh context labelled on its first turn.
func (s *cxdbSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	if len(batch) == 0 {
		return nil
	}

	var contextID uint64
	isNew := false

	if s.contextID != nil {
		contextID = *s.contextID
	} else {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		contextID = head.ContextID
		isNew = true
	}

	for i, p := range batch {
		item := s.buildConversationItem(p, isNew && i == 0)

		// Encode to msgpack using the official cxdb encoder.
		payload, err := cxdbclient.EncodeMsgpack(item)
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", p.Data.UUID(), err)
		}

		req := &cxdbclient.AppendRequest{
			ContextID:      contextID,
			ParentTurnID:   0,
			TypeID:         cxdtypes.TypeIDConversationItem,
			TypeVersion:    cxdtypes.TypeVersionConversationItem,
			Payload:        payload,
			IdempotencyKey: p.Data.UUID(),
		}
		if _, err := s.client.AppendTurn(ctx, req); err != nil {
			return fmt.Errorf("append turn %s: %w", p.Data.UUID(), err)
		}
	}
	return nil
}

// buildConversationItem creates a canonical ConversationItem from a payload.
func (s *cxdbSender) buildConversationItem(p *notifier.Payload, first bool) *cxdtypes.ConversationItem {
	var timestamp int64
	if ts, ok := p.Data["timestamp"].(int64); ok {
		timestamp = ts * 1000
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: timestamp,
		ID:        p.Data.UUID(),
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   buildTitle(p.Data),
			Content: buildDetails(p.Data),
		},
	}

	// cxdb expects context metadata on the first turn.
	if first {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.labels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// buildTitle returns data.title, or "level: summary" truncated to 100 chars.
func buildTitle(data notifier.Data) string {
	if title, ok := data["title"].(string); ok && title != "" {
		return truncate(title, 100)
	}

	title := string(data.Level())
	if msg := summary(data); msg != "" {
		title += ": " + truncate(msg, 80)
	}
	return truncate(title, 100)
}

func summary(data notifier.Data) string {
	body := data.Body()
	if trace, ok := body["trace"].(notifier.Trace); ok {
		return trace.Exception.Class + ": " + trace.Exception.Message
	}
	if chain, ok := body["trace_chain"].([]notifier.Trace); ok && len(chain) > 0 {
		return chain[0].Exception.Class + ": " + chain[0].Exception.Message
	}
	if msg, ok := body["message"].(map[string]any); ok {
		text, _ := msg["body"].(string)
		return text
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// buildDetails encodes data as JSON for SystemMessage.Content. The access
// token is not part of data and never reaches cxdb.
func buildDetails(data notifier.Data) string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		// Fallback to simple error message
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

// Close is a no-op for the cxdb sender.
func (s *cxdbSender) Close() error {
	return nil
}
