package multi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/strongdm/diag-notifier/pkg/notifier"
)

// mockSender is a test sender that tracks calls and can return errors.
type mockSender struct {
	mu       sync.Mutex
	batches  [][]*notifier.Payload
	sendErr  error
	closeErr error
	closed   bool
}

func (s *mockSender) Send(ctx context.Context, accessToken string, batch []*notifier.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *mockSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *mockSender) getBatches() [][]*notifier.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([][]*notifier.Payload, len(s.batches))
	copy(result, s.batches)
	return result
}

func (s *mockSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testBatch(id string) []*notifier.Payload {
	return []*notifier.Payload{{AccessToken: "token", Data: notifier.Data{"uuid": id}}}
}

func TestMultiSender_ImplementsSenderInterface(t *testing.T) {
	var _ notifier.Sender = NewSender()
}

func TestMultiSender_Send_CallsAllSenders(t *testing.T) {
	sender1 := &mockSender{}
	sender2 := &mockSender{}
	sender3 := &mockSender{}
	multi := NewSender(sender1, sender2, sender3)

	err := multi.Send(context.Background(), "token", testBatch("evt-123"))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	// All senders should receive the batch
	for i, sender := range []*mockSender{sender1, sender2, sender3} {
		batches := sender.getBatches()
		if len(batches) != 1 {
			t.Errorf("sender%d: expected 1 batch, got %d", i+1, len(batches))
		}
		if len(batches) > 0 && batches[0][0].Data.UUID() != "evt-123" {
			t.Errorf("sender%d: wrong payload uuid", i+1)
		}
	}
}

func TestMultiSender_Send_AggregatesErrors(t *testing.T) {
	err1 := errors.New("sender1 error")
	err2 := errors.New("sender2 error")
	sender1 := &mockSender{sendErr: err1}
	sender2 := &mockSender{sendErr: err2}
	sender3 := &mockSender{} // No error
	multi := NewSender(sender1, sender2, sender3)

	err := multi.Send(context.Background(), "token", testBatch("evt"))

	if err == nil {
		t.Fatal("Send should return error when senders fail")
	}

	// Both errors should be present
	if !errors.Is(err, err1) {
		t.Errorf("Error should contain err1: %v", err)
	}
	if !errors.Is(err, err2) {
		t.Errorf("Error should contain err2: %v", err)
	}
}

func TestMultiSender_Send_ContinuesOnError(t *testing.T) {
	sender1 := &mockSender{sendErr: errors.New("sender1 error")}
	sender2 := &mockSender{} // No error - should still be called
	sender3 := &mockSender{} // No error - should still be called
	multi := NewSender(sender1, sender2, sender3)

	_ = multi.Send(context.Background(), "token", testBatch("evt-test"))

	if len(sender2.getBatches()) != 1 {
		t.Error("sender2 should still receive batch after sender1 fails")
	}
	if len(sender3.getBatches()) != 1 {
		t.Error("sender3 should still receive batch after sender1 fails")
	}
}

func TestMultiSender_Close_CallsAllSenders(t *testing.T) {
	sender1 := &mockSender{}
	sender2 := &mockSender{}
	multi := NewSender(sender1, sender2)

	if err := multi.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}

	if !sender1.isClosed() {
		t.Error("sender1 should be closed")
	}
	if !sender2.isClosed() {
		t.Error("sender2 should be closed")
	}
}

func TestMultiSender_Close_AggregatesErrors(t *testing.T) {
	err1 := errors.New("close error 1")
	err2 := errors.New("close error 2")
	multi := NewSender(&mockSender{closeErr: err1}, &mockSender{closeErr: err2})

	err := multi.Close()

	if err == nil {
		t.Fatal("Close should return error")
	}
	if !errors.Is(err, err1) || !errors.Is(err, err2) {
		t.Error("Close should aggregate all errors")
	}
}

func TestMultiSender_EmptySenders(t *testing.T) {
	multi := NewSender()

	if err := multi.Send(context.Background(), "token", testBatch("evt")); err != nil {
		t.Errorf("Send with no senders should return nil, got: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Errorf("Close with no senders should return nil, got: %v", err)
	}
}
