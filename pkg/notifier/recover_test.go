package notifier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestRecover_CapturesPanic(t *testing.T) {
	n, sender := newTestNotifier(simpleConfig())
	ctx := context.Background()

	func() {
		defer Recover(ctx, n)
		panic("test panic")
	}()

	p := sender.lastPayload(t)
	if p.Data.Level() != LevelCritical {
		t.Errorf("Level = %q, want %q", p.Data.Level(), LevelCritical)
	}
	trace, ok := p.Data.Body()[keyTrace].(Trace)
	if !ok {
		t.Fatal("expected body.trace")
	}
	if trace.Exception.Class != "Fatal Error" {
		t.Errorf("Class = %q, want %q", trace.Exception.Class, "Fatal Error")
	}
	if trace.Exception.Message != "test panic" {
		t.Errorf("Message = %q, want %q", trace.Exception.Message, "test panic")
	}
}

func TestRecover_RecordsPanicSite(t *testing.T) {
	n, sender := newTestNotifier(simpleConfig())
	ctx := context.Background()

	func() {
		defer Recover(ctx, n)
		panic("site test")
	}()

	trace := sender.lastPayload(t).Data.Body()[keyTrace].(Trace)
	if len(trace.Frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(trace.Frames))
	}
	if got := filepath.Base(trace.Frames[0].Filename); got != "recover_test.go" {
		t.Errorf("Filename = %q, want recover_test.go", got)
	}
	if trace.Frames[0].Lineno == 0 {
		t.Error("Lineno should be set")
	}
}

func TestRecover_ErrorValue(t *testing.T) {
	n, sender := newTestNotifier(simpleConfig())
	ctx := context.Background()
	panicErr := errors.New("boom")

	func() {
		defer Recover(ctx, n)
		panic(panicErr)
	}()

	p := sender.lastPayload(t)
	if p.Data.Level() != LevelCritical {
		t.Errorf("Level = %q, want %q", p.Data.Level(), LevelCritical)
	}
	trace := p.Data.Body()[keyTrace].(Trace)
	if trace.Exception.Class != "errors.errorString" {
		t.Errorf("Class = %q, want errors.errorString", trace.Exception.Class)
	}
	if trace.Exception.Message != "boom" {
		t.Errorf("Message = %q, want boom", trace.Exception.Message)
	}
}

func TestRecover_NoPanic(t *testing.T) {
	n, sender := newTestNotifier(simpleConfig())

	if recovered := Recover(context.Background(), n); recovered != nil {
		t.Errorf("Recover() = %v, want nil", recovered)
	}
	if len(sender.getBatches()) != 0 {
		t.Error("no payload expected without a panic")
	}
}

func TestRecover_DisabledNotifierStillRecovers(t *testing.T) {
	cfg := simpleConfig()
	cfg.AccessToken = "invalid"
	n, sender := newTestNotifier(cfg)

	func() {
		defer Recover(context.Background(), n)
		panic("ignored")
	}()

	if len(sender.getBatches()) != 0 {
		t.Error("disabled notifier must not send")
	}
}

func TestFormatRecovered(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, "<nil>"},
		{"text", "text"},
		{errors.New("err"), "err"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := formatRecovered(tt.input); got != tt.want {
			t.Errorf("formatRecovered(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
