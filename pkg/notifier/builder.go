// builder.go converts reported events into payloads.

package notifier

import (
	"context"
	"errors"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// NotifierName and Version identify this client in data.notifier.
	NotifierName = "diag-notifier-go"
	Version      = "0.6.0"
)

type eventKind int

const (
	kindMessage eventKind = iota
	kindError
	kindRuntimeError
)

// event is one occurrence to report.
type event struct {
	kind    eventKind
	message string
	level   Level
	err     error
	runtime RuntimeError
}

// builder assembles payloads. It never recovers from failures; the notifier
// contains them.
type builder struct {
	cfg      Config
	capturer *capturer
	server   serverInfo
	now      func() time.Time
	newUUID  func() string
}

func newBuilder(cfg Config, c *capturer) *builder {
	return &builder{
		cfg:      cfg,
		capturer: c,
		server:   newServerInfo(cfg),
		now:      time.Now,
		newUUID:  uuid.NewString,
	}
}

// build creates the payload for ev. Keys in overrides replace computed
// top-level data keys, except body and uuid.
func (b *builder) build(ctx context.Context, ev event, extra, overrides map[string]any) (*Payload, error) {
	var (
		level Level
		body  map[string]any
	)
	switch ev.kind {
	case kindMessage:
		level = ev.level
		if level == "" {
			level = LevelInfo
		}
		body = messageBody(ev.message, extra)
	case kindError:
		level = ev.level
		if level == "" {
			level = LevelError
		}
		body = chainBody(traceChain(ev.err, extra))
	case kindRuntimeError:
		level = ev.runtime.Severity.Level()
		body = map[string]any{keyTrace: b.runtimeTrace(ev.runtime)}
	}

	data := Data{
		"environment": b.cfg.Environment,
		keyLevel:      level,
		"timestamp":   b.now().Unix(),
		keyUUID:       b.newUUID(),
		"language":    "go",
		"platform":    b.cfg.Platform,
		"notifier": map[string]any{
			"name":    NotifierName,
			"version": Version,
		},
		keyBody:   body,
		keyServer: b.server.block(),
	}
	if b.cfg.Framework != "" {
		data["framework"] = b.cfg.Framework
	}
	if b.cfg.CodeVersion != "" {
		data["code_version"] = b.cfg.CodeVersion
	}

	if request := b.capturer.captureRequest(ctx); request != nil {
		data[keyRequest] = request
	}

	person, err := b.capturer.capturePerson()
	if err != nil {
		return nil, &CaptureError{Stage: "person", Err: err}
	}
	if person != nil {
		data[keyPerson] = person
	}

	if ev.kind == kindRuntimeError {
		data[keyTitle] = ev.runtime.Message
	}

	for key, value := range overrides {
		if key == keyBody || key == keyUUID {
			continue
		}
		data[key] = value
	}

	if _, set := data[keyFingerprint]; b.cfg.Fingerprinting && !set {
		data[keyFingerprint] = Fingerprint(data)
	}

	return &Payload{AccessToken: b.cfg.AccessToken, Data: data}, nil
}

// messageBody returns {message: {body: text, ...extra}}. The text always wins
// over an extra "body" key.
func messageBody(text string, extra map[string]any) map[string]any {
	msg := make(map[string]any, len(extra)+1)
	maps.Copy(msg, extra)
	msg[keyBody] = text
	return map[string]any{keyMessage: msg}
}

func chainBody(traces []Trace) map[string]any {
	if len(traces) == 1 {
		return map[string]any{keyTrace: traces[0]}
	}
	return map[string]any{keyTraceChain: traces}
}

func (b *builder) runtimeTrace(rt RuntimeError) Trace {
	var frames []Frame
	if b.cfg.CaptureErrorBacktraces {
		frames = captureStack()
	} else {
		frames = []Frame{{Filename: rt.File, Lineno: rt.Line}}
	}
	return Trace{
		Frames: frames,
		Exception: ExceptionInfo{
			Class:   rt.Severity.String(),
			Message: rt.Message,
		},
	}
}

// traceChain flattens err and its causes, outermost first. extra is attached
// to the first entry only. WithStack wrappers donate their stack to the error
// they wrap instead of producing an entry.
func traceChain(err error, extra map[string]any) []Trace {
	var (
		traces  []Trace
		pending []uintptr
	)
	cur := err
	for depth := 0; cur != nil && depth < maxChainDepth; depth++ {
		if ws, ok := cur.(*withStack); ok {
			if pending == nil {
				pending = ws.pcs
			}
			cur = ws.err
			continue
		}

		var frames []Frame
		switch st, ok := cur.(StackTracer); {
		case pending != nil:
			frames = framesFromPCs(pending, false)
		case ok:
			frames = framesFromPCs(st.Callers(), false)
		case len(traces) == 0:
			frames = captureStack()
		default:
			frames = []Frame{}
		}
		pending = nil

		traces = append(traces, Trace{
			Frames: frames,
			Exception: ExceptionInfo{
				Class:   errorClass(cur),
				Message: cur.Error(),
			},
		})

		next := errors.Unwrap(cur)
		if next == nil || sameError(next, cur) {
			break
		}
		cur = next
	}

	if len(traces) > 0 && extra != nil {
		traces[0].Extra = maps.Clone(extra)
	}
	return traces
}

func errorClass(err error) string {
	return strings.TrimPrefix(reflect.TypeOf(err).String(), "*")
}

// sameError reports whether a cause link points back at the same error.
func sameError(a, b error) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
