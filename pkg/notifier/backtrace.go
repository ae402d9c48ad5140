// backtrace.go converts Go call stacks into payload frames.

package notifier

import (
	"reflect"
	"runtime"
	"strings"
)

const (
	maxStackDepth = 64

	// maxChainDepth bounds the cause-chain walk. Chains are expected to be
	// acyclic; the bound only protects against a malformed Unwrap.
	maxChainDepth = 64
)

// packagePrefix prefixes the function names of this package's frames.
var packagePrefix = reflect.TypeOf(builder{}).PkgPath() + "."

// StackTracer is implemented by errors that recorded the call stack where they
// were created.
type StackTracer interface {
	Callers() []uintptr
}

type withStack struct {
	err error
	pcs []uintptr
}

// WithStack annotates err with the current call stack. The wrapper is
// transparent: it does not add an entry to the reported trace chain.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	return &withStack{err: err, pcs: pcs[:n]}
}

func (w *withStack) Error() string { return w.err.Error() }
func (w *withStack) Unwrap() error { return w.err }
func (w *withStack) Callers() []uintptr { return w.pcs }

// captureStack returns the frames of the current goroutine, excluding frames
// from this package and the runtime.
func captureStack() []Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	return framesFromPCs(pcs[:n], true)
}

// framesFromPCs converts program counters into frames ordered oldest call
// first, so the last frame is where the event happened.
func framesFromPCs(pcs []uintptr, skipInternal bool) []Frame {
	if len(pcs) == 0 {
		return []Frame{}
	}

	var frames []Frame
	iter := runtime.CallersFrames(pcs)
	for {
		f, more := iter.Next()
		if !skipFrame(f, skipInternal) {
			frames = append(frames, Frame{
				Filename: f.File,
				Lineno:   f.Line,
				Method:   f.Function,
			})
		}
		if !more {
			break
		}
	}

	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	if frames == nil {
		return []Frame{}
	}
	return frames
}

func skipFrame(f runtime.Frame, skipInternal bool) bool {
	if f.Function == "" || strings.HasPrefix(f.Function, "runtime.") {
		return true
	}
	if !skipInternal {
		return false
	}
	return strings.HasPrefix(f.Function, packagePrefix) && !strings.HasSuffix(f.File, "_test.go")
}
