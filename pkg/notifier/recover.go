// recover.go provides the Recover helper for panic reporting.
// Use this in HTTP handlers, goroutines, or other code that must not crash.

package notifier

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Recover captures a panic, reports it and returns the recovered value.
// Recover does NOT re-panic after reporting.
//
// Use in defer:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    defer notifier.Recover(notifier.WithHTTPRequest(r.Context(), r), n)
//	    // code that might panic
//	}
//
// A panic with an error value is reported as a critical error chain; any other
// value is reported as a fatal runtime error at the panic site.
func Recover(ctx context.Context, n *Notifier) any {
	r := recover()
	if r == nil {
		return nil
	}

	if err, ok := r.(error); ok {
		ev := event{kind: kindError, err: err, level: LevelCritical}
		n.report(ctx, "report panic", ev, nil, nil)
		return r
	}

	file, line := panicSite()
	n.ReportRuntimeError(ctx, RuntimeError{
		Severity: SeverityFatal,
		Message:  formatRecovered(r),
		File:     file,
		Line:     line,
	})
	return r
}

// panicSite returns the location of the first frame below runtime.gopanic.
func panicSite() (string, int) {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	seenPanic := false
	for {
		f, more := frames.Next()
		if f.Function == "runtime.gopanic" {
			seenPanic = true
		} else if seenPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return f.File, f.Line
		}
		if !more {
			return "", 0
		}
	}
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
