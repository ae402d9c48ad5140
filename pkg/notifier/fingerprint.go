// fingerprint.go generates stable hashes for grouping similar events.

package notifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrames is how many of the newest frames take part in the hash.
const fingerprintFrames = 3

// Fingerprint returns a grouping hash for a payload's data. It is based on:
//   - the level
//   - the exception class of the outermost trace, or the message text
//   - the methods of the newest three frames of the outermost trace
//
// Timestamps, uuids, messages of errors and line numbers are ignored.
func Fingerprint(data Data) string {
	parts := []string{string(data.Level())}

	body := data.Body()
	var trace *Trace
	switch {
	case body[keyTrace] != nil:
		if t, ok := body[keyTrace].(Trace); ok {
			trace = &t
		}
	case body[keyTraceChain] != nil:
		if chain, ok := body[keyTraceChain].([]Trace); ok && len(chain) > 0 {
			trace = &chain[0]
		}
	}

	if trace != nil {
		parts = append(parts, trace.Exception.Class)
		// Frames are oldest first; walk back from the newest.
		for i, n := len(trace.Frames)-1, 0; i >= 0 && n < fingerprintFrames; i-- {
			if m := trace.Frames[i].Method; m != "" {
				parts = append(parts, m)
				n++
			}
		}
	} else if msg, ok := body[keyMessage].(map[string]any); ok {
		text, _ := msg[keyBody].(string)
		parts = append(parts, text)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}
