// payload.go defines the wire shape sent to the collection endpoint.

package notifier

// Level is the severity level recorded in data.level.
type Level string

const (
	LevelCritical Level = "critical"
	LevelError    Level = "error"
	LevelWarning  Level = "warning"
	LevelInfo     Level = "info"
	LevelDebug    Level = "debug"
)

// Wire keys shared with the collector.
const (
	keyBody        = "body"
	keyLevel       = "level"
	keyUUID        = "uuid"
	keyTitle       = "title"
	keyRequest     = "request"
	keyPerson      = "person"
	keyServer      = "server"
	keyMessage     = "message"
	keyTrace       = "trace"
	keyTraceChain  = "trace_chain"
	keyFingerprint = "fingerprint"
)

// Payload is the envelope delivered to the collector. It is built once and
// only read afterwards.
type Payload struct {
	AccessToken string `json:"access_token"`
	Data        Data   `json:"data"`
}

// Data is the "data" object of a payload. Top-level keys may be replaced by
// report overrides; see Notifier.ReportMessage.
type Data map[string]any

// UUID returns the correlation id of the payload.
func (d Data) UUID() string {
	s, _ := d[keyUUID].(string)
	return s
}

// Level returns data.level as a Level.
func (d Data) Level() Level {
	switch v := d[keyLevel].(type) {
	case Level:
		return v
	case string:
		return Level(v)
	}
	return ""
}

// Body returns data.body, or nil if it is missing.
func (d Data) Body() map[string]any {
	b, _ := d[keyBody].(map[string]any)
	return b
}

// Frame is one stack frame, ordered oldest call first within a trace.
type Frame struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	Method   string `json:"method,omitempty"`
	Code     string `json:"code,omitempty"`
}

// ExceptionInfo names the error type and message of a trace.
type ExceptionInfo struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// Trace is a single entry of body.trace or body.trace_chain.
type Trace struct {
	Frames    []Frame        `json:"frames"`
	Exception ExceptionInfo  `json:"exception"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// ErrorSeverity classifies a runtime error.
type ErrorSeverity int

const (
	SeverityError ErrorSeverity = iota
	SeverityFatal
	SeverityCoreError
	SeverityCompileError
	SeverityUserError
	SeverityRecoverable
	SeverityWarning
	SeverityCoreWarning
	SeverityCompileWarning
	SeverityUserWarning
	SeverityNotice
	SeverityUserNotice
	SeverityStrict
	SeverityDeprecated
	SeverityUserDeprecated
)

var severityNames = map[ErrorSeverity]string{
	SeverityError:          "Error",
	SeverityFatal:          "Fatal Error",
	SeverityCoreError:      "Core Error",
	SeverityCompileError:   "Compile Error",
	SeverityUserError:      "User Error",
	SeverityRecoverable:    "Recoverable Error",
	SeverityWarning:        "Warning",
	SeverityCoreWarning:    "Core Warning",
	SeverityCompileWarning: "Compile Warning",
	SeverityUserWarning:    "User Warning",
	SeverityNotice:         "Notice",
	SeverityUserNotice:     "User Notice",
	SeverityStrict:         "Strict",
	SeverityDeprecated:     "Deprecated",
	SeverityUserDeprecated: "User Deprecated",
}

// String returns the class name used in exception.class.
func (s ErrorSeverity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "Unknown Error"
}

// Level maps the severity to a payload level.
func (s ErrorSeverity) Level() Level {
	switch s {
	case SeverityFatal, SeverityCoreError, SeverityCompileError:
		return LevelCritical
	case SeverityWarning, SeverityCoreWarning, SeverityCompileWarning, SeverityUserWarning:
		return LevelWarning
	case SeverityNotice, SeverityUserNotice, SeverityStrict, SeverityDeprecated, SeverityUserDeprecated:
		return LevelInfo
	default:
		return LevelError
	}
}

// RuntimeError describes a runtime error raised outside the error-value flow,
// such as a recovered panic or a host-reported fault.
type RuntimeError struct {
	Severity ErrorSeverity
	Message  string
	File     string
	Line     int
}
