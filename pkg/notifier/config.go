// config.go defines the immutable notifier configuration.

package notifier

import (
	"regexp"
	"runtime"
)

// HandlerMode selects the final delivery hop.
type HandlerMode string

const (
	// HandlerBlocking sends payloads synchronously to the collection endpoint.
	HandlerBlocking HandlerMode = "blocking"

	// HandlerAgent appends payloads to a local relay file read by an agent process.
	HandlerAgent HandlerMode = "agent"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 50

// DefaultScrubFields are the request field names redacted by DefaultConfig.
var DefaultScrubFields = []string{
	"passwd",
	"password",
	"secret",
	"confirm_password",
	"password_confirmation",
	"auth_token",
	"csrf_token",
}

// Person identifies the user affected by an event.
type Person struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// PersonFunc returns the person for the current event. It is called at most
// once per report and only when Config.Person is nil.
type PersonFunc func() (*Person, error)

// Config is read once by New and never modified afterwards.
type Config struct {
	AccessToken string
	Environment string
	Root        string
	CodeVersion string
	Branch      string

	// Host overrides the detected hostname in the server block.
	Host string

	Framework string

	// Platform defaults to runtime.GOOS.
	Platform string

	Batched   bool
	BatchSize int
	Handler   HandlerMode

	// ScrubFields holds exact field names and "/pattern/flags" entries.
	ScrubFields []string

	// CaptureErrorBacktraces records the full call stack for runtime errors
	// instead of a single synthesized frame.
	CaptureErrorBacktraces bool

	Person     *Person
	PersonFunc PersonFunc

	// CheckIgnore may drop a built payload; a true result discards it.
	CheckIgnore func(p *Payload) bool

	// Fingerprinting adds a grouping fingerprint to every payload.
	Fingerprinting bool
}

// DefaultConfig returns production defaults for the given access token.
func DefaultConfig(accessToken string) Config {
	return Config{
		AccessToken:            accessToken,
		Environment:            "production",
		Platform:               runtime.GOOS,
		Batched:                true,
		BatchSize:              DefaultBatchSize,
		Handler:                HandlerBlocking,
		ScrubFields:            append([]string(nil), DefaultScrubFields...),
		CaptureErrorBacktraces: true,
	}
}

var accessTokenPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ValidAccessToken reports whether token has the expected format.
func ValidAccessToken(token string) bool {
	return accessTokenPattern.MatchString(token)
}

// withDefaults fills zero values that have a sensible default.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Handler == "" {
		c.Handler = HandlerBlocking
	}
	if c.Platform == "" {
		c.Platform = runtime.GOOS
	}
	c.ScrubFields = append([]string(nil), c.ScrubFields...)
	return c
}
