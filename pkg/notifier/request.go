// request.go defines the neutral request snapshot captured with each event.

package notifier

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// RequestState is a snapshot of the request being served when an event is
// reported. Maps hold plain values (strings, []any, nested maps).
type RequestState struct {
	Method     string
	Scheme     string
	Host       string
	Port       string
	Path       string
	RemoteAddr string

	Query   map[string]any
	Form    map[string]any
	Session map[string]any
	Headers map[string]any
}

// URL returns scheme://host[:port]path. The port is only included when it is
// not the default for the scheme.
func (s *RequestState) URL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := s.Host
	if host == "" {
		host = "unknown"
	}
	path := s.Path
	if path == "" {
		path = "/"
	}

	u := scheme + "://" + host
	if s.Port != "" && !(scheme == "http" && s.Port == "80") && !(scheme == "https" && s.Port == "443") {
		u += ":" + s.Port
	}
	return u + path
}

// UserIP returns the client address, preferring proxy headers.
func (s *RequestState) UserIP() string {
	if fwd := headerString(s.Headers, "X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := headerString(s.Headers, "X-Real-Ip"); realIP != "" {
		return realIP
	}
	return s.RemoteAddr
}

func headerString(headers map[string]any, name string) string {
	switch v := headers[name].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}

// NormalizeHeaderName converts a CGI variable name such as HTTP_AUTH_TOKEN to
// its header form, Auth-Token. The HTTP_ prefix is optional.
func NormalizeHeaderName(name string) string {
	name = strings.TrimPrefix(name, "HTTP_")
	parts := strings.Split(strings.ToLower(name), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "-")
}

// CGIRequestState builds a RequestState from CGI-style server variables
// (HTTP_HOST, REQUEST_URI, REQUEST_METHOD, REMOTE_ADDR, SERVER_PORT, HTTPS)
// and already decoded parameter maps.
func CGIRequestState(server map[string]string, get, post, session map[string]any) *RequestState {
	state := &RequestState{
		Method:     server["REQUEST_METHOD"],
		Host:       server["HTTP_HOST"],
		Port:       server["SERVER_PORT"],
		Path:       server["REQUEST_URI"],
		RemoteAddr: server["REMOTE_ADDR"],
		Query:      get,
		Form:       post,
		Session:    session,
		Headers:    make(map[string]any),
	}

	state.Scheme = "http"
	if https := server["HTTPS"]; https != "" && !strings.EqualFold(https, "off") {
		state.Scheme = "https"
	}
	if proto := server["HTTP_X_FORWARDED_PROTO"]; proto != "" {
		state.Scheme = strings.ToLower(proto)
	}

	for key, value := range server {
		if strings.HasPrefix(key, "HTTP_") {
			state.Headers[NormalizeHeaderName(key)] = value
		}
	}
	return state
}

// HTTPRequestState builds a RequestState from a net/http request. The body is
// not read: Form is taken from r.PostForm, so callers that want POST fields
// captured must have parsed the form already.
func HTTPRequestState(r *http.Request, session map[string]any) *RequestState {
	state := &RequestState{
		Method:  r.Method,
		Scheme:  "http",
		Host:    r.Host,
		Session: session,
		Headers: make(map[string]any, len(r.Header)+1),
	}
	if r.TLS != nil {
		state.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		state.Scheme = strings.ToLower(proto)
	}
	if r.URL != nil {
		state.Path = r.URL.RequestURI()
		state.Query = valuesToMap(r.URL.Query())
		if state.Host == "" {
			state.Host = r.URL.Host
		}
	}
	if r.PostForm != nil {
		state.Form = valuesToMap(r.PostForm)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		state.RemoteAddr = host
	} else {
		state.RemoteAddr = r.RemoteAddr
	}

	for name, values := range r.Header {
		state.Headers[http.CanonicalHeaderKey(name)] = collapse(values)
	}
	if r.Host != "" {
		state.Headers["Host"] = r.Host
	}
	return state
}

// valuesToMap flattens single-valued entries to strings.
func valuesToMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vs := range values {
		out[key] = collapse(vs)
	}
	return out
}

func collapse(values []string) any {
	if len(values) == 1 {
		return values[0]
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
