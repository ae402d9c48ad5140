// context.go carries the ambient request through context.Context and defines
// the provider the notifier reads it from.

package notifier

import (
	"context"
	"net/http"
)

// Context key types (unexported to avoid collisions)
type requestStateKey struct{}
type httpRequestKey struct{}
type sessionKey struct{}

// RequestContextProvider returns the request being served for ctx.
// It returns false when ctx is not a request context (jobs, CLIs).
type RequestContextProvider interface {
	RequestState(ctx context.Context) (*RequestState, bool)
}

// RequestContextFunc adapts a function to RequestContextProvider.
type RequestContextFunc func(ctx context.Context) (*RequestState, bool)

// RequestState calls f.
func (f RequestContextFunc) RequestState(ctx context.Context) (*RequestState, bool) {
	return f(ctx)
}

// WithRequestState returns a context carrying a prepared request snapshot.
func WithRequestState(ctx context.Context, state *RequestState) context.Context {
	return context.WithValue(ctx, requestStateKey{}, state)
}

// WithHTTPRequest returns a context carrying r. The snapshot is taken when an
// event is reported, not when the context is created.
func WithHTTPRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, r)
}

// WithSession attaches session data to be reported with an HTTP request.
func WithSession(ctx context.Context, session map[string]any) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// RequestStateFromContext returns the request attached with WithRequestState
// or WithHTTPRequest. A prepared RequestState takes precedence.
func RequestStateFromContext(ctx context.Context) (*RequestState, bool) {
	if state, ok := ctx.Value(requestStateKey{}).(*RequestState); ok && state != nil {
		return state, true
	}
	r, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	if !ok || r == nil {
		return nil, false
	}
	session, _ := ctx.Value(sessionKey{}).(map[string]any)
	return HTTPRequestState(r, session), true
}

// contextRequestProvider is the default provider.
type contextRequestProvider struct{}

func (contextRequestProvider) RequestState(ctx context.Context) (*RequestState, bool) {
	return RequestStateFromContext(ctx)
}
