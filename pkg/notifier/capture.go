// capture.go snapshots request and person data at report time.

package notifier

import (
	"context"
	"fmt"
)

// capturer turns ambient state into plain maps for the payload.
type capturer struct {
	provider   RequestContextProvider
	rules      []ScrubRule
	person     *Person
	personFunc PersonFunc
}

// captureRequest returns the data.request block, or nil outside a request.
// GET, POST, session and headers are scrubbed independently.
func (c *capturer) captureRequest(ctx context.Context) map[string]any {
	if c.provider == nil {
		return nil
	}
	state, ok := c.provider.RequestState(ctx)
	if !ok || state == nil {
		return nil
	}

	request := map[string]any{
		"url":     state.URL(),
		"user_ip": state.UserIP(),
	}
	if state.Method != "" {
		request["method"] = state.Method
	}
	if len(state.Query) > 0 {
		request["GET"] = ScrubMap(state.Query, c.rules)
	}
	if len(state.Form) > 0 {
		request["POST"] = ScrubMap(state.Form, c.rules)
	}
	if len(state.Session) > 0 {
		request["session"] = ScrubMap(state.Session, c.rules)
	}
	if len(state.Headers) > 0 {
		request["headers"] = ScrubMap(state.Headers, c.rules)
	}
	return request
}

// capturePerson returns the data.person block. The static person wins over the
// provider; a person without an id is not reported.
func (c *capturer) capturePerson() (map[string]any, error) {
	person := c.person
	if person == nil && c.personFunc != nil {
		p, err := c.personFunc()
		if err != nil {
			return nil, fmt.Errorf("person provider: %w", err)
		}
		person = p
	}
	if person == nil || person.ID == "" {
		return nil, nil
	}

	out := map[string]any{"id": person.ID}
	if person.Username != "" {
		out["username"] = person.Username
	}
	if person.Email != "" {
		out["email"] = person.Email
	}
	return out, nil
}
