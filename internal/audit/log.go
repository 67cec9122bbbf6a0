// Package audit records security-relevant events (registrations, logins,
// permission changes) as JSON lines on the service log stream.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gatekeeper.dev/internal/authz"
	"gatekeeper.dev/internal/ids"
	"gatekeeper.dev/internal/obs"
)

type ctxKey struct{}

// WithRequestID attaches the request identifier to the context so that
// audit entries can be correlated with request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

type entry struct {
	ID        string         `json:"id"`
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	Event     string         `json:"event"`
	RequestID string         `json:"request_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Fields    map[string]any `json:"fields"`
}

// LogEvent writes one audit entry. The acting user and request id are
// picked up from the context when present.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}
	e := entry{
		ID:     ids.New(),
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
		Type:   "audit",
		Event:  event,
		Fields: map[string]any{},
	}
	if ctx != nil {
		if rid, ok := ctx.Value(ctxKey{}).(string); ok {
			e.RequestID = rid
		}
		if userID, ok := authz.UserIDFromContext(ctx); ok {
			e.UserID = userID
		}
	}
	for k, v := range fields {
		e.Fields[k] = v
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
