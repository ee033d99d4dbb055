package reflex

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reflexhq/reflex/token"
)

// Op is the operation kind of a record-store change notification.
type Op string

// Operation kinds, bit-exact with the wire format.
const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
	OpManual Op = "MANUAL"
)

// ChangeData carries the before and after images of the mutated record.
// Insert notifications have only New, deletes only Old, updates both.
type ChangeData struct {
	Old map[string]any `json:"old"`
	New map[string]any `json:"new"`
}

// Event is the operation payload of a notification.
type Event struct {
	Op               Op                `json:"op"`
	Data             *ChangeData       `json:"data"`
	SessionVariables map[string]string `json:"session_variables,omitempty"`
}

// Table identifies the source table of a notification.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Trigger identifies the record-store trigger that fired the notification.
type Trigger struct {
	Name string `json:"name"`
}

// Notification is one inbound change event from the external record store.
// It is consumed, never produced: the JSON shape is fixed by the store.
//
// The dispatcher attaches two transient values for the invocation's
// duration, the resolved tracking token and the caller context. They are
// not wire fields and are never serialized.
type Notification struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Table     Table     `json:"table"`
	Trigger   Trigger   `json:"trigger"`
	Event     *Event    `json:"event"`

	trackingToken token.Token
	callerContext any
}

// Token is the parsed tracking-token type. Alias for convenience so callers
// rarely need the token package directly.
type Token = token.Token

// ParseNotification decodes the wire JSON of a change notification.
func ParseNotification(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	return &n, nil
}

// WellFormed reports whether the notification has the minimal structural
// shape the dispatcher requires: an event with an operation kind and a data
// container. Anything less short-circuits dispatch before any hook fires.
func (n *Notification) WellFormed() bool {
	return n != nil && n.Event != nil && n.Event.Op != "" && n.Event.Data != nil
}

// Validate checks the full data-model invariant: image presence must match
// the operation kind. Inserts carry only an after-image, deletes only a
// before-image, updates both. Manual deliveries are caller-shaped and
// carry no image constraint.
func (n *Notification) Validate() error {
	if n == nil {
		return ErrNilNotification
	}
	if !n.WellFormed() {
		return ErrMalformedNotification
	}

	data := n.Event.Data
	switch n.Event.Op {
	case OpInsert:
		if data.New == nil {
			return fmt.Errorf("%w: %s without after-image", ErrImageMismatch, n.Event.Op)
		}
		if data.Old != nil {
			return fmt.Errorf("%w: %s with before-image", ErrImageMismatch, n.Event.Op)
		}
	case OpManual:
		// Unconstrained: manual invocations shape their own payload.
	case OpUpdate:
		if data.Old == nil || data.New == nil {
			return fmt.Errorf("%w: UPDATE requires both images", ErrImageMismatch)
		}
	case OpDelete:
		if data.Old == nil {
			return fmt.Errorf("%w: DELETE without before-image", ErrImageMismatch)
		}
		if data.New != nil {
			return fmt.Errorf("%w: DELETE with after-image", ErrImageMismatch)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, n.Event.Op)
	}
	return nil
}

// SetTrackingToken attaches the resolved tracking token for the current
// invocation. Called by the dispatcher; modules read it with TrackingToken.
func (n *Notification) SetTrackingToken(t token.Token) { n.trackingToken = t }

// TrackingToken returns the tracking token resolved for this invocation.
// Zero before dispatch resolves it.
func (n *Notification) TrackingToken() token.Token { return n.trackingToken }

// SetCallerContext attaches the caller's opaque context value.
func (n *Notification) SetCallerContext(v any) { n.callerContext = v }

// CallerContext returns the opaque value the dispatch caller supplied, or
// nil when none was given.
func (n *Notification) CallerContext() any { return n.callerContext }
