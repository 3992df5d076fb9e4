// Package events carries engine and store notifications to interested parties
// (websocket clients, logs, tests).
package events

// Event is a lifecycle or data-change notification.
// Minimal and stable: a name, the ids it concerns and optional fields.
type Event struct {
	Name      string         `json:"name"`
	SessionID string         `json:"sessionId,omitempty"`
	ResultID  string         `json:"resultId,omitempty"`
	ModelID   string         `json:"modelId,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events. It is the default publisher.
type Noop struct{}

func (Noop) Publish(Event) {}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
