package types

// Event represents a typed notification emitted during a state transition.
// Attributes carry a flat string view of the payload for observers that do
// not understand the typed event structs.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute or the empty string when absent.
func (e *Event) Attribute(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
