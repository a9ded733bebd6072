package ir

// Event is the atomic, immutable unit of the log.
//
// Event is a plain value. The log stores its own deep copy of Payload at append
// time and hands out deep copies on every read, so mutating a returned Event
// never reaches the log.
type Event struct {
	ID          int64    `json:"eventId"`     // Strictly increasing from 1, never reused
	AggregateID string   `json:"aggregateId"` // Opaque entity identifier
	EventType   string   `json:"eventType"`   // Selects the transition rule
	Timestamp   int64    `json:"timestamp"`   // Milliseconds since epoch, stamped at append
	Payload     IRObject `json:"payload"`
}

// Clone returns a copy of e whose payload shares nothing with e.
func (e Event) Clone() Event {
	e.Payload = CloneObject(e.Payload)
	return e
}
