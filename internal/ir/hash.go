package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "trustledger/event/v1"
	DomainState = "trustledger/state/v1"
	DomainLog   = "trustledger/log/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventDigest computes a content digest over every field of an event.
// Two events with the same digest are indistinguishable to a projector.
func EventDigest(e Event) (string, error) {
	obj := IRObject{
		"eventId":     IRInt(e.ID),
		"aggregateId": IRString(e.AggregateID),
		"eventType":   IRString(e.EventType),
		"timestamp":   IRInt(e.Timestamp),
		"payload":     CloneObject(e.Payload),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// StateDigest computes a digest of a rebuilt aggregate state.
// Used to compare repeated rebuilds without holding both states.
func StateDigest(state IRObject) (string, error) {
	canonical, err := MarshalCanonical(CloneObject(state))
	if err != nil {
		return "", fmt.Errorf("StateDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// LogDigest chains event digests in log order. Equal logs yield equal digests;
// any reordering, insertion or change yields a different one.
func LogDigest(events []Event) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainLog))
	h.Write([]byte{0x00})
	for _, e := range events {
		d, err := EventDigest(e)
		if err != nil {
			return "", fmt.Errorf("LogDigest: event %d: %w", e.ID, err)
		}
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustStateDigest is like StateDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateDigest(state IRObject) string {
	d, err := StateDigest(state)
	if err != nil {
		panic(err)
	}
	return d
}
