package store

import (
	"fmt"

	"github.com/roach88/trustledger/internal/ir"
)

// marshalPayload converts a payload to JSON TEXT for storage.
// Keys are sorted but strings and keys are written exactly as given: no NFC
// normalization, so the row decodes to the payload that was appended.
// A nil payload is stored as "{}".
func marshalPayload(payload ir.IRObject) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := payload.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored JSON TEXT back into an IRObject.
// IRObject.UnmarshalJSON decodes numbers via json.Number, so int64 values
// above 2^53 round-trip exactly.
func unmarshalPayload(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}

	var obj ir.IRObject
	if err := obj.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}
