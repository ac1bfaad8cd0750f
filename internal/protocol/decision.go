package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Decision is the closed set of outcomes a permission request can reach.
// Serialized by name on the IPC wire.
type Decision string

const (
	DecisionAllow       Decision = "Allow"
	DecisionDeny        Decision = "Deny"
	DecisionAlwaysAllow Decision = "AlwaysAllow"
	DecisionReply       Decision = "Reply"
	DecisionTimeout     Decision = "Timeout"
)

// Valid reports whether d is one of the five known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAllow, DecisionDeny, DecisionAlwaysAllow, DecisionReply, DecisionTimeout:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown decision names.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Decision(s)
	if !v.Valid() {
		return fmt.Errorf("unknown decision %q", s)
	}
	*d = v
	return nil
}

// ParseRequestID parses a request id in the canonical 36-character
// lowercase hyphenated form. Other UUID renderings are rejected.
func ParseRequestID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("request id %q is not in canonical form", s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid request id: %w", err)
	}
	if id.String() != s {
		return uuid.Nil, fmt.Errorf("request id %q is not in canonical form", s)
	}
	return id, nil
}
