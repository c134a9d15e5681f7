// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type MessageID string
type RequestID string
type AlertID string

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

// NewAlertID returns a ULID so alert IDs sort by creation time.
func NewAlertID() AlertID {
	return AlertID(ulid.Make().String())
}
