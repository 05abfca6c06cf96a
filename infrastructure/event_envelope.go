package infrastructure

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/timestamppb"
)

const sourceService = "welcome-system"

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}
