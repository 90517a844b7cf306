package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the JSON body of every event published to Kafka or SQS.
type Envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func encodeEnvelope(event string, at time.Time, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notify: marshal %s: %w", event, err)
	}
	body, err := json.Marshal(Envelope{Event: event, OccurredAt: at.UTC(), Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("notify: marshal envelope: %w", err)
	}
	return body, nil
}
