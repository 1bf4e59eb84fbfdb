package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyledger-backend/pkg/types"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID   uuid.UUID `json:"userId"`
	TenantID uuid.UUID `json:"tenantId"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope unpacks a stored payload and its data section into out.
func DecodeEnvelope(raw json.RawMessage, out any) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, err
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return envelope, err
		}
	}
	return envelope, nil
}

// ActorFrom converts an explicit actor into the envelope reference; a zero actor yields nil.
func ActorFrom(actor types.Actor) *ActorRef {
	if actor.IsZero() {
		return nil
	}
	return &ActorRef{UserID: actor.UserID, TenantID: actor.TenantID}
}
