package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the transport audit envelopes are emitted through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes audit envelopes for security-relevant actions
// (membership changes, generative calls).
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// AuditEnvelope is the versioned wire format of one audit event.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        string       `json:"user_id,omitempty"`
	ClientIP      string       `json:"client_ip,omitempty"`
	DeviceID      string       `json:"device_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

// RequestMeta identifies the request an audit event originated from.
type RequestMeta struct {
	RequestID string
	UserID    string
	ClientIP  string
	DeviceID  string
}

// AuditPayload carries the human-readable portion of an audit event.
type AuditPayload struct {
	Level  string `json:"level"`
	Action string `json:"action"`
	Text   string `json:"text"`
}

// NewAuditEmitter constructs an emitter bound to one routing key.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event. A nil emitter or publisher is a no-op so
// handlers never need to guard the call.
func (e *AuditEmitter) Emit(ctx context.Context, level, action, text string, meta RequestMeta) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     meta.RequestID,
		UserID:        meta.UserID,
		ClientIP:      meta.ClientIP,
		DeviceID:      meta.DeviceID,
		Payload: AuditPayload{
			Level:  level,
			Action: action,
			Text:   text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
