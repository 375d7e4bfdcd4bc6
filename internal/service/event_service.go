package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/workflow"
)

// WorkflowEvent is the JSON payload published for every committed
// transition so downstream consumers (notifications, analytics) can
// react without polling.
type WorkflowEvent struct {
	NodeID     string    `json:"node_id"`
	EntityType string    `json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	Transition string    `json:"transition"`
	ActorID    uint      `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	StudentID  uint      `json:"student_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes workflow events. Publishing is
// fire-and-forget; a broker outage must never fail the transition.
type EventPublisher interface {
	Publish(entityType string, entityID uint, transition string, actor workflow.Actor, studentID uint)
}

type eventService struct {
	conn        *nats.Conn
	subjectBase string
	nodeID      string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEventService constructs a NATS-backed publisher. A nil connection
// yields a no-op publisher, which keeps local setups broker-free.
func NewEventService(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "oeams.workflow"
	}

	return &eventService{
		conn:        conn,
		subjectBase: subjectBase,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "event_service").Logger(),
		now:         time.Now,
	}
}

func (s *eventService) Publish(entityType string, entityID uint, transition string, actor workflow.Actor, studentID uint) {
	if s.conn == nil {
		return
	}

	event := WorkflowEvent{
		NodeID:     s.nodeID,
		EntityType: entityType,
		EntityID:   entityID,
		Transition: transition,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		StudentID:  studentID,
		OccurredAt: s.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal workflow event")
		return
	}

	subject := fmt.Sprintf("%s.%s", s.subjectBase, entityType)
	if err := s.conn.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish workflow event")
	}
}
