// Package events broadcasts assignment lifecycle events to the notification collaborator.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types emitted by the lifecycle services.
const (
	TypeSubmissionCreated     = "submission.created"
	TypeSubmissionUpdated     = "submission.updated"
	TypeSubmissionGraded      = "submission.graded"
	TypeAssignmentCreated     = "assignment.created"
	TypeAssignmentDeactivated = "assignment.deactivated"
)

// Event is the envelope published on every channel.
type Event struct {
	ID           string                 `json:"id"`
	Source       string                 `json:"source"`
	Type         string                 `json:"type"`
	AssignmentID uint                   `json:"assignment_id"`
	SubmissionID uint                   `json:"submission_id,omitempty"`
	StudentID    uint                   `json:"student_id,omitempty"`
	ActorID      uint                   `json:"actor_id,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// Publisher emits lifecycle events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type brokerPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewPublisher fans events out to Redis pub/sub and NATS. Either transport may be nil.
func NewPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) Publisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &brokerPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *brokerPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Source = p.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+event.Type, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("event_type", event.Type).Uint("assignment_id", event.AssignmentID).Msg("event published")
	return nil
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
