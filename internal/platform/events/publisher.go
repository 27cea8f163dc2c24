package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Event names published by the domain services.
const (
	SessionScheduled   = "session.scheduled"
	SessionRescheduled = "session.rescheduled"
	SessionCompleted   = "session.completed"
	SessionNoShow      = "session.no_show"
	SessionReminder    = "session.reminder"
	BillCreated        = "bill.created"
	BillStatusChanged  = "bill.status_changed"
	CardCanceled       = "card.canceled"
)

// Publisher delivers domain events to interested consumers. Implementations
// must never fail the calling request: delivery problems are logged and
// swallowed.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{})
	Close() error
}

// ---------------------------------------------------------------------------
// AMQP publisher
// ---------------------------------------------------------------------------

const exchangeName = "caretab.events"

// AMQPPublisher publishes JSON events to a topic exchange using the event
// name as routing key (e.g. "session.completed").
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  zerolog.Logger
}

func NewAMQPPublisher(amqpURL string, logger zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:    conn,
		channel: channel,
		logger:  logger.With().Str("component", "events").Logger(),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("event", event).Msg("marshal event payload")
		return
	}

	err = p.channel.PublishWithContext(ctx, exchangeName, event, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("event", event).Msg("publish event")
		return
	}

	p.logger.Debug().Str("event", event).Msg("event published")
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// ---------------------------------------------------------------------------
// No-op publisher
// ---------------------------------------------------------------------------

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) {}
func (NopPublisher) Close() error                                 { return nil }
