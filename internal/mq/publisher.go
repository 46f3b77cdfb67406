package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/device-activity-log/internal/db"
	"github.com/septivank/device-activity-log/internal/notify"
	"go.uber.org/zap"
)

// Publisher announces logged activities on the events exchange
type Publisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewPublisher creates a publisher bound to exchange and routingKey
func NewPublisher(conn *Connection, exchange, routingKey string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := declareTopicExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// ActivityLoggedEvent is the message body published for each logged activity
type ActivityLoggedEvent struct {
	Activity      db.Activity `json:"activity"`
	EnvironmentID string      `json:"environment_id"`
}

// NewActivityLoggedPublishing builds the AMQP message for a logged activity
func NewActivityLoggedPublishing(evt notify.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ActivityLoggedEvent{
		Activity:      evt.Activity,
		EnvironmentID: evt.EnvironmentID,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.Activity.ID,
		Timestamp:    time.UnixMilli(evt.Activity.Timestamp),
		Type:         "activity.logged",
	}, nil
}

// PublishActivity publishes one logged activity. It satisfies notify.Listener.
func (p *Publisher) PublishActivity(ctx context.Context, evt notify.Event) error {
	msg, err := NewActivityLoggedPublishing(evt)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}

	p.logger.Debug("published activity event",
		zap.String("routing_key", p.routingKey),
		zap.String("activity_id", evt.Activity.ID),
		zap.String("environment_id", evt.EnvironmentID),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
