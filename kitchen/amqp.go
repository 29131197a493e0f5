package kitchen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/go-amqp"

	"github.com/itsneelabh/sushichat/core"
)

type amqpSender interface {
	Send(ctx context.Context, msg *amqp.Message, opts *amqp.SendOptions) error
	Close(ctx context.Context) error
}

// AMQPNotifier sends tickets to an AMQP 1.0 queue (RabbitMQ with the AMQP 1.0
// plugin, ActiveMQ, ...).
type AMQPNotifier struct {
	conn   *amqp.Conn
	sender amqpSender
	queue  string
	logger core.Logger
}

// NewAMQPNotifier dials the broker with SASL plain credentials.
func NewAMQPNotifier(ctx context.Context, cfg core.AMQPConfig, logger core.Logger) (*AMQPNotifier, error) {
	if cfg.URL == "" || cfg.Queue == "" {
		return nil, fmt.Errorf("amqp url and queue are required: %w", core.ErrMissingConfiguration)
	}
	opts := &amqp.ConnOptions{}
	if cfg.Username != "" {
		opts.SASLType = amqp.SASLTypePlain(cfg.Username, cfg.Password)
	}
	conn, err := amqp.Dial(ctx, cfg.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kitchen queue: %w", core.ErrConnectionFailed)
	}
	session, err := conn.NewSession(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp session: %w", err)
	}
	sender, err := session.NewSender(ctx, cfg.Queue, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp sender for %s: %w", cfg.Queue, err)
	}
	return &AMQPNotifier{
		conn:   conn,
		sender: sender,
		queue:  cfg.Queue,
		logger: core.ComponentLogger(logger, "kitchen"),
	}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, t Ticket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	contentType := "application/json"
	subject := t.Event
	msg := amqp.NewMessage(body)
	msg.Properties = &amqp.MessageProperties{
		MessageID:   t.ID,
		ContentType: &contentType,
		Subject:     &subject,
	}
	msg.ApplicationProperties = map[string]any{"order_id": t.OrderID}

	if err := n.sender.Send(ctx, msg, nil); err != nil {
		return fmt.Errorf("send ticket %s to %s: %w", t.ID, n.queue, err)
	}
	n.logger.DebugWithContext(ctx, "Ticket sent to AMQP queue", map[string]interface{}{
		"operation": "kitchen_notify",
		"ticket_id": t.ID,
		"queue":     n.queue,
	})
	return nil
}

// Close closes the link and the connection.
func (n *AMQPNotifier) Close(ctx context.Context) error {
	err := n.sender.Close(ctx)
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
