package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"docextract-backend/internal/shared/telemetry"
)

// Dial connects to RabbitMQ and verifies a channel can be opened within a short deadline.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		ch, err := conn.Channel()
		if err == nil {
			_ = ch.Close()
		}
		done <- err
	}()

	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq health check timeout: %w", checkCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		return conn, nil
	}
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}
	return nil
}

// Publisher sends extraction jobs to a durable RabbitMQ queue.
type Publisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPublisher(conn *amqp.Connection, queueName string) *Publisher {
	return &Publisher{conn: conn, queueName: queueName}
}

func (p *Publisher) Send(ctx context.Context, msg Message) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, p.queueName); err != nil {
		return err
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("marshal message payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.DocumentID,
			Timestamp:    time.Now().UTC(),
		},
	); err != nil {
		return fmt.Errorf("publish message failed: %w", err)
	}
	return nil
}

// Connected reports whether the broker connection is still open.
func (p *Publisher) Connected() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

var _ Client = (*Publisher)(nil)

// Consumer runs a Handler over deliveries from a durable queue.
type Consumer struct {
	conn        *amqp.Connection
	queueName   string
	concurrency int
}

func NewConsumer(conn *amqp.Connection, queueName string, concurrency int) *Consumer {
	return &Consumer{conn: conn, queueName: queueName, concurrency: max(1, concurrency)}
}

// Run consumes until ctx is cancelled or the channel closes, then waits for in-flight jobs.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, c.queueName); err != nil {
		return err
	}
	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos failed: %w", err)
	}
	deliveries, err := ch.Consume(
		c.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue failed: %w", err)
	}

	telemetry.Info("queue.consumer_started", map[string]any{"queue": c.queueName, "concurrency": c.concurrency})

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(d, handle(context.WithoutCancel(ctx), d.Body))
			}(d)
		}
	}
}

func settle(d amqp.Delivery, disp Disposition) {
	var err error
	switch disp {
	case Requeue:
		err = d.Nack(false, true)
	case Reject:
		err = d.Nack(false, false)
	default:
		err = d.Ack(false)
	}
	if err != nil {
		telemetry.Error("queue.settle_failed", map[string]any{
			"delivery_tag": d.DeliveryTag,
			"disposition":  int(disp),
			"error":        err.Error(),
		})
	}
}
