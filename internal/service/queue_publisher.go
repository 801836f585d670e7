package service

// This file provides the AMQP-backed implementation of the Events
// port.  Errors are logged and returned so callers can ignore
// failures without interrupting the main request flow; every
// mutation that matters is already durable in MySQL by the time an
// event is published.

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/hiraku/stagebook/internal/queue"
)

// Publisher publishes domain events to RabbitMQ.  It dials per
// publish, declares the target queue idempotently (durable) and
// marks messages persistent so they survive broker restarts.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher pointed at the broker resolved
// from the environment.
func NewPublisher() *Publisher { return &Publisher{url: q.BrokerURL()} }

// PublishLedgerEvent publishes a LedgerEvent to the
// reservation.ledger queue.
func (p *Publisher) PublishLedgerEvent(ctx context.Context, ev q.LedgerEvent) error {
	return p.publish(ctx, q.LedgerQueue, ev)
}

// PublishMailQueued publishes a MailQueuedEvent to the mail.outbound
// queue.
func (p *Publisher) PublishMailQueued(ctx context.Context, ev q.MailQueuedEvent) error {
	return p.publish(ctx, q.MailQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
