package tasks

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"viralops/manager-go/internal/utils"
)

// AMQPBackend queues tasks on RabbitMQ, one durable queue per lane. The
// broker owns redelivery: a nacked task is requeued server-side.
type AMQPBackend struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPBackend(rawURL string) (*AMQPBackend, error) {
	utils.Info("amqp connect", "url", redactURL(rawURL))
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AMQPBackend{conn: conn, ch: ch}, nil
}

func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if parsed.User == nil {
		return parsed.String()
	}
	username := parsed.User.Username()
	if _, hasPassword := parsed.User.Password(); hasPassword {
		parsed.User = url.UserPassword(username, "REDACTED")
	} else {
		parsed.User = url.User(username)
	}
	return parsed.String()
}

func amqpQueueName(lane string) string { return "tasks." + lane }

func (b *AMQPBackend) ensureQueue(lane string) error {
	_, err := b.ch.QueueDeclare(
		amqpQueueName(lane),
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

func (b *AMQPBackend) Enqueue(_ context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := b.ensureQueue(task.Lane); err != nil {
		return err
	}
	utils.Debug("amqp publish", "lane", task.Lane, "task", task.Name, "id", task.ID)
	return b.ch.Publish(
		"",
		amqpQueueName(task.Lane),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         raw,
		},
	)
}

func (b *AMQPBackend) Dequeue(ctx context.Context, lanes []string, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	for {
		for _, lane := range lanes {
			if err := b.ensureQueue(lane); err != nil {
				return nil, err
			}
			msg, ok, err := b.ch.Get(amqpQueueName(lane), false)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			var task Task
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				utils.Warn("dropping undecodable task", "lane", lane, "err", err)
				_ = msg.Ack(false)
				continue
			}
			ack := msg.Ack
			nack := msg.Nack
			return &Delivery{
				Task: task,
				ack:  func() error { return ack(false) },
				nack: func(requeue bool) error { return nack(false, requeue) },
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dequeuePollInterval):
		}
	}
}

func (b *AMQPBackend) Pending(_ context.Context, lane string) (int, error) {
	q, err := b.ch.QueueDeclare(amqpQueueName(lane), true, false, false, false, nil)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

func (b *AMQPBackend) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
