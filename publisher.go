package main

import (
	"encoding/json"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type NotificationKind string

const (
	NotificationOverBudget NotificationKind = "over_budget"
	NotificationStreak     NotificationKind = "streak_milestone"
)

type Notification struct {
	Email       string           `json:"email"`
	Kind        NotificationKind `json:"kind"`
	Message     string           `json:"message"`
	TotalSpent  float64          `json:"total_spent,omitempty"`
	DailyBudget float64          `json:"daily_budget,omitempty"`
	Streak      int              `json:"streak,omitempty"`
}

type NotificationPublisher interface {
	Publish(notification Notification) error
}

// RabbitMQPublisher is an implementation of NotificationPublisher using RabbitMQ
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	log     *zap.Logger
}

func NewRabbitMQPublisher(rabbitMQURL string, log *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(rabbitMQURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		"savewise_notifications", // Queue name
		true,                     // Durable (survives RabbitMQ restarts)
		false,                    // Auto-delete when unused
		false,                    // Not exclusive to a single connection
		false,                    // No-wait for confirmation
		nil,                      // Additional queue arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQPublisher{
		conn:    conn,
		channel: ch,
		queue:   queue,
		log:     log,
	}, nil
}

// Publish sends a notification to the RabbitMQ queue.
func (p *RabbitMQPublisher) Publish(notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	err = p.channel.Publish(
		"",           // Default exchange (direct routing to a queue)
		p.queue.Name, // Queue name as the routing key
		false,        // Mandatory flag
		false,        // Immediate flag
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return err
	}

	p.log.Debug("notification published",
		zap.String("email", notification.Email),
		zap.String("kind", string(notification.Kind)))
	return nil
}

// Close releases RabbitMQ resources.
func (p *RabbitMQPublisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

// NoopPublisher drops notifications. Used when no broker is configured and
// in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Notification) error { return nil }
