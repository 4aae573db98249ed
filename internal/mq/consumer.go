package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/QCSched/internal/telemetry"
)

// ErrPermanent помечает ошибку обработчика, повтор которой бессмыслен.
// Такое сообщение сразу уходит в DLQ.
var ErrPermanent = errors.New("permanent failure")

// Handler — функция обработки сообщения.
// Ошибка → nack: первая доставка возвращается в очередь, повторная уходит в DLQ.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue    Queue
	Handler  Handler
	Prefetch int // по умолчанию 1
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.setupConsume(ctx)
		if err == nil {
			c.logger.Info("consumer started", "queue", c.queue)
			c.processDeliveries(ctx, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) setupConsume(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		d, err := ch.ConsumeWithContext(ctx, string(c.queue), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	msg, err := DecodeMessage(raw.Body)
	if err != nil {
		c.logger.Error("failed to decode message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		_ = raw.Nack(false, false)
		return
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", raw.Redelivered,
	)

	// Логгер сообщения доступен обработчику через telemetry.FromContext
	ctx = telemetry.WithLogger(ctx, c.logger.With("queue", c.queue, "message_id", msg.ID))

	if err := c.handler(ctx, msg); err != nil {
		requeue := !raw.Redelivered && !errors.Is(err, ErrPermanent)
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"requeue", requeue,
			"error", err,
		)
		_ = raw.Nack(false, requeue)
		return
	}

	_ = raw.Ack(false)
}

// DecodeMessage разбирает тело AMQP сообщения.
func DecodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("message without type")
	}
	return &msg, nil
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal payload — map[string]any, перекодируем в T
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
