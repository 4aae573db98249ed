package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePerformanceRecorded MessageType = "performance.recorded"
	MessageTypeDueChanged          MessageType = "schedule.due_changed"
	MessageTypeOverdue             MessageType = "schedule.overdue"
)

// Message — конверт сообщения.
type Message struct {
	// ID — идентификатор сообщения. Для schedule.overdue детерминирован,
	// чтобы потребители могли отбрасывать дубликаты.
	ID string `json:"id"`

	Type MessageType `json:"type"`

	Payload any `json:"payload"`

	Timestamp time.Time `json:"timestamp"`
}

// PerformanceRecordedPayload — выполнение QC-задачи, пришедшее из внешней системы.
type PerformanceRecordedPayload struct {
	ScheduleID          uuid.UUID `json:"schedule_id"`
	CompletedAt         time.Time `json:"completed_at"`
	CountsForScheduling *bool     `json:"counts_for_scheduling,omitempty"` // nil = true
	Comment             string    `json:"comment,omitempty"`
	IdempotencyKey      string    `json:"idempotency_key,omitempty"`
}

// DueChangedPayload — due date задачи изменился.
type DueChangedPayload struct {
	ScheduleID uuid.UUID  `json:"schedule_id"`
	OldDue     *time.Time `json:"old_due,omitempty"`
	NewDue     *time.Time `json:"new_due,omitempty"`
	Mode       string     `json:"mode"`
}

// OverduePayload — задача просрочена.
type OverduePayload struct {
	ScheduleID     uuid.UUID `json:"schedule_id"`
	Name           string    `json:"name"`
	AssignedTo     string    `json:"assigned_to,omitempty"`
	DueDate        time.Time `json:"due_date"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// OverdueKey возвращает ключ идемпотентности для schedule.overdue: {schedule_id}_{due_unix}.
func OverdueKey(scheduleID uuid.UUID, due time.Time) string {
	return scheduleID.String() + "_" + strconv.FormatInt(due.Unix(), 10)
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) newMessage(id string, msgType MessageType, payload any) *Message {
	if id == "" {
		id = uuid.New().String()
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		Payload:   payload,
		Timestamp: p.now(),
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishPerformanceRecorded публикует выполнение задачи.
// Потребитель: qcsched-scheduler.
func (p *Publisher) PublishPerformanceRecorded(ctx context.Context, payload PerformanceRecordedPayload) error {
	msg := p.newMessage(payload.IdempotencyKey, MessageTypePerformanceRecorded, payload)
	return p.Publish(ctx, ExchangePerformances, RoutingKeyRecorded, msg)
}

// PublishDueChanged публикует изменение due date.
func (p *Publisher) PublishDueChanged(ctx context.Context, payload DueChangedPayload) error {
	msg := p.newMessage("", MessageTypeDueChanged, payload)
	return p.Publish(ctx, ExchangeSchedules, RoutingKeyDueChanged, msg)
}

// PublishOverdue публикует просрочку. ID сообщения равен ключу идемпотентности.
func (p *Publisher) PublishOverdue(ctx context.Context, payload OverduePayload) error {
	if payload.IdempotencyKey == "" {
		payload.IdempotencyKey = OverdueKey(payload.ScheduleID, payload.DueDate)
	}
	msg := p.newMessage(payload.IdempotencyKey, MessageTypeOverdue, payload)
	return p.Publish(ctx, ExchangeSchedules, RoutingKeyOverdue, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	return p.Publish(ctx, exchange, routingKey, p.newMessage("", msgType, payload))
}
