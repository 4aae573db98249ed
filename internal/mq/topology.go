package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePerformances Exchange = "qcsched.performances"
	ExchangeSchedules    Exchange = "qcsched.schedules"
	ExchangeDLQ          Exchange = "qcsched.dlq"
)

// Queues — имена очередей.
const (
	QueuePerformancesRecorded Queue = "performances.recorded"
	QueueScheduleEvents       Queue = "schedules.events"
	QueueDLQPerformances      Queue = "dlq.performances"
)

// Routing keys.
const (
	RoutingKeyRecorded        RoutingKey = "recorded"
	RoutingKeyDueChanged      RoutingKey = "schedule.due_changed"
	RoutingKeyOverdue         RoutingKey = "schedule.overdue"
	RoutingKeyScheduleAll     RoutingKey = "schedule.#"
	RoutingKeyDLQPerformances RoutingKey = "performances"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology возвращает полное описание exchanges, queues и bindings.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangePerformances, amqp.ExchangeDirect},
		{ExchangeSchedules, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues := []queueDecl{
		// performances.recorded — необработанные после повтора уходят в DLQ
		{QueuePerformancesRecorded, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPerformances),
		}},
		// schedules.events — для внешнего сервиса уведомлений
		{QueueScheduleEvents, nil},
		{QueueDLQPerformances, nil},
	}

	bindings := []bindingDecl{
		{QueuePerformancesRecorded, RoutingKeyRecorded, ExchangePerformances},
		{QueueScheduleEvents, RoutingKeyScheduleAll, ExchangeSchedules},
		{QueueDLQPerformances, RoutingKeyDLQPerformances, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, queues и bindings. Операция идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
