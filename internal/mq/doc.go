// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий QCSched
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - performance.recorded  — QC-задача выполнена (вход для scheduler)
//   - schedule.due_changed  — due date задачи изменился
//   - schedule.overdue      — задача просрочена (один раз на due date)
//
// Exchanges:
//   - qcsched.performances — входящие выполнения
//   - qcsched.schedules    — события schedules (topic, для уведомлений)
//   - qcsched.dlq          — dead letter queue
package mq
