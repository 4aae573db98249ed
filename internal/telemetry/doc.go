// Package telemetry — логирование и метрики QCSched.
//
// SetupLogger настраивает slog по LOG_LEVEL/LOG_FORMAT и делает логгер
// глобальным. Логгер обработчика сообщения передаётся через контекст
// (WithLogger/FromContext), поля schedule_id и frequency добавляются
// хелперами WithScheduleID и WithFrequency.
//
// metrics.go регистрирует Prometheus метрики пересчётов due date и sweep
// через promauto. Оба сервиса отдают их на /metrics.
package telemetry
