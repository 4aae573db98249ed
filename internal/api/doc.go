// Package api содержит HTTP API сервер QCSched.
//
// Структура:
//   - handler.go             — Handler с DI (сервисы, logger)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response)
//   - frequency_handler.go   — обработчики для /frequencies
//   - schedule_handler.go    — обработчики для /schedules
//   - performance_handler.go — обработчики для /performances
//
// API предоставляет REST endpoints для частот, schedules и истории выполнений.
package api
