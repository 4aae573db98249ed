// Package cli реализует инструмент командной строки QCSched.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с QCSched API.
// Работает через HTTP и не импортирует internal/api: типы ответов
// продублированы в client.go. Исключение — команда calc, которая
// считает due date офлайн тем же калькулятором, что и scheduler.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для QCSched API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	schedules, err := client.ListSchedules(cli.ListSchedulesOpts{Status: "OVERDUE"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: qcsched schedule list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - frequency: list, create, show, update, delete
//   - schedule: list, create, show, update, delete, set-due, recompute,
//     window, perform, performances, invalidate
//   - calc: офлайн-расчёт следующего due date
//
// Каждая группа создаётся через фабричную функцию (NewScheduleCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
