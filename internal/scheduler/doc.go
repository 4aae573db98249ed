// Package scheduler связывает чистый расчёт due date с хранилищем,
// метриками и событиями.
//
// Структура:
//   - service.go   — Service: RecordPerformance, Recompute, SetDueDate
//   - schedule.go  — CRUD schedules и представление со статусом и окном
//   - frequency.go — FrequencyService: валидация, nominal interval, seed
//   - sweep.go     — периодический sweep статусов (cron-выражение)
//   - consumer.go  — обработчик сообщений performance.recorded
//
// Использование:
//
//	svc := scheduler.New(scheduler.Config{
//	    Schedules:    repo.NewScheduleRepo(pool),
//	    Frequencies:  repo.NewFrequencyRepo(pool),
//	    Performances: repo.NewPerformanceRepo(pool),
//	    Calculator:   scheduling.New(clock),
//	    Publisher:    publisher, // опционально
//	    Logger:       logger,
//	})
//
//	res, err := svc.RecordPerformance(ctx, scheduler.PerformanceInput{
//	    ScheduleID:          id,
//	    CompletedAt:         time.Now(),
//	    CountsForScheduling: true,
//	})
//
// Leader Election:
//
// Sweep не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
package scheduler
