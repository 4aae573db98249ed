// Package scheduling — чистое ядро расчёта due date для QC-задач.
//
// Пакет не знает о хранилище и транспорте. Все функции синхронные и
// детерминированные при фиксированных часах.
//
// Структура:
//   - window.go   — QC-окно вокруг due date (Window, ShouldUpdateSchedule)
//   - duedate.go  — следующий due date (CalcDueDate, CalcInitialDueDate)
//   - nominal.go  — среднее число дней между occurrences
//   - entity.go   — применение выполнения к Schedule и статус DueStatus
//
// Использование:
//
//	clock, _ := calendar.Load("America/Toronto")
//	calc := scheduling.New(clock)
//
//	changed, err := calc.RecordPerformance(sched, freq, last, clock.Now())
//
// Перед передачей в правило повторения все мгновения переводятся в зону
// часов, поэтому BYMONTHDAY и BYDAY считаются по локальным дням.
package scheduling
