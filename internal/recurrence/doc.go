// Package recurrence — правило повторения QC-задачи (подмножество RFC 5545 RRULE).
//
// Rule — неизменяемое значение с текстом правила. Якорь (dtstart) задаёт
// вызывающий: NextAfter и Between получают его аргументом.
// Правило само отвечает за свою (де)сериализацию и не зависит от слоя хранения.
//
// Поддерживается:
//   - FREQ=DAILY|WEEKLY|MONTHLY
//   - INTERVAL=n (n >= 1)
//   - BYDAY=MO,WE,FR (для MONTHLY допускается порядковый номер: 1MO, -1FR)
//   - BYMONTHDAY=d
//
// Вычисление occurrences делегируется github.com/teambition/rrule-go.
// Поиск следующего occurrence ограничен горизонтом Lookahead. Parse проверяет,
// что правило даёт occurrence для якорей в каждом месяце високосного
// и невисокосного года, иначе правило отклоняется при создании частоты.
package recurrence
