package scheduler

import (
	"errors"
	"fmt"
)

// ErrScheduleChanged — частота schedule менялась во время пересчёта
// дольше, чем позволяет число попыток.
var ErrScheduleChanged = errors.New("schedule changed concurrently")

// errFrequencyChanged — внутренний сигнал для повтора пересчёта.
var errFrequencyChanged = errors.New("frequency changed under lock")

// ValidationError — ошибка валидации входных данных.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
