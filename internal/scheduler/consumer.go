package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/telemetry"
)

// HandlePerformanceRecorded — обработчик очереди performances.recorded.
//
// Повторная доставка с тем же idempotency_key новую запись не создаёт,
// только повторяет пересчёт due date, если эта запись всё ещё последняя
// засчитываемая. Сообщения о несуществующих schedules и невалидные
// сообщения помечаются mq.ErrPermanent и уходят в DLQ.
func (s *Service) HandlePerformanceRecorded(ctx context.Context, msg *mq.Message) error {
	if msg.Type != mq.MessageTypePerformanceRecorded {
		return fmt.Errorf("unexpected message type %q: %w", msg.Type, mq.ErrPermanent)
	}

	payload, err := mq.ParsePayload[mq.PerformanceRecordedPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	}

	counts := true
	if payload.CountsForScheduling != nil {
		counts = *payload.CountsForScheduling
	}
	key := payload.IdempotencyKey
	if key == "" {
		key = msg.ID
	}

	_, err = s.RecordPerformance(ctx, PerformanceInput{
		ScheduleID:          payload.ScheduleID,
		CompletedAt:         payload.CompletedAt,
		CountsForScheduling: counts,
		Comment:             payload.Comment,
		IdempotencyKey:      key,
	})

	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrAlreadyExists):
		telemetry.WithScheduleID(telemetry.FromContext(ctx), payload.ScheduleID.String()).
			Info("duplicate performance message, recomputing", "idempotency_key", key)
		_, _, err := s.recompute(ctx, payload.ScheduleID, func(last *domain.PerformanceRecord) bool {
			return last != nil && last.IdempotencyKey == key
		})
		return err
	case errors.Is(err, repo.ErrNotFound), errors.As(err, &verr):
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	default:
		return err
	}
}
