package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
)

func TestParseSweepCron(t *testing.T) {
	from := time.Date(2018, 10, 1, 10, 2, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/5 * * * *", time.Date(2018, 10, 1, 10, 5, 0, 0, time.UTC)},
		{"@hourly", time.Date(2018, 10, 1, 11, 0, 0, 0, time.UTC)},
		{"0 6 * * MON-FRI", time.Date(2018, 10, 2, 6, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sched, err := ParseSweepCron(tt.expr)
			if err != nil {
				t.Fatalf("ParseSweepCron(%q) error: %v", tt.expr, err)
			}
			if got := sched.Next(from); !got.Equal(tt.want) {
				t.Errorf("Next() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := ParseSweepCron("every five minutes"); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestService_Sweep(t *testing.T) {
	now := at(10, 12)
	fx := newFixture(t, now)
	weekly := fx.frequency(t, "weekly", "FREQ=WEEKLY", intPtr(0), 1)
	ctx := context.Background()

	overdue := fx.schedule(t, "A overdue", weekly, ptr(at(1, 7)))
	fx.schedule(t, "B due today", weekly, ptr(at(10, 9)))
	fx.schedule(t, "C no due date", weekly, nil)
	fx.schedule(t, "D not due", weekly, ptr(at(20, 7)))
	inactive := fx.schedule(t, "E inactive", weekly, ptr(at(1, 7)))

	stored := fx.db.schedules[inactive.ID]
	stored.Active = false
	fx.db.schedules[inactive.ID] = stored

	res, err := fx.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}

	if res.Total != 4 {
		t.Errorf("expected 4 active schedules, got %d", res.Total)
	}
	want := map[domain.DueStatus]int{
		domain.DueStatusOverdue:   1,
		domain.DueStatusDue:       1,
		domain.DueStatusNoDueDate: 1,
		domain.DueStatusNotDue:    1,
	}
	for status, n := range want {
		if res.ByStatus[status] != n {
			t.Errorf("expected %d %s, got %d", n, status, res.ByStatus[status])
		}
	}
	if res.Notified != 1 || len(fx.pub.overdue) != 1 {
		t.Fatalf("expected one overdue notification, got %d (%d events)", res.Notified, len(fx.pub.overdue))
	}

	ev := fx.pub.overdue[0]
	if ev.ScheduleID != overdue.ID {
		t.Errorf("expected overdue event for %s, got %s", overdue.ID, ev.ScheduleID)
	}
	if ev.IdempotencyKey != mq.OverdueKey(overdue.ID, at(1, 7)) {
		t.Errorf("unexpected idempotency key %q", ev.IdempotencyKey)
	}

	// Повторный sweep не шлёт событие для того же due date
	res, err = fx.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep error: %v", err)
	}
	if res.Notified != 0 || len(fx.pub.overdue) != 1 {
		t.Errorf("expected no new notifications, got %d", res.Notified)
	}

	// Новый due date, снова просроченный, даёт новое событие
	if _, err := fx.svc.SetDueDate(ctx, overdue.ID, ptr(at(5, 7))); err != nil {
		t.Fatalf("SetDueDate error: %v", err)
	}
	res, err = fx.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("third Sweep error: %v", err)
	}
	if res.Notified != 1 || len(fx.pub.overdue) != 2 {
		t.Errorf("expected a notification for the new due date, got %d", res.Notified)
	}
}

func TestService_Sweep_PublishFailureIsNotFatal(t *testing.T) {
	fx := newFixture(t, at(10, 12))
	weekly := fx.frequency(t, "weekly", "FREQ=WEEKLY", intPtr(0), 1)
	fx.schedule(t, "A overdue", weekly, ptr(at(1, 7)))
	fx.pub.err = errors.New("broker down")

	res, err := fx.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if res.ByStatus[domain.DueStatusOverdue] != 1 {
		t.Errorf("expected 1 overdue, got %d", res.ByStatus[domain.DueStatusOverdue])
	}
	if res.Notified != 0 {
		t.Errorf("expected 0 notified, got %d", res.Notified)
	}

	// Брокер вернулся — событие уходит на следующем sweep
	fx.pub.err = nil
	res, err = fx.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if res.Notified != 1 || len(fx.pub.overdue) != 1 {
		t.Errorf("expected retry to notify, got %d", res.Notified)
	}
}

func TestService_RunSweeps_StopsOnCancel(t *testing.T) {
	fx := newFixture(t, at(10, 12))
	sched, err := ParseSweepCron("@every 10ms")
	if err != nil {
		t.Fatalf("ParseSweepCron error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 16)
	isLeader := func(context.Context) bool {
		select {
		case calls <- struct{}{}:
		default:
		}
		return false
	}

	done := make(chan error, 1)
	go func() { done <- fx.svc.RunSweeps(ctx, sched, isLeader) }()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep loop did not tick")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweeps did not stop")
	}
}
