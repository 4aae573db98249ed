package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/recurrence"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduler"
)

// stubSchedules — ScheduleService с подменяемыми методами.
// Неподменённый метод возвращает ошибку.
type stubSchedules struct {
	create      func(scheduler.ScheduleInput) (*scheduler.ScheduleView, error)
	get         func(uuid.UUID) (*scheduler.ScheduleView, error)
	list        func(scheduler.ScheduleQuery) ([]scheduler.ScheduleView, error)
	update      func(uuid.UUID, scheduler.ScheduleUpdate) (*scheduler.ScheduleView, error)
	del         func(uuid.UUID) error
	setDue      func(uuid.UUID, *time.Time) (*domain.Schedule, error)
	recompute   func(uuid.UUID) (*domain.Schedule, bool, error)
	record      func(scheduler.PerformanceInput) (*scheduler.PerformanceResult, error)
	setValid    func(uuid.UUID, bool) (*scheduler.PerformanceResult, error)
	performance func(uuid.UUID, int) ([]domain.PerformanceRecord, error)
}

var errNotStubbed = fmt.Errorf("not stubbed")

func (s *stubSchedules) CreateSchedule(_ context.Context, in scheduler.ScheduleInput) (*scheduler.ScheduleView, error) {
	if s.create == nil {
		return nil, errNotStubbed
	}
	return s.create(in)
}

func (s *stubSchedules) GetSchedule(_ context.Context, id uuid.UUID) (*scheduler.ScheduleView, error) {
	if s.get == nil {
		return nil, errNotStubbed
	}
	return s.get(id)
}

func (s *stubSchedules) ListSchedules(_ context.Context, q scheduler.ScheduleQuery) ([]scheduler.ScheduleView, error) {
	if s.list == nil {
		return nil, errNotStubbed
	}
	return s.list(q)
}

func (s *stubSchedules) UpdateSchedule(_ context.Context, id uuid.UUID, upd scheduler.ScheduleUpdate) (*scheduler.ScheduleView, error) {
	if s.update == nil {
		return nil, errNotStubbed
	}
	return s.update(id, upd)
}

func (s *stubSchedules) DeleteSchedule(_ context.Context, id uuid.UUID) error {
	if s.del == nil {
		return errNotStubbed
	}
	return s.del(id)
}

func (s *stubSchedules) SetDueDate(_ context.Context, id uuid.UUID, due *time.Time) (*domain.Schedule, error) {
	if s.setDue == nil {
		return nil, errNotStubbed
	}
	return s.setDue(id, due)
}

func (s *stubSchedules) Recompute(_ context.Context, id uuid.UUID) (*domain.Schedule, bool, error) {
	if s.recompute == nil {
		return nil, false, errNotStubbed
	}
	return s.recompute(id)
}

func (s *stubSchedules) RecordPerformance(_ context.Context, in scheduler.PerformanceInput) (*scheduler.PerformanceResult, error) {
	if s.record == nil {
		return nil, errNotStubbed
	}
	return s.record(in)
}

func (s *stubSchedules) SetPerformanceValid(_ context.Context, id uuid.UUID, valid bool) (*scheduler.PerformanceResult, error) {
	if s.setValid == nil {
		return nil, errNotStubbed
	}
	return s.setValid(id, valid)
}

func (s *stubSchedules) ListPerformances(_ context.Context, id uuid.UUID, limit int) ([]domain.PerformanceRecord, error) {
	if s.performance == nil {
		return nil, errNotStubbed
	}
	return s.performance(id, limit)
}

// memFrequencies — FrequencyService в памяти без валидации правил.
type memFrequencies struct {
	items map[uuid.UUID]*domain.Frequency
}

func newMemFrequencies(list ...*domain.Frequency) *memFrequencies {
	m := &memFrequencies{items: make(map[uuid.UUID]*domain.Frequency)}
	for _, f := range list {
		m.items[f.ID] = f
	}
	return m
}

func (m *memFrequencies) Create(_ context.Context, in scheduler.FrequencyInput) (*domain.Frequency, error) {
	rule, err := recurrence.Parse(in.Recurrence)
	if err != nil {
		return nil, &scheduler.ValidationError{Field: "recurrence", Message: "invalid recurrence rule", Err: err}
	}
	for _, f := range m.items {
		if f.Slug == in.Slug {
			return nil, fmt.Errorf("insert frequency: %w", repo.ErrAlreadyExists)
		}
	}
	f := &domain.Frequency{ID: uuid.New(), Name: in.Name, Slug: in.Slug, Recurrence: rule,
		WindowStart: in.WindowStart, WindowEnd: in.WindowEnd, NominalInterval: 7}
	m.items[f.ID] = f
	return f, nil
}

func (m *memFrequencies) Get(_ context.Context, id uuid.UUID) (*domain.Frequency, error) {
	f, ok := m.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return f, nil
}

func (m *memFrequencies) GetBySlug(_ context.Context, slug string) (*domain.Frequency, error) {
	for _, f := range m.items {
		if f.Slug == slug {
			return f, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memFrequencies) List(_ context.Context) ([]domain.Frequency, error) {
	out := make([]domain.Frequency, 0, len(m.items))
	for _, f := range m.items {
		out = append(out, *f)
	}
	return out, nil
}

func (m *memFrequencies) Update(_ context.Context, id uuid.UUID, in scheduler.FrequencyInput) (*domain.Frequency, error) {
	f, ok := m.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	f.Name = in.Name
	f.Slug = in.Slug
	f.WindowStart = in.WindowStart
	f.WindowEnd = in.WindowEnd
	return f, nil
}

func (m *memFrequencies) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newTestServer(t *testing.T, schedules ScheduleService, frequencies FrequencyService) *httptest.Server {
	t.Helper()
	h := NewHandler(Config{
		Schedules:   schedules,
		Frequencies: frequencies,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeData[T any](t *testing.T, data []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
	return env.Data
}

func decodeError(t *testing.T, data []byte) ErrorDetail {
	t.Helper()
	var env ErrorResponse
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error %s: %v", data, err)
	}
	return env.Error
}

func weeklyFrequency() *domain.Frequency {
	ws := 0
	return &domain.Frequency{
		ID:              uuid.New(),
		Name:            "Weekly",
		Slug:            "weekly",
		Recurrence:      recurrence.MustParse("FREQ=WEEKLY"),
		WindowStart:     &ws,
		WindowEnd:       1,
		NominalInterval: 7,
	}
}

func viewOf(s *domain.Schedule, f *domain.Frequency, status domain.DueStatus) *scheduler.ScheduleView {
	return &scheduler.ScheduleView{Schedule: s, Frequency: f, Status: status}
}
