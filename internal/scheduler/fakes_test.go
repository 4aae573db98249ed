package scheduler

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
)

// memDB — хранилище в памяти с теми же гарантиями, что и PostgreSQL:
// LockedUpdate сериализует изменения одного schedule.
type memDB struct {
	mu          sync.Mutex
	schedules   map[uuid.UUID]domain.Schedule
	frequencies map[uuid.UUID]domain.Frequency
	records     []domain.PerformanceRecord
	notified    map[uuid.UUID]time.Time
	rowLocks    map[uuid.UUID]*sync.Mutex

	// onLock вызывается после захвата блокировки строки, до fn.
	onLock func(s *domain.Schedule)
}

func newMemDB() *memDB {
	return &memDB{
		schedules:   make(map[uuid.UUID]domain.Schedule),
		frequencies: make(map[uuid.UUID]domain.Frequency),
		notified:    make(map[uuid.UUID]time.Time),
		rowLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (db *memDB) rowLock(id uuid.UUID) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		db.rowLocks[id] = l
	}
	return l
}

type memSchedules struct{ db *memDB }

func (m memSchedules) Create(_ context.Context, s *domain.Schedule) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.schedules[s.ID]; ok {
		return repo.ErrAlreadyExists
	}
	m.db.schedules[s.ID] = cloneSchedule(*s)
	return nil
}

func (m memSchedules) GetByID(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.schedules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := cloneSchedule(s)
	return &c, nil
}

func (m memSchedules) List(_ context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.Schedule
	for _, s := range m.db.schedules {
		if filter.FrequencyID != nil && !sameUUID(s.FrequencyID, filter.FrequencyID) {
			continue
		}
		if filter.Active != nil && s.Active != *filter.Active {
			continue
		}
		out = append(out, cloneSchedule(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memSchedules) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	active := true
	return m.List(ctx, repo.ScheduleFilter{Active: &active})
}

func (m memSchedules) Update(_ context.Context, s *domain.Schedule) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	old, ok := m.db.schedules[s.ID]
	if !ok {
		return repo.ErrNotFound
	}
	c := cloneSchedule(*s)
	c.DueDate = old.DueDate
	m.db.schedules[s.ID] = c
	return nil
}

func (m memSchedules) Delete(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.schedules[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.db.schedules, id)
	return nil
}

func (m memSchedules) LockedUpdate(ctx context.Context, id uuid.UUID, fn func(s *domain.Schedule) (bool, error)) (*domain.Schedule, error) {
	l := m.db.rowLock(id)
	l.Lock()
	defer l.Unlock()

	s, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.db.onLock != nil {
		m.db.onLock(s)
	}

	save, err := fn(s)
	if err != nil {
		return nil, err
	}
	if save {
		m.db.mu.Lock()
		stored := m.db.schedules[id]
		stored.SetDueDate(s.DueDate)
		m.db.schedules[id] = stored
		m.db.mu.Unlock()
	}
	return s, nil
}

func (m memSchedules) MarkOverdueNotified(_ context.Context, id uuid.UUID, due time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if prev, ok := m.db.notified[id]; ok && prev.Equal(due) {
		return false, nil
	}
	m.db.notified[id] = due
	return true, nil
}

func (m memSchedules) ResetOverdueNotified(_ context.Context, id uuid.UUID, due time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if prev, ok := m.db.notified[id]; ok && prev.Equal(due) {
		delete(m.db.notified, id)
	}
	return nil
}

type memFrequencies struct{ db *memDB }

func (m memFrequencies) Create(_ context.Context, f *domain.Frequency) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.frequencies {
		if existing.Slug == f.Slug {
			return repo.ErrAlreadyExists
		}
	}
	m.db.frequencies[f.ID] = *f
	return nil
}

func (m memFrequencies) GetByID(_ context.Context, id uuid.UUID) (*domain.Frequency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	f, ok := m.db.frequencies[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &f, nil
}

func (m memFrequencies) GetBySlug(_ context.Context, slug string) (*domain.Frequency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, f := range m.db.frequencies {
		if f.Slug == slug {
			return &f, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m memFrequencies) List(_ context.Context) ([]domain.Frequency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]domain.Frequency, 0, len(m.db.frequencies))
	for _, f := range m.db.frequencies {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NominalInterval < out[j].NominalInterval })
	return out, nil
}

func (m memFrequencies) Update(_ context.Context, f *domain.Frequency) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.frequencies[f.ID]; !ok {
		return repo.ErrNotFound
	}
	m.db.frequencies[f.ID] = *f
	return nil
}

func (m memFrequencies) Delete(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.frequencies[id]; !ok {
		return repo.ErrNotFound
	}
	for _, s := range m.db.schedules {
		if s.FrequencyID != nil && *s.FrequencyID == id {
			return repo.ErrInvalidState
		}
	}
	delete(m.db.frequencies, id)
	return nil
}

type memPerformances struct{ db *memDB }

func (m memPerformances) Create(_ context.Context, p *domain.PerformanceRecord) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if p.IdempotencyKey != "" {
		for _, r := range m.db.records {
			if r.IdempotencyKey == p.IdempotencyKey {
				return repo.ErrAlreadyExists
			}
		}
	}
	m.db.records = append(m.db.records, *p)
	return nil
}

func (m memPerformances) GetByID(_ context.Context, id uuid.UUID) (*domain.PerformanceRecord, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m memPerformances) ListBySchedule(_ context.Context, scheduleID uuid.UUID, limit int) ([]domain.PerformanceRecord, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.PerformanceRecord
	for _, r := range m.db.records {
		if r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memPerformances) LatestQualifying(ctx context.Context, scheduleID uuid.UUID) (*domain.PerformanceRecord, error) {
	records, err := m.ListBySchedule(ctx, scheduleID, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	last := domain.LatestQualifying(records)
	if last == nil {
		return nil, repo.ErrNotFound
	}
	return last, nil
}

func (m memPerformances) SetValid(_ context.Context, id uuid.UUID, valid bool) (*domain.PerformanceRecord, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for i := range m.db.records {
		if m.db.records[i].ID == id {
			m.db.records[i].Valid = valid
			r := m.db.records[i]
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

type fakePublisher struct {
	mu         sync.Mutex
	dueChanged []mq.DueChangedPayload
	overdue    []mq.OverduePayload
	err        error
}

func (p *fakePublisher) PublishDueChanged(_ context.Context, payload mq.DueChangedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.dueChanged = append(p.dueChanged, payload)
	return nil
}

func (p *fakePublisher) PublishOverdue(_ context.Context, payload mq.OverduePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.overdue = append(p.overdue, payload)
	return nil
}

func cloneSchedule(s domain.Schedule) domain.Schedule {
	c := s
	c.SetDueDate(s.DueDate)
	if s.FrequencyID != nil {
		id := *s.FrequencyID
		c.FrequencyID = &id
	}
	return c
}
