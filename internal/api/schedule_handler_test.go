package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduler"
)

func TestCreateSchedule_ResolvesFrequencySlug(t *testing.T) {
	weekly := weeklyFrequency()
	var got scheduler.ScheduleInput

	stub := &stubSchedules{
		create: func(in scheduler.ScheduleInput) (*scheduler.ScheduleView, error) {
			got = in
			s := &domain.Schedule{ID: uuid.New(), Name: in.Name, FrequencyID: in.FrequencyID,
				AutoSchedule: in.AutoSchedule, Active: in.Active}
			return viewOf(s, weekly, domain.DueStatusNoDueDate), nil
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies(weekly))

	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/schedules", map[string]any{
		"name":      "Linac output",
		"frequency": "weekly",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, data)
	}

	if got.FrequencyID == nil || *got.FrequencyID != weekly.ID {
		t.Errorf("expected frequency %s, got %v", weekly.ID, got.FrequencyID)
	}
	if !got.AutoSchedule || !got.Active {
		t.Error("auto_schedule and active must default to true")
	}

	body := decodeData[ScheduleResponse](t, data)
	if body.Frequency != "weekly" || body.DueStatus != "NO_DUE_DATE" {
		t.Errorf("unexpected response %+v", body)
	}
}

func TestCreateSchedule_Errors(t *testing.T) {
	stub := &stubSchedules{
		create: func(in scheduler.ScheduleInput) (*scheduler.ScheduleView, error) {
			return nil, &scheduler.ValidationError{Field: "name", Message: "is required"}
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies())

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"invalid json", "not an object", http.StatusBadRequest},
		{"unknown frequency slug", map[string]any{"name": "x", "frequency": "nope"}, http.StatusNotFound},
		{"validation", map[string]any{"name": ""}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/schedules", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, resp.StatusCode, data)
			}
		})
	}
}

func TestGetSchedule(t *testing.T) {
	id := uuid.New()
	due := time.Date(2018, 10, 1, 11, 0, 0, 0, time.UTC)
	start := time.Date(2018, 10, 1, 4, 0, 0, 0, time.UTC)

	stub := &stubSchedules{
		get: func(got uuid.UUID) (*scheduler.ScheduleView, error) {
			if got != id {
				return nil, fmt.Errorf("get schedule: %w", repo.ErrNotFound)
			}
			v := viewOf(&domain.Schedule{ID: id, Name: "A", DueDate: &due}, weeklyFrequency(), domain.DueStatusDue)
			v.WindowStart = &start
			return v, nil
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies())

	resp, data := do(t, http.MethodGet, srv.URL+"/api/v1/schedules/"+id.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeData[ScheduleResponse](t, data)
	if body.DueStatus != "DUE" || body.DueDate == nil || !body.DueDate.Equal(due) {
		t.Errorf("unexpected response %+v", body)
	}

	resp, data = do(t, http.MethodGet, srv.URL+"/api/v1/schedules/"+id.String()+"/window", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	win := decodeData[WindowResponse](t, data)
	if win.Start == nil || !win.Start.Equal(start) || win.End != nil {
		t.Errorf("unexpected window %+v", win)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/schedules/"+uuid.NewString(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/schedules/not-a-uuid", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListSchedules_Query(t *testing.T) {
	weekly := weeklyFrequency()
	var got scheduler.ScheduleQuery

	stub := &stubSchedules{
		list: func(q scheduler.ScheduleQuery) ([]scheduler.ScheduleView, error) {
			got = q
			return []scheduler.ScheduleView{
				*viewOf(&domain.Schedule{ID: uuid.New(), Name: "A"}, weekly, domain.DueStatusOverdue),
			}, nil
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies(weekly))

	resp, data := do(t, http.MethodGet, srv.URL+"/api/v1/schedules?frequency=weekly&active=true&status=OVERDUE&limit=10&offset=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	if got.FrequencyID == nil || *got.FrequencyID != weekly.ID {
		t.Errorf("expected frequency filter, got %v", got.FrequencyID)
	}
	if got.Active == nil || !*got.Active {
		t.Error("expected active filter")
	}
	if got.Status != domain.DueStatusOverdue || got.Limit != 10 || got.Offset != 5 {
		t.Errorf("unexpected query %+v", got)
	}

	for _, bad := range []string{"status=LATE", "limit=-1", "offset=x"} {
		resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/schedules?"+bad, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", bad, resp.StatusCode)
		}
	}
}

func TestUpdateSchedule_Frequency(t *testing.T) {
	weekly := weeklyFrequency()
	id := uuid.New()
	var got scheduler.ScheduleUpdate

	stub := &stubSchedules{
		update: func(_ uuid.UUID, upd scheduler.ScheduleUpdate) (*scheduler.ScheduleView, error) {
			got = upd
			return viewOf(&domain.Schedule{ID: id, Name: "A"}, nil, domain.DueStatusNoDueDate), nil
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies(weekly))
	url := srv.URL + "/api/v1/schedules/" + id.String()

	resp, _ := do(t, http.MethodPut, url, map[string]any{"frequency_id": ""})
	if resp.StatusCode != http.StatusOK || !got.ClearFrequency {
		t.Errorf("expected frequency to be cleared, status %d, update %+v", resp.StatusCode, got)
	}

	resp, _ = do(t, http.MethodPut, url, map[string]any{"frequency": "weekly"})
	if resp.StatusCode != http.StatusOK || got.FrequencyID == nil || *got.FrequencyID != weekly.ID {
		t.Errorf("expected frequency by slug, status %d, update %+v", resp.StatusCode, got)
	}

	resp, _ = do(t, http.MethodPut, url, map[string]any{"frequency_id": "bogus"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSetDueDate(t *testing.T) {
	id := uuid.New()
	due := time.Date(2018, 10, 9, 12, 0, 0, 0, time.UTC)
	var stored *time.Time

	stub := &stubSchedules{
		setDue: func(_ uuid.UUID, d *time.Time) (*domain.Schedule, error) {
			stored = d
			return &domain.Schedule{ID: id, DueDate: d}, nil
		},
		get: func(uuid.UUID) (*scheduler.ScheduleView, error) {
			return viewOf(&domain.Schedule{ID: id, DueDate: stored}, nil, domain.DueStatusNotDue), nil
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies())
	url := srv.URL + "/api/v1/schedules/" + id.String() + "/due-date"

	resp, data := do(t, http.MethodPut, url, SetDueDateRequest{DueDate: &due})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}
	if stored == nil || !stored.Equal(due) {
		t.Errorf("expected due %s to be stored, got %v", due, stored)
	}

	resp, _ = do(t, http.MethodPut, url, map[string]any{"due_date": nil})
	if resp.StatusCode != http.StatusOK || stored != nil {
		t.Errorf("expected due date to be cleared, status %d", resp.StatusCode)
	}
}

func TestRecomputeSchedule_Conflict(t *testing.T) {
	stub := &stubSchedules{
		recompute: func(uuid.UUID) (*domain.Schedule, bool, error) {
			return nil, false, fmt.Errorf("recompute: %w", scheduler.ErrScheduleChanged)
		},
	}
	srv := newTestServer(t, stub, newMemFrequencies())

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/schedules/"+uuid.NewString()+"/recompute", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDeleteSchedule(t *testing.T) {
	stub := &stubSchedules{
		del: func(uuid.UUID) error { return nil },
	}
	srv := newTestServer(t, stub, newMemFrequencies())

	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/v1/schedules/"+uuid.NewString(), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestInternalErrorIsHidden(t *testing.T) {
	srv := newTestServer(t, &stubSchedules{}, newMemFrequencies())

	resp, data := do(t, http.MethodGet, srv.URL+"/api/v1/schedules", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if e := decodeError(t, data); e.Message != "internal server error" {
		t.Errorf("internal details leaked: %q", e.Message)
	}
}
