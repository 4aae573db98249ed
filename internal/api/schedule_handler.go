package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/scheduler"
)

// ListSchedules возвращает список schedules со статусами.
// GET /api/v1/schedules?frequency=...&active=...&status=...&limit=...&offset=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var q scheduler.ScheduleQuery
	query := r.URL.Query()

	if ref := query.Get("frequency"); ref != "" {
		f, ok := h.resolveFrequency(w, r, ref)
		if !ok {
			return
		}
		q.FrequencyID = &f.ID
	}

	if activeStr := query.Get("active"); activeStr != "" {
		active := activeStr == "true"
		q.Active = &active
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status, ok := domain.ParseDueStatus(statusStr)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		q.Status = status
	}

	var ok bool
	if q.Limit, ok = queryInt(r, "limit", 50); !ok {
		BadRequest(w, "invalid limit")
		return
	}
	if q.Offset, ok = queryInt(r, "offset", 0); !ok {
		BadRequest(w, "invalid offset")
		return
	}

	views, err := h.schedules.ListSchedules(r.Context(), q)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(views))
	for i := range views {
		result[i] = ScheduleFromView(&views[i])
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт schedule.
// POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	in := scheduler.ScheduleInput{
		Name:         req.Name,
		FrequencyID:  req.FrequencyID,
		DueDate:      req.DueDate,
		AutoSchedule: boolOr(req.AutoSchedule, true),
		Active:       boolOr(req.Active, true),
		AssignedTo:   req.AssignedTo,
	}

	if in.FrequencyID == nil && req.Frequency != "" {
		f, ok := h.resolveFrequency(w, r, req.Frequency)
		if !ok {
			return
		}
		in.FrequencyID = &f.ID
	}

	view, err := h.schedules.CreateSchedule(r.Context(), in)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Created(w, ScheduleFromView(view))
}

// GetSchedule возвращает schedule со статусом и окном.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	view, err := h.schedules.GetSchedule(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromView(view))
}

// GetScheduleWindow возвращает QC-окно текущего due date.
// GET /api/v1/schedules/{id}/window
func (h *Handler) GetScheduleWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	view, err := h.schedules.GetSchedule(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, WindowFromView(view))
}

// UpdateSchedule обновляет schedule.
// PUT /api/v1/schedules/{id}
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	upd := scheduler.ScheduleUpdate{
		Name:         req.Name,
		AutoSchedule: req.AutoSchedule,
		Active:       req.Active,
		AssignedTo:   req.AssignedTo,
	}

	switch {
	case req.FrequencyID != nil && strings.TrimSpace(*req.FrequencyID) == "":
		upd.ClearFrequency = true
	case req.FrequencyID != nil:
		fid, err := uuid.Parse(*req.FrequencyID)
		if err != nil {
			BadRequest(w, "invalid frequency_id")
			return
		}
		upd.FrequencyID = &fid
	case req.Frequency != nil:
		f, ok := h.resolveFrequency(w, r, *req.Frequency)
		if !ok {
			return
		}
		upd.FrequencyID = &f.ID
	}

	view, err := h.schedules.UpdateSchedule(r.Context(), id, upd)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromView(view))
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	if HandleRepoError(w, h.logger, h.schedules.DeleteSchedule(r.Context(), id), "schedule not found") {
		return
	}

	NoContent(w)
}

// SetDueDate задаёт due date вручную.
// PUT /api/v1/schedules/{id}/due-date
func (h *Handler) SetDueDate(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	var req SetDueDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if _, err := h.schedules.SetDueDate(r.Context(), id, req.DueDate); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	h.respondSchedule(w, r, id)
}

// RecomputeSchedule пересчитывает due date по истории выполнений.
// POST /api/v1/schedules/{id}/recompute
func (h *Handler) RecomputeSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	if _, _, err := h.schedules.Recompute(r.Context(), id); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	h.respondSchedule(w, r, id)
}

func (h *Handler) respondSchedule(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	view, err := h.schedules.GetSchedule(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}
	Success(w, ScheduleFromView(view))
}

func scheduleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return uuid.Nil, false
	}
	return id, true
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// decodeOptional разбирает тело запроса; пустое тело допустимо.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
