package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/scheduler"
)

// ListPerformances возвращает историю выполнений schedule, новые первыми.
// GET /api/v1/schedules/{id}/performances?limit=...
func (h *Handler) ListPerformances(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(r, "limit", 50)
	if !ok {
		BadRequest(w, "invalid limit")
		return
	}

	records, err := h.schedules.ListPerformances(r.Context(), id, limit)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	result := make([]PerformanceResponse, len(records))
	for i := range records {
		result[i] = PerformanceFromDomain(&records[i])
	}

	List(w, result, len(result))
}

// RecordPerformance записывает выполнение и пересчитывает due date.
// POST /api/v1/schedules/{id}/performances
func (h *Handler) RecordPerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	var req RecordPerformanceRequest
	if err := decodeOptional(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	completedAt := time.Now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	res, err := h.schedules.RecordPerformance(r.Context(), scheduler.PerformanceInput{
		ScheduleID:          id,
		CompletedAt:         completedAt,
		CountsForScheduling: boolOr(req.CountsForScheduling, true),
		Comment:             req.Comment,
		IdempotencyKey:      req.IdempotencyKey,
	})
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	h.respondPerformance(w, r, http.StatusCreated, res)
}

// SetPerformanceValid аннулирует или восстанавливает запись и пересчитывает due date.
// PUT /api/v1/performances/{id}/valid
func (h *Handler) SetPerformanceValid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid performance id")
		return
	}

	var req SetValidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	res, err := h.schedules.SetPerformanceValid(r.Context(), id, req.Valid)
	if HandleRepoError(w, h.logger, err, "performance record not found") {
		return
	}

	h.respondPerformance(w, r, http.StatusOK, res)
}

func (h *Handler) respondPerformance(w http.ResponseWriter, r *http.Request, status int, res *scheduler.PerformanceResult) {
	view, err := h.schedules.GetSchedule(r.Context(), res.Record.ScheduleID)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	JSON(w, status, DataResponse{Data: PerformanceResultResponse{
		Performance: PerformanceFromDomain(res.Record),
		Schedule:    ScheduleFromView(view),
		Changed:     res.Changed,
	}})
}
