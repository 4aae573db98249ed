package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Frequencies ({ref} — UUID или slug)
	mux.Handle("GET /api/v1/frequencies", chain(http.HandlerFunc(h.ListFrequencies)))
	mux.Handle("POST /api/v1/frequencies", chain(http.HandlerFunc(h.CreateFrequency)))
	mux.Handle("GET /api/v1/frequencies/{ref}", chain(http.HandlerFunc(h.GetFrequency)))
	mux.Handle("PUT /api/v1/frequencies/{ref}", chain(http.HandlerFunc(h.UpdateFrequency)))
	mux.Handle("DELETE /api/v1/frequencies/{ref}", chain(http.HandlerFunc(h.DeleteFrequency)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}/window", chain(http.HandlerFunc(h.GetScheduleWindow)))
	mux.Handle("PUT /api/v1/schedules/{id}/due-date", chain(http.HandlerFunc(h.SetDueDate)))
	mux.Handle("POST /api/v1/schedules/{id}/recompute", chain(http.HandlerFunc(h.RecomputeSchedule)))

	// Performances
	mux.Handle("GET /api/v1/schedules/{id}/performances", chain(http.HandlerFunc(h.ListPerformances)))
	mux.Handle("POST /api/v1/schedules/{id}/performances", chain(http.HandlerFunc(h.RecordPerformance)))
	mux.Handle("PUT /api/v1/performances/{id}/valid", chain(http.HandlerFunc(h.SetPerformanceValid)))
}
