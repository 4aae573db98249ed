package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
)

// ListFrequencies возвращает все частоты, от самых частых к самым редким.
// GET /api/v1/frequencies
func (h *Handler) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	frequencies, err := h.frequencies.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]FrequencyResponse, len(frequencies))
	for i := range frequencies {
		result[i] = FrequencyFromDomain(&frequencies[i])
	}

	List(w, result, len(result))
}

// CreateFrequency создаёт частоту.
// POST /api/v1/frequencies
func (h *Handler) CreateFrequency(w http.ResponseWriter, r *http.Request) {
	var req FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	f, err := h.frequencies.Create(r.Context(), req.input())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Created(w, FrequencyFromDomain(f))
}

// GetFrequency возвращает частоту по ID или slug.
// GET /api/v1/frequencies/{ref}
func (h *Handler) GetFrequency(w http.ResponseWriter, r *http.Request) {
	f, ok := h.resolveFrequency(w, r, r.PathValue("ref"))
	if !ok {
		return
	}
	Success(w, FrequencyFromDomain(f))
}

// UpdateFrequency заменяет данные частоты. Номинальный интервал пересчитывается.
// PUT /api/v1/frequencies/{ref}
func (h *Handler) UpdateFrequency(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.resolveFrequency(w, r, r.PathValue("ref"))
	if !ok {
		return
	}

	var req FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Slug == "" {
		req.Slug = existing.Slug
	}

	f, err := h.frequencies.Update(r.Context(), existing.ID, req.input())
	if HandleRepoError(w, h.logger, err, "frequency not found") {
		return
	}

	Success(w, FrequencyFromDomain(f))
}

// DeleteFrequency удаляет частоту. 422, если на неё ссылаются schedules.
// DELETE /api/v1/frequencies/{ref}
func (h *Handler) DeleteFrequency(w http.ResponseWriter, r *http.Request) {
	f, ok := h.resolveFrequency(w, r, r.PathValue("ref"))
	if !ok {
		return
	}

	if HandleRepoError(w, h.logger, h.frequencies.Delete(r.Context(), f.ID), "frequency not found") {
		return
	}

	NoContent(w)
}

// resolveFrequency ищет частоту по UUID, а если ref не UUID — по slug.
func (h *Handler) resolveFrequency(w http.ResponseWriter, r *http.Request, ref string) (*domain.Frequency, bool) {
	var (
		f   *domain.Frequency
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		f, err = h.frequencies.Get(r.Context(), id)
	} else {
		f, err = h.frequencies.GetBySlug(r.Context(), ref)
	}
	if HandleRepoError(w, h.logger, err, "frequency not found") {
		return nil, false
	}
	return f, true
}
