package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FrequencyResponse — частота из API.
type FrequencyResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Recurrence      string  `json:"recurrence"`
	WindowStart     *int    `json:"window_start"`
	WindowEnd       int     `json:"window_end"`
	Classical       bool    `json:"classical"`
	NominalInterval float64 `json:"nominal_interval"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FrequencyID  string `json:"frequency_id,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	DueStatus    string `json:"due_status"`
	WindowStart  string `json:"window_start,omitempty"`
	WindowEnd    string `json:"window_end,omitempty"`
	AutoSchedule bool   `json:"auto_schedule"`
	Active       bool   `json:"active"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// WindowResponse — QC-окно schedule из API.
type WindowResponse struct {
	ScheduleID string `json:"schedule_id"`
	DueDate    string `json:"due_date,omitempty"`
	DueStatus  string `json:"due_status"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
}

// PerformanceResponse — запись о выполнении из API.
type PerformanceResponse struct {
	ID                  string `json:"id"`
	ScheduleID          string `json:"schedule_id"`
	CompletedAt         string `json:"completed_at"`
	CountsForScheduling bool   `json:"counts_for_scheduling"`
	Valid               bool   `json:"valid"`
	Comment             string `json:"comment,omitempty"`
	IdempotencyKey      string `json:"idempotency_key,omitempty"`
	CreatedAt           string `json:"created_at"`
}

// PerformanceResultResponse — запись и schedule после пересчёта.
type PerformanceResultResponse struct {
	Performance PerformanceResponse `json:"performance"`
	Schedule    ScheduleResponse    `json:"schedule"`
	Changed     bool                `json:"changed"`
}

// --- Request types ---

// FrequencyRequest — создание или замена частоты.
type FrequencyRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Recurrence  string `json:"recurrence"`
	WindowStart *int   `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name         string     `json:"name"`
	Frequency    string     `json:"frequency,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AutoSchedule *bool      `json:"auto_schedule,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name         *string `json:"name,omitempty"`
	FrequencyID  *string `json:"frequency_id,omitempty"`
	Frequency    *string `json:"frequency,omitempty"`
	AutoSchedule *bool   `json:"auto_schedule,omitempty"`
	Active       *bool   `json:"active,omitempty"`
	AssignedTo   *string `json:"assigned_to,omitempty"`
}

// RecordPerformanceRequest — запись выполнения.
type RecordPerformanceRequest struct {
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CountsForScheduling *bool      `json:"counts_for_scheduling,omitempty"`
	Comment             string     `json:"comment,omitempty"`
	IdempotencyKey      string     `json:"idempotency_key,omitempty"`
}

// ListSchedulesOpts — параметры фильтрации schedules.
type ListSchedulesOpts struct {
	Frequency string
	Status    string
	Active    *bool
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для QCSched API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Frequencies ---

// ListFrequencies возвращает все частоты.
func (c *Client) ListFrequencies() ([]FrequencyResponse, error) {
	var frequencies []FrequencyResponse
	err := c.list("/api/v1/frequencies", nil, &frequencies)
	return frequencies, err
}

// CreateFrequency создаёт частоту.
func (c *Client) CreateFrequency(req FrequencyRequest) (*FrequencyResponse, error) {
	var f FrequencyResponse
	err := c.post("/api/v1/frequencies", req, &f)
	return &f, err
}

// GetFrequency возвращает частоту по ID или slug.
func (c *Client) GetFrequency(ref string) (*FrequencyResponse, error) {
	var f FrequencyResponse
	err := c.get("/api/v1/frequencies/"+url.PathEscape(ref), &f)
	return &f, err
}

// UpdateFrequency заменяет частоту.
func (c *Client) UpdateFrequency(ref string, req FrequencyRequest) (*FrequencyResponse, error) {
	var f FrequencyResponse
	err := c.put("/api/v1/frequencies/"+url.PathEscape(ref), req, &f)
	return &f, err
}

// DeleteFrequency удаляет частоту.
func (c *Client) DeleteFrequency(ref string) error {
	return c.delete("/api/v1/frequencies/" + url.PathEscape(ref))
}

// --- Schedules ---

// ListSchedules возвращает schedules с фильтрацией.
func (c *Client) ListSchedules(opts ListSchedulesOpts) ([]ScheduleResponse, error) {
	params := url.Values{}
	if opts.Frequency != "" {
		params.Set("frequency", opts.Frequency)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Active != nil {
		params.Set("active", strconv.FormatBool(*opts.Active))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// GetWindow возвращает QC-окно текущего due date.
func (c *Client) GetWindow(id string) (*WindowResponse, error) {
	var window WindowResponse
	err := c.get("/api/v1/schedules/"+id+"/window", &window)
	return &window, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// SetDueDate задаёт due date вручную. nil очищает его.
func (c *Client) SetDueDate(id string, due *time.Time) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]*time.Time{"due_date": due}
	err := c.put("/api/v1/schedules/"+id+"/due-date", body, &schedule)
	return &schedule, err
}

// Recompute пересчитывает due date по истории выполнений.
func (c *Client) Recompute(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules/"+id+"/recompute", nil, &schedule)
	return &schedule, err
}

// --- Performances ---

// RecordPerformance записывает выполнение.
func (c *Client) RecordPerformance(scheduleID string, req RecordPerformanceRequest) (*PerformanceResultResponse, error) {
	var res PerformanceResultResponse
	err := c.post("/api/v1/schedules/"+scheduleID+"/performances", req, &res)
	return &res, err
}

// ListPerformances возвращает историю выполнений schedule.
func (c *Client) ListPerformances(scheduleID string, limit int) ([]PerformanceResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var records []PerformanceResponse
	err := c.list("/api/v1/schedules/"+scheduleID+"/performances", params, &records)
	return records, err
}

// SetPerformanceValid аннулирует или восстанавливает запись.
func (c *Client) SetPerformanceValid(id string, valid bool) (*PerformanceResultResponse, error) {
	var res PerformanceResultResponse
	body := map[string]bool{"valid": valid}
	err := c.put("/api/v1/performances/"+id+"/valid", body, &res)
	return &res, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	if er.Error.Field != "" {
		return fmt.Errorf("%s: %s: %s", er.Error.Code, er.Error.Field, er.Error.Message)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
