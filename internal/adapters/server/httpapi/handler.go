// Package httpapi provides the REST HTTP adapter for the task API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/evanschultz/tasktree/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	tasks common.TaskService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// PageEnvelope is the JSON shape of one paginated task listing.
type PageEnvelope struct {
	Data           []common.Task `json:"data"`
	PageNumber     int           `json:"pageNumber"`
	PageSize       int           `json:"pageSize"`
	PageCount      int           `json:"pageCount"`
	TotalItemCount int           `json:"totalItemCount"`
	NextPage       *string       `json:"nextPage,omitempty"`
	PreviousPage   *string       `json:"previousPage,omitempty"`
}

// NewHandler constructs one HTTP API adapter over the task service.
func NewHandler(tasks common.TaskService) *Handler {
	return &Handler{tasks: tasks}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "task service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch path {
	case "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleListTasks(w, r)
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	case "groups/rebalance":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleRebalanceGroup(w, r)
		return
	case "groups/events":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleGroupEvents(w, r)
		return
	}

	taskID, sub, ok := resolveTaskRoute(path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.handleGetTask(w, r, taskID)
		case http.MethodPut:
			h.handleUpdateTask(w, r, taskID)
		case http.MethodDelete:
			h.handleDeleteTask(w, r, taskID)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case "subtasks":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListSubTasks(w, r, taskID)
	case "position":
		if r.Method != http.MethodPut {
			writeMethodNotAllowed(w, http.MethodPut)
			return
		}
		h.handleMoveTask(w, r, taskID)
	case "events":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleTaskEvents(w, r, taskID)
	}
}

// handleListTasks serves GET `/tasks`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	page, err := h.tasks.ListTasks(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageEnvelope(r, req, page))
}

// handleListSubTasks serves GET `/tasks/{id}/subtasks`.
func (h *Handler) handleListSubTasks(w http.ResponseWriter, r *http.Request, taskID string) {
	req, err := parseListRequest(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.ParentID = taskID
	page, err := h.tasks.ListSubTasks(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageEnvelope(r, req, page))
}

// handleCreateTask serves POST `/tasks`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req common.CreateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, createTaskSchema, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.tasks.CreateTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Location", requestPath(r)+"/"+url.PathEscape(task.ID))
	writeJSON(w, http.StatusCreated, task)
}

// handleGetTask serves GET `/tasks/{id}`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask serves PUT `/tasks/{id}`.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req common.UpdateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, updateTaskSchema, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.TaskID = taskID
	if _, err := h.tasks.UpdateTask(r.Context(), req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteTask serves DELETE `/tasks/{id}`.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if err := h.tasks.DeleteTask(r.Context(), taskID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveTask serves PUT `/tasks/{id}/position`.
func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req common.MoveTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, moveTaskSchema, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.TaskID = taskID
	if err := h.tasks.MoveTask(r.Context(), req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRebalanceGroup serves POST `/groups/rebalance`.
func (h *Handler) handleRebalanceGroup(w http.ResponseWriter, r *http.Request) {
	var req common.RebalanceGroupRequest
	if err := decodeJSONBody(r.Context(), w, r, rebalanceGroupSchema, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.tasks.RebalanceGroup(r.Context(), req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTaskEvents serves GET `/tasks/{id}/events`.
func (h *Handler) handleTaskEvents(w http.ResponseWriter, r *http.Request, taskID string) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	events, err := h.tasks.ListTaskEvents(r.Context(), taskID, limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleGroupEvents serves GET `/groups/events`.
func (h *Handler) handleGroupEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	parentID := strings.TrimSpace(r.URL.Query().Get("parentId"))
	events, err := h.tasks.ListGroupEvents(r.Context(), parentID, limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// parseListRequest reads pageNumber, pageSize and sortOrder query parameters.
func parseListRequest(r *http.Request) (common.ListTasksRequest, error) {
	pageNumber, err := queryInt(r, "pageNumber")
	if err != nil {
		return common.ListTasksRequest{}, err
	}
	pageSize, err := queryInt(r, "pageSize")
	if err != nil {
		return common.ListTasksRequest{}, err
	}
	return common.ListTasksRequest{
		SortOrder:  strings.TrimSpace(r.URL.Query().Get("sortOrder")),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

// queryInt parses one optional integer query parameter; absent values are zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("query parameter %s must be a non-negative integer: %w", name, common.ErrInvalidRequest)
	}
	return value, nil
}

// pageEnvelope renders one page with navigation links relative to the request path.
func pageEnvelope(r *http.Request, req common.ListTasksRequest, page common.TaskPage) PageEnvelope {
	out := PageEnvelope{
		Data:           page.Items,
		PageNumber:     page.PageNumber,
		PageSize:       page.PageSize,
		PageCount:      page.PageCount,
		TotalItemCount: page.TotalCount,
	}
	if out.Data == nil {
		out.Data = []common.Task{}
	}
	if page.HasNext {
		link := pageLink(r, req.SortOrder, page.PageNumber+1, page.PageSize)
		out.NextPage = &link
	}
	if page.HasPrevious {
		link := pageLink(r, req.SortOrder, page.PageNumber-1, page.PageSize)
		out.PreviousPage = &link
	}
	return out
}

func pageLink(r *http.Request, sortOrder string, pageNumber, pageSize int) string {
	values := url.Values{}
	values.Set("pageNumber", strconv.Itoa(pageNumber))
	values.Set("pageSize", strconv.Itoa(pageSize))
	if sortOrder != "" {
		values.Set("sortOrder", sortOrder)
	}
	return requestPath(r) + "?" + values.Encode()
}

// requestPath returns the original request path, before any prefix stripping.
func requestPath(r *http.Request) string {
	if r.RequestURI != "" {
		if parsed, err := url.ParseRequestURI(r.RequestURI); err == nil && parsed.Path != "" {
			return strings.TrimSuffix(parsed.Path, "/")
		}
	}
	return strings.TrimSuffix(r.URL.Path, "/")
}

// resolveTaskRoute parses `tasks/{id}` and `tasks/{id}/{sub}` paths.
func resolveTaskRoute(path string) (string, string, bool) {
	const prefix = "tasks/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	id := strings.TrimSpace(parts[0])
	if id == "" || len(parts) > 2 {
		return "", "", false
	}
	if len(parts) == 1 {
		return id, "", true
	}
	switch parts[1] {
	case "subtasks", "position", "events":
		return id, parts[1], true
	default:
		return "", "", false
	}
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "write_conflict",
			Message: err.Error(),
			Hint:    "Retry the request.",
		})
	case errors.Is(err, common.ErrTooManyTasks):
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "too_many_tasks",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrPositionExhausted):
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "position_exhausted",
			Message: err.Error(),
			Hint:    "Rebalance the group and retry.",
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody validates one required JSON body against schema, then decodes it strictly into out.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	if schema != nil {
		if err := schema.Validate(document); err != nil {
			return fmt.Errorf("validate request body: %s: %w", schemaViolation(err), common.ErrInvalidRequest)
		}
	}

	strict := json.NewDecoder(bytes.NewReader(body))
	strict.DisallowUnknownFields()
	if err := strict.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
