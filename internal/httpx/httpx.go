// Package httpx holds the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"freelancehub/internal/common"
)

type APIError struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Status int    `json:"status"`
}

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, err error, reason string) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	WriteJSON(w, APIError{Error: err.Error(), Reason: reason, Status: status}, status)
}

// ErrorStatus maps a domain error to its HTTP status and reason code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, common.ErrAuth):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteDomainError writes err with the status ErrorStatus picks. Internal errors are
// logged and their detail is not exposed.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
		WriteError(w, status, errors.New("internal server error"), reason)
		return
	}
	WriteError(w, status, err, reason)
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.Validationf("invalid request body: %v", err)
	}
	return nil
}

// PageFromQuery reads ?page= and ?limit= and normalizes them.
func PageFromQuery(r *http.Request, def, max int) common.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return common.NormalizePage(page, limit, def, max)
}

// Paged is the listing envelope returned by paginated endpoints.
type Paged[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int64 `json:"pages"`
}

func NewPaged[T any](items []T, total int64, page common.Page) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{Items: items, Total: total, Page: page.Number, Pages: page.Pages(total)}
}
