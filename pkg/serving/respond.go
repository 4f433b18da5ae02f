package serving

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"UsageForecaster/pkg/formatting"
	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/running"
	"UsageForecaster/pkg/storing"
)

// errBadRequest marks invalid query or path parameters.
var errBadRequest = errors.New("bad request")

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// Headers are already sent; a failed encode can only truncate the body.
	_ = enc.Encode(data)
}

// writeError maps err onto a status code and writes {error, details}.
func writeError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, formatting.ErrNoData),
		errors.Is(err, models.ErrModelNotFound),
		errors.Is(err, storing.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, running.ErrRunInProgress),
		errors.Is(err, running.ErrRunFinished):
		return http.StatusConflict
	case errors.Is(err, running.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// intParam reads a positive integer query parameter, def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", errBadRequest, name, raw)
	}
	return n, nil
}

// boundedIntParam is intParam rejecting values above max.
func boundedIntParam(r *http.Request, name string, def, max int) (int, error) {
	n, err := intParam(r, name, def)
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, fmt.Errorf("%w: %s must be at most %d, got %d", errBadRequest, name, max, n)
	}
	return n, nil
}

// boolParam reads a boolean query parameter, false when absent.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", errBadRequest, name, raw)
	}
	return b, nil
}
