// Package response writes the API's JSON envelopes.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
)

// Response is the success envelope. Data is always present so an empty
// list is rendered as [] rather than dropped.
type Response struct {
	Data any `json:"data"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error *apierrors.APIError `json:"error"`
}

// JSON writes data in the success envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Data: data})
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err in the error envelope. Errors that are not APIErrors are
// logged and reported to the client as internal errors.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierrors.AsAPIError(err)
	if apiErr == apierrors.ErrInternal && err != apierrors.ErrInternal {
		slog.Error("unhandled error", slog.String("error", err.Error()))
	}
	write(w, apiErr.StatusCode, ErrorResponse{Error: apiErr})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
