package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// errorResponse is the JSON error envelope returned to clients.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteJSON serializes v and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps an application error to an HTTP status and writes the
// error envelope. Unknown errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorBody{Code: string(apperrors.ErrCodeInternal), Message: "internal error"},
		})
		return
	}

	status := statusForCode(appErr.Code)
	msg := appErr.Message
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteJSON(w, status, errorResponse{
		Error: errorBody{Code: string(appErr.Code), Message: msg, Field: appErr.Field},
	})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case apperrors.ErrCodeAccountBlocked, apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeAccountDeleted:
		return http.StatusGone
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads and unmarshals the request body with a size cap. Malformed
// input yields a validation error suitable for WriteError.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
