package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"secretburner/internal/domain"

	"go.uber.org/zap"
)

// errorRes is the stable error envelope: a top-level detail plus optional
// field-level entries.
type errorRes struct {
	Detail string              `json:"detail"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorRes{Detail: detail})
}

// writeError maps service errors to responses. Not-found style errors keep
// their generic message; anything unexpected collapses to a 500 without
// detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorRes{
			Detail: "validation failed",
			Errors: verr.Errors,
		})
	case errors.Is(err, domain.ErrSecretNotFound),
		errors.Is(err, domain.ErrRequestNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrVerificationNotFound),
		errors.Is(err, domain.ErrVerificationCodeMismatch),
		errors.Is(err, domain.ErrEmailVerification):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
