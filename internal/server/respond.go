package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
)

const maxBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.GlobalLogger.Warn("Could not write response: " + err.Error())
	}
}

func statusFor(category apperrors.Category) int {
	switch category {
	case apperrors.CategoryInvalidInput:
		return http.StatusBadRequest
	case apperrors.CategoryNotFound:
		return http.StatusNotFound
	case apperrors.CategoryConflict, apperrors.CategoryStateContention, apperrors.CategoryCancelled:
		return http.StatusConflict
	case apperrors.CategoryVerification:
		return http.StatusUnprocessableEntity
	case apperrors.CategoryNetworkTransient, apperrors.CategoryNetworkPermanent:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	category := apperrors.CategoryOf(err)
	status := statusFor(category)
	if status >= http.StatusInternalServerError {
		logging.GlobalLogger.Error(err.Error())
	}
	writeJSON(w, status, models.ErrorResponse{
		Error:    err.Error(),
		Code:     apperrors.CodeOf(err),
		Category: string(category),
	})
}

func invalid(format string, args ...any) error {
	return apperrors.Wrap(fmt.Errorf(format, args...), apperrors.CategoryInvalidInput, "invalid_request", "", false)
}

// decode reads a JSON body into v and validates it. An empty body leaves v
// at its zero value.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil && err != io.EOF {
		return invalid("malformed request body: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return invalid("%v", err)
	}
	return nil
}
