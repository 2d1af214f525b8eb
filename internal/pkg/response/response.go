// Package response writes the API's JSON success and error bodies.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.Error("Failed to encode JSON response", err)
	}
}

// Error maps err to its HTTP status and writes the standard error body.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if log != nil {
		if status >= http.StatusInternalServerError {
			log.Error(fmt.Sprintf("Server error: %s", category), err)
		} else {
			log.Debug(fmt.Sprintf("Request rejected with status %d", status), map[string]interface{}{
				"path":     r.URL.Path,
				"category": category,
			})
		}
	}

	JSON(w, log, status, domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// Decode reads a JSON body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.NewValidationError("invalid payload, check the JSON format")
	}
	return nil
}
