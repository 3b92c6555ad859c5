package http

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain and repository errors to HTTP statuses in
// one place, so every handler surfaces the same envelope for the same error.
func handleServiceError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		respondError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, domain.ErrQuantityInvalid):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		respondError(w, http.StatusBadRequest, "email_taken", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrStockNegative):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	default:
		log.WithError(err).Error("internal error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
