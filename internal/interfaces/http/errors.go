package httpinterface

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
)

const (
	reasonValidation   = "validation"
	reasonFraud        = "fraud_detected"
	reasonNotFound     = "not_found"
	reasonConflict     = "conflict"
	reasonSpent        = "asset_already_spent"
	reasonFunds        = "insufficient_funds"
	reasonUnauthorized = "unauthorized"
	reasonBroadcast    = "broadcast_failed"
	reasonUnavailable  = "service_unavailable"
	reasonInternal     = "internal"
)

// parseError maps an application error to its http status and reason.
func parseError(err error) (int, string) {
	var (
		validationErr *marketplace.ValidationError
		fraudErr      *marketplace.FraudError
		broadcastErr  *marketplace.BroadcastError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, reasonValidation
	case errors.As(err, &fraudErr):
		return http.StatusUnprocessableEntity, reasonFraud
	case errors.As(err, &broadcastErr):
		return http.StatusBadGateway, reasonBroadcast
	case errors.Is(err, marketplace.ErrListingNotFound),
		errors.Is(err, marketplace.ErrAttemptNotFound):
		return http.StatusNotFound, reasonNotFound
	case errors.Is(err, marketplace.ErrAssetAlreadySpent):
		return http.StatusConflict, reasonSpent
	case errors.Is(err, marketplace.ErrListingNotOpen),
		errors.Is(err, marketplace.ErrListingNotPending),
		errors.Is(err, marketplace.ErrListingExpired),
		errors.Is(err, marketplace.ErrListingBusy),
		errors.Is(err, marketplace.ErrAssetAlreadyListed),
		errors.Is(err, marketplace.ErrAttemptNotPending):
		return http.StatusConflict, reasonConflict
	case errors.Is(err, marketplace.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, reasonFunds
	case errors.Is(err, marketplace.ErrUnauthorized):
		return http.StatusForbidden, reasonUnauthorized
	case errors.Is(err, marketplace.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, reasonUnavailable
	default:
		return http.StatusInternalServerError, reasonInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, reason := parseError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("unexpected error")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Reason: reason})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: err.Error(), Reason: reasonValidation,
	})
}
