package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/scrapekit/handler"
	"github.com/dmitrymomot/scrapekit/pkg/billing"
)

var (
	errInvalidPlan        = handler.NewHTTPError(http.StatusBadRequest, "invalid_plan_id")
	errUserNotFound       = handler.NewHTTPError(http.StatusNotFound, "user_not_found")
	errNoCustomer         = handler.NewHTTPError(http.StatusConflict, "no_processor_customer")
	errTooManyCheckouts   = handler.NewHTTPError(http.StatusTooManyRequests, "too_many_checkouts")
	errProcessor          = handler.NewHTTPError(http.StatusBadGateway, "processor_unavailable")
	errInvalidSignature   = handler.NewHTTPError(http.StatusBadRequest, "invalid_signature")
	errInvalidPayload     = handler.NewHTTPError(http.StatusBadRequest, "invalid_payload")
	errPersistenceFailure = handler.NewHTTPError(http.StatusInternalServerError, "persistence_failure")
)

// MapError converts billing errors for client-facing routes.
func MapError(err error) error {
	var verr handler.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, billing.ErrInvalidPlanID):
		return errInvalidPlan
	case errors.Is(err, billing.ErrUserNotFound):
		return errUserNotFound
	case errors.Is(err, billing.ErrNoProcessorCustomer):
		return errNoCustomer
	case errors.Is(err, billing.ErrTooManyCheckouts):
		return errTooManyCheckouts
	case errors.Is(err, billing.ErrProcessorUnavailable):
		return errProcessor
	case errors.Is(err, billing.ErrPersistenceFailure):
		return errPersistenceFailure
	}
	return err
}

// mapWebhookError decides whether the processor should redeliver.
// Only permanent rejections answer 4xx; unknown users and store failures answer 500.
func mapWebhookError(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return errInvalidSignature
	case errors.Is(err, billing.ErrInvalidPayload):
		return errInvalidPayload
	case errors.Is(err, billing.ErrUserNotFound), errors.Is(err, billing.ErrPersistenceFailure):
		return errPersistenceFailure
	}
	return err
}
