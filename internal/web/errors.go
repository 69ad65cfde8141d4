package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/response"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// fail maps a domain error onto the response envelope. Unknown errors are
// logged and reported as 500 without their text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrForbidden):
		response.Forbidden(w, err.Error())

	case errors.Is(err, property.ErrNotFound),
		errors.Is(err, slot.ErrNotFound),
		errors.Is(err, application.ErrNotFound),
		errors.Is(err, visit.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrKeyNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, slot.ErrFull),
		errors.Is(err, slot.ErrUnavailable),
		errors.Is(err, slot.ErrHasBookings),
		errors.Is(err, slot.ErrCapacityBelowBookings),
		errors.Is(err, slot.ErrBookedSlotMoved),
		errors.Is(err, slot.ErrNoBookings),
		errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, application.ErrStaleStatus),
		errors.Is(err, application.ErrDuplicate),
		errors.Is(err, visit.ErrNotScheduled),
		errors.Is(err, auth.ErrUserExists):
		response.Conflict(w, err.Error())

	case errors.Is(err, slot.ErrInvalid),
		errors.Is(err, property.ErrInvalid),
		errors.Is(err, scheduling.ErrNoSlotsSelected),
		errors.Is(err, scheduling.ErrSlotNotProposed),
		errors.Is(err, scheduling.ErrSlotNotBookable),
		errors.Is(err, scheduling.ErrWrongProperty),
		errors.Is(err, scheduling.ErrUseDedicatedFlow):
		response.Validation(w, err.Error())

	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.Internal(w, "internal error")
	}
}
