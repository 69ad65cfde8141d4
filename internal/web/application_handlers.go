package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/response"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

type proposeRequest struct {
	SlotIDs []string `json:"slot_ids"`
	Message string   `json:"message"`
}

type chooseRequest struct {
	SlotID string `json:"slot_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func applicationID(r *http.Request) string {
	return chi.URLParam(r, "applicationID")
}

// listApplications returns a property's applications to its owner.
func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	apps, err := s.svc.ListApplications(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, apps, http.StatusOK)
}

// apply files the caller's application for a property.
func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	a, err := s.svc.Apply(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, a, http.StatusCreated)
}

// myApplications returns the caller's own applications.
func (s *Server) myApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.svc.MyApplications(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, apps, http.StatusOK)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.GetApplication(r.Context(), principal(r), applicationID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, a, http.StatusOK)
}

func (s *Server) proposeSlots(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	a, err := s.svc.Propose(r.Context(), scheduling.ProposeRequest{
		ApplicationID: applicationID(r),
		SlotIDs:       req.SlotIDs,
		Message:       req.Message,
		Actor:         principal(r),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, a, http.StatusOK)
}

// availableSlots returns the proposed slots still bookable, grouped by date.
// Query: time=morning|afternoon|evening, type=individual|group.
func (s *Server) availableSlots(w http.ResponseWriter, r *http.Request) {
	f, err := slotFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	groups, err := s.svc.AvailableSlots(r.Context(), principal(r), applicationID(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, groups, http.StatusOK)
}

func (s *Server) chooseSlot(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	v, err := s.svc.Choose(r.Context(), scheduling.ChooseRequest{
		ApplicationID: applicationID(r),
		SlotID:        req.SlotID,
		Actor:         principal(r),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, v, http.StatusCreated)
}

// advanceApplication applies an owner decision to the application.
func (s *Server) advanceApplication(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	to, err := application.ParseStatus(req.Status)
	if err != nil {
		response.Validation(w, err.Error())
		return
	}

	a, err := s.svc.Advance(r.Context(), principal(r), applicationID(r), to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, a, http.StatusOK)
}

func (s *Server) applicationHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.History(r.Context(), principal(r), applicationID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, events, http.StatusOK)
}

func (s *Server) applicationMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Messages(r.Context(), principal(r), applicationID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, msgs, http.StatusOK)
}

func (s *Server) applicationVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := s.svc.Visits(r.Context(), principal(r), applicationID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, visits, http.StatusOK)
}

// updateVisit records a visit outcome: completed, no_show or cancelled.
func (s *Server) updateVisit(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	status := visit.Status(req.Status)
	if !status.IsValid() || status == visit.Scheduled {
		response.Validation(w, "status must be completed, no_show or cancelled")
		return
	}

	v, err := s.svc.UpdateVisit(r.Context(), principal(r), chi.URLParam(r, "visitID"), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, v, http.StatusOK)
}
