package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/response"
)

type propertyRequest struct {
	Title     string `json:"title"`
	Address   string `json:"address"`
	City      string `json:"city"`
	RentCents *int64 `json:"rent_cents"`
}

// listProperties returns properties, newest first.
// Query: mine=true limits to the caller's own, city filters by city.
func (s *Server) listProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props, err := s.svc.ListProperties(r.Context(), principal(r), q.Get("mine") == "true", strings.TrimSpace(q.Get("city")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, props, http.StatusOK)
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	p, err := s.svc.CreateProperty(r.Context(), principal(r), property.Property{
		Title:     strings.TrimSpace(req.Title),
		Address:   strings.TrimSpace(req.Address),
		City:      strings.TrimSpace(req.City),
		RentCents: req.RentCents,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, p, http.StatusCreated)
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	p, err := s.svc.GetProperty(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, p, http.StatusOK)
}

func (s *Server) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	if err := s.svc.DeleteProperty(r.Context(), principal(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, map[string]interface{}{"id": id, "deleted": true}, http.StatusOK)
}
