package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/visit-scheduler/internal/response"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
	"github.com/evcraddock/visit-scheduler/internal/slot"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type saveSlotsRequest struct {
	Slots []slot.Draft `json:"slots"`
}

type generateRequest struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	DayStart        string   `json:"day_start"`
	DayEnd          string   `json:"day_end"`
	DurationMinutes int      `json:"duration_minutes"`
	Capacity        int      `json:"capacity"`
	Group           bool     `json:"group"`
	Weekdays        []string `json:"weekdays"`
}

// slotFilter reads ?time= and ?type= from the query string.
func slotFilter(r *http.Request) (slot.Filter, error) {
	q := r.URL.Query()
	return slot.ParseFilter(q.Get("time"), q.Get("type"))
}

// listSlots returns a property's slots.
// Query: bookable=true hides full, disabled and past slots.
func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	f, err := slotFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookable, _ := strconv.ParseBool(r.URL.Query().Get("bookable"))

	slots, err := s.svc.ListSlots(r.Context(), id, scheduling.SlotQuery{BookableOnly: bookable, Filter: f})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, slots, http.StatusOK)
}

// saveSlots replaces the property's slots with the editor rows.
func (s *Server) saveSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	var req saveSlotsRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	saved, err := s.svc.SaveSlots(r.Context(), principal(r), id, req.Slots)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, saved, http.StatusOK)
}

// generateSlots returns draft rows for a recurring window. Nothing is saved.
func (s *Server) generateSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	var req generateRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	weekdays, err := slot.ParseWeekdays(req.Weekdays)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	drafts, err := s.svc.GenerateSlots(r.Context(), principal(r), id, slot.GenerateOptions{
		From:     req.From,
		To:       req.To,
		DayStart: req.DayStart,
		DayEnd:   req.DayEnd,
		Duration: time.Duration(req.DurationMinutes) * time.Minute,
		Capacity: req.Capacity,
		Group:    req.Group,
		Weekdays: weekdays,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, saveSlotsRequest{Slots: drafts}, http.StatusOK)
}

// exportSlots streams the property's schedule as an XLSX workbook.
func (s *Server) exportSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}

	var buf bytes.Buffer
	if err := s.svc.ExportSchedule(r.Context(), principal(r), id, &buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="schedule-%d.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) updateSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	var patch slot.Patch
	if err := decode(r, &patch); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	updated, err := s.svc.UpdateSlot(r.Context(), principal(r), id, chi.URLParam(r, "slotID"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, updated, http.StatusOK)
}

func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(r)
	if !ok {
		response.BadRequest(w, "invalid property ID")
		return
	}
	slotID := chi.URLParam(r, "slotID")
	if err := s.svc.DeleteSlot(r.Context(), principal(r), id, slotID); err != nil {
		s.fail(w, r, err)
		return
	}
	response.JSON(w, map[string]interface{}{"id": slotID, "deleted": true}, http.StatusOK)
}
