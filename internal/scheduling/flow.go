package scheduling

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/message"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// Apply files a tenant's application for a property.
func (s *Service) Apply(ctx context.Context, actor auth.Principal, propertyID int64) (*application.Application, error) {
	if _, err := property.NewRepository(s.db).GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	a, err := application.NewRepository(s.db).Create(ctx, propertyID, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.log.Info("application filed",
		zap.String("application_id", a.ID),
		zap.Int64("property_id", propertyID),
		zap.String("tenant", actor.UserID),
	)
	return a, nil
}

// ProposeRequest offers visit slots to an applicant.
type ProposeRequest struct {
	ApplicationID string
	SlotIDs       []string
	Message       string
	Actor         auth.Principal
}

// Propose stores the selected slots and the owner's message and moves the
// application to visit_proposed. Either everything is saved or nothing is.
// On an application that is already visit_proposed it replaces the offer
// without a status change. A booked visit must be cancelled first.
func (s *Service) Propose(ctx context.Context, req ProposeRequest) (*application.Application, error) {
	ids := dedupe(req.SlotIDs)
	if len(ids) == 0 {
		return nil, ErrNoSlotsSelected
	}

	var (
		app     *application.Application
		prop    *property.Property
		offered []*slot.VisitSlot
		from    application.Status
	)
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		apps := application.NewRepository(tx)

		var err error
		app, prop, err = viewableApplication(ctx, tx, req.Actor, req.ApplicationID)
		if err != nil {
			return err
		}
		if !canManage(req.Actor, prop) {
			return fmt.Errorf("%w: only the owner proposes visits", ErrForbidden)
		}
		from = app.Status
		switch from {
		case application.VisitProposed:
		case application.VisitScheduled:
			return fmt.Errorf("%w: application has a booked visit, cancel it before proposing new slots", application.ErrInvalidTransition)
		default:
			if err := application.CheckTransition(from, application.VisitProposed); err != nil {
				return err
			}
		}

		offered, err = slot.NewRepository(tx).ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(offered) != len(ids) {
			return fmt.Errorf("%w: %d of %d selected slots exist", slot.ErrNotFound, len(offered), len(ids))
		}
		now := s.now()
		for _, v := range offered {
			if v.PropertyID != prop.ID {
				return fmt.Errorf("%w: %s", ErrWrongProperty, v.ID)
			}
			if !v.Bookable(now, s.loc) {
				return fmt.Errorf("%w: %s on %s at %s", ErrSlotNotBookable, v.ID, v.Date, v.StartTime)
			}
		}

		if err := apps.SetProposedSlots(ctx, app.ID, ids); err != nil {
			return err
		}
		if req.Message != "" {
			if _, err := message.NewRepository(tx).Add(ctx, app.ID, req.Actor.UserID, message.KindProposal, req.Message); err != nil {
				return err
			}
		}
		if from != application.VisitProposed {
			if err := apps.Transition(ctx, app.ID, from, application.VisitProposed, req.Actor.UserID); err != nil {
				return err
			}
		}
		app, err = apps.Get(ctx, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from == application.VisitProposed {
		s.log.Info("visit proposal refreshed",
			zap.String("application_id", app.ID),
			zap.Int("slots", len(offered)),
			zap.String("actor", req.Actor.UserID),
		)
	} else {
		s.statusChanged(ctx, app, from, "", req.Actor)
	}
	s.notifyProposal(ctx, app, prop, offered, req.Message)
	return app, nil
}

// AvailableSlots returns the application's proposed slots that can still be
// booked, filtered and grouped by date.
func (s *Service) AvailableSlots(ctx context.Context, actor auth.Principal, applicationID string, f slot.Filter) ([]slot.DateGroup, error) {
	if _, _, err := viewableApplication(ctx, s.db, actor, applicationID); err != nil {
		return nil, err
	}
	ids, err := application.NewRepository(s.db).ProposedSlotIDs(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	proposed, err := slot.NewRepository(s.db).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	bookable := slot.FilterBookable(proposed, s.now(), s.loc)
	return slot.GroupByDate(f.Apply(bookable)), nil
}

// ChooseRequest books one proposed slot for an applicant.
type ChooseRequest struct {
	ApplicationID string
	SlotID        string
	Actor         auth.Principal
}

// Choose books the slot and moves the application from visit_proposed to
// visit_scheduled in one transaction. The capacity increment is guarded in
// SQL and the status change is compare-and-set, so concurrent calls can
// neither overfill a slot nor book twice for one application.
func (s *Service) Choose(ctx context.Context, req ChooseRequest) (*visit.Visit, error) {
	if req.SlotID == "" {
		return nil, ErrNoSlotsSelected
	}

	var (
		app    *application.Application
		prop   *property.Property
		chosen *slot.VisitSlot
		booked *visit.Visit
	)
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		apps := application.NewRepository(tx)
		slots := slot.NewRepository(tx)

		var err error
		app, prop, err = viewableApplication(ctx, tx, req.Actor, req.ApplicationID)
		if err != nil {
			return err
		}
		if req.Actor.UserID != app.TenantID && !req.Actor.IsAdmin() {
			return fmt.Errorf("%w: only the applicant chooses a visit slot", ErrForbidden)
		}
		if err := application.CheckTransition(app.Status, application.VisitScheduled); err != nil {
			return err
		}

		proposed, err := apps.IsProposed(ctx, app.ID, req.SlotID)
		if err != nil {
			return err
		}
		if !proposed {
			return fmt.Errorf("%w: %s", ErrSlotNotProposed, req.SlotID)
		}

		chosen, err = slots.Get(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if start, err := chosen.Start(s.loc); err != nil || !start.After(s.now()) {
			return fmt.Errorf("%w: %s has already started", ErrSlotNotBookable, chosen.ID)
		}
		if err := slots.Book(ctx, chosen.ID); err != nil {
			return err
		}

		booked, err = visit.NewRepository(tx).Add(ctx, chosen.ID, app.ID, app.TenantID)
		if err != nil {
			return err
		}
		if err := apps.Transition(ctx, app.ID, application.VisitProposed, application.VisitScheduled, req.Actor.UserID); err != nil {
			return err
		}
		app.Status = application.VisitScheduled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, app, application.VisitProposed, chosen.ID, req.Actor)
	s.notifyScheduled(ctx, app, prop, chosen)
	return booked, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
