package scheduling

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/message"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// GetApplication returns an application visible to the actor.
func (s *Service) GetApplication(ctx context.Context, actor auth.Principal, id string) (*application.Application, error) {
	a, _, err := viewableApplication(ctx, s.db, actor, id)
	return a, err
}

// ListApplications returns a property's applications for its owner.
func (s *Service) ListApplications(ctx context.Context, actor auth.Principal, propertyID int64) ([]*application.Application, error) {
	if _, err := ownedProperty(ctx, s.db, actor, propertyID); err != nil {
		return nil, err
	}
	return application.NewRepository(s.db).ListByProperty(ctx, propertyID)
}

// MyApplications returns the actor's own applications.
func (s *Service) MyApplications(ctx context.Context, actor auth.Principal) ([]*application.Application, error) {
	return application.NewRepository(s.db).ListByTenant(ctx, actor.UserID)
}

// History returns an application's status changes.
func (s *Service) History(ctx context.Context, actor auth.Principal, id string) ([]application.StatusEvent, error) {
	if _, _, err := viewableApplication(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	return application.NewRepository(s.db).History(ctx, id)
}

// Messages returns an application's messages.
func (s *Service) Messages(ctx context.Context, actor auth.Principal, id string) ([]*message.Message, error) {
	if _, _, err := viewableApplication(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	return message.NewRepository(s.db).ListByApplication(ctx, id)
}

// Visits returns an application's booked visits.
func (s *Service) Visits(ctx context.Context, actor auth.Principal, id string) ([]*visit.Visit, error) {
	if _, _, err := viewableApplication(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	return visit.NewRepository(s.db).ListByApplication(ctx, id)
}

// Advance applies an owner decision: approve, reject, mark the visit
// completed or select the applicant. visit_proposed and visit_scheduled are
// only reached through Propose and Choose. Completing moves the scheduled
// visit to completed as well.
func (s *Service) Advance(ctx context.Context, actor auth.Principal, id string, to application.Status) (*application.Application, error) {
	if to == application.VisitProposed || to == application.VisitScheduled {
		return nil, fmt.Errorf("%w: %s", ErrUseDedicatedFlow, to)
	}

	var (
		app  *application.Application
		prop *property.Property
		from application.Status
	)
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		apps := application.NewRepository(tx)

		var err error
		app, prop, err = viewableApplication(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !canManage(actor, prop) {
			return fmt.Errorf("%w: only the owner decides on applications", ErrForbidden)
		}
		from = app.Status
		if err := application.CheckTransition(from, to); err != nil {
			return err
		}

		if from == application.VisitScheduled && to == application.VisitCompleted {
			if err := completeScheduledVisit(ctx, tx, app.ID); err != nil {
				return err
			}
		}

		if err := apps.Transition(ctx, app.ID, from, to, actor.UserID); err != nil {
			return err
		}
		app, err = apps.Get(ctx, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, app, from, "", actor)
	s.notifyStatus(ctx, app, prop)
	return app, nil
}

func completeScheduledVisit(ctx context.Context, q db.Querier, applicationID string) error {
	visits := visit.NewRepository(q)
	list, err := visits.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	for _, v := range list {
		if v.Status == visit.Scheduled {
			return visits.UpdateStatus(ctx, v.ID, visit.Completed)
		}
	}
	return nil
}

// UpdateVisit records a visit outcome and propagates it to the application:
// completed and no_show move it to visit_completed; cancelled releases the
// slot place and returns it to visit_proposed so another proposed slot can be
// chosen. The owner may set any outcome; the applicant may only cancel.
func (s *Service) UpdateVisit(ctx context.Context, actor auth.Principal, visitID string, status visit.Status) (*visit.Visit, error) {
	if !status.IsValid() || status == visit.Scheduled {
		return nil, fmt.Errorf("%w: visit status %q", application.ErrInvalidTransition, status)
	}

	var (
		app     *application.Application
		prop    *property.Property
		updated *visit.Visit
		from    application.Status
		slotID  string
	)
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		visits := visit.NewRepository(tx)
		apps := application.NewRepository(tx)

		v, err := visits.Get(ctx, visitID)
		if err != nil {
			return err
		}
		app, prop, err = viewableApplication(ctx, tx, actor, v.ApplicationID)
		if err != nil {
			return err
		}
		if !canManage(actor, prop) && status != visit.Cancelled {
			return fmt.Errorf("%w: only the owner records visit outcomes", ErrForbidden)
		}
		if v.Status != visit.Scheduled {
			return fmt.Errorf("%w: %s is %s", visit.ErrNotScheduled, v.ID, v.Status)
		}
		slotID = v.SlotID
		from = app.Status
		if from != application.VisitScheduled {
			return fmt.Errorf("%w: application is %s", application.ErrInvalidTransition, from)
		}

		if err := visits.UpdateStatus(ctx, v.ID, status); err != nil {
			return err
		}

		to := application.VisitCompleted
		if status == visit.Cancelled {
			to = application.VisitProposed
			if err := slot.NewRepository(tx).Release(ctx, v.SlotID); err != nil {
				return err
			}
		}

		if err := apps.Transition(ctx, app.ID, from, to, actor.UserID); err != nil {
			return err
		}

		if app, err = apps.Get(ctx, app.ID); err != nil {
			return err
		}
		updated, err = visits.Get(ctx, v.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, app, from, slotID, actor)
	s.notifyStatus(ctx, app, prop)
	return updated, nil
}
