package scheduling

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/email"
	"github.com/evcraddock/visit-scheduler/internal/events"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
)

// statusChanged publishes a committed transition. Failures are logged only:
// the change is already durable.
func (s *Service) statusChanged(ctx context.Context, app *application.Application, from application.Status, slotID string, actor auth.Principal) {
	e := events.StatusChanged(app.ID, app.PropertyID, string(from), string(app.Status), slotID, actor.UserID)
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publishing status change failed",
			zap.String("application_id", app.ID),
			zap.String("to", string(app.Status)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("application status changed",
		zap.String("application_id", app.ID),
		zap.String("from", string(from)),
		zap.String("to", string(app.Status)),
		zap.String("actor", actor.UserID),
	)
}

func (s *Service) applicationLink(app *application.Application) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/applications/%s/available-slots", s.baseURL, app.ID)
}

func (s *Service) notifyProposal(ctx context.Context, app *application.Application, p *property.Property, offered []*slot.VisitSlot, msg string) {
	body := email.FormatProposal(p, slot.GroupByDate(offered), msg, s.applicationLink(app))
	s.send(ctx, app.TenantID, "Visit times proposed: "+p.Label(), body)
}

func (s *Service) notifyScheduled(ctx context.Context, app *application.Application, p *property.Property, chosen *slot.VisitSlot) {
	body := email.FormatScheduled(p, chosen)
	subject := "Visit booked: " + p.Label()
	s.send(ctx, app.TenantID, subject, body)
	s.send(ctx, p.OwnerID, subject, body)
}

func (s *Service) notifyStatus(ctx context.Context, app *application.Application, p *property.Property) {
	s.send(ctx, app.TenantID, "Application update: "+p.Label(), email.FormatStatus(p, app.Status.Label()))
}

func (s *Service) send(ctx context.Context, userID, subject, body string) {
	if s.notify == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.Warn("looking up notification recipient failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.notify.Notify(u.Email, subject, body); err != nil {
		s.log.Warn("sending notification failed", zap.String("to", u.Email), zap.Error(err))
	}
}
