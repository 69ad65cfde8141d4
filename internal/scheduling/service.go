// Package scheduling coordinates visit proposals, tenant slot selection and
// application status changes. Every multi-step change runs in one database
// transaction; events and emails go out only after it commits.
package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/events"
	"github.com/evcraddock/visit-scheduler/internal/export"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

var (
	ErrForbidden        = errors.New("not allowed")
	ErrSlotNotProposed  = errors.New("visit slot was not proposed for this application")
	ErrNoSlotsSelected  = errors.New("select at least one visit slot")
	ErrSlotNotBookable  = errors.New("visit slot is not bookable")
	ErrWrongProperty    = errors.New("visit slot belongs to another property")
	ErrUseDedicatedFlow = errors.New("use the proposal or selection flow for this status")
)

// Notifier delivers a message to one email address.
type Notifier interface {
	Notify(to, subject, body string) error
}

// Directory looks up users to notify.
type Directory interface {
	GetByID(ctx context.Context, id string) (*auth.User, error)
}

// Options configures a Service. Zero values get working defaults.
type Options struct {
	Location  *time.Location
	Publisher events.Publisher
	Notifier  Notifier
	Directory Directory
	Logger    *zap.Logger
	BaseURL   string
}

// Service implements the visit scheduling workflow.
type Service struct {
	db      *sql.DB
	loc     *time.Location
	now     func() time.Time
	events  events.Publisher
	notify  Notifier
	users   Directory
	log     *zap.Logger
	baseURL string
}

// NewService creates a scheduling service.
func NewService(database *sql.DB, opts Options) *Service {
	s := &Service{
		db:      database,
		loc:     opts.Location,
		now:     time.Now,
		events:  opts.Publisher,
		notify:  opts.Notifier,
		users:   opts.Directory,
		log:     opts.Logger,
		baseURL: opts.BaseURL,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.users == nil {
		s.users = auth.NewUserStore(database)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Location returns the zone slot dates and times are interpreted in.
func (s *Service) Location() *time.Location { return s.loc }

func canManage(actor auth.Principal, p *property.Property) bool {
	return actor.IsAdmin() || actor.UserID == p.OwnerID
}

func canView(actor auth.Principal, p *property.Property, a *application.Application) bool {
	return canManage(actor, p) || actor.UserID == a.TenantID
}

// ownedProperty loads a property the actor manages.
func ownedProperty(ctx context.Context, q db.Querier, actor auth.Principal, propertyID int64) (*property.Property, error) {
	p, err := property.NewRepository(q).GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, fmt.Errorf("%w: property %d belongs to another owner", ErrForbidden, propertyID)
	}
	return p, nil
}

// viewableApplication loads an application visible to the actor with its property.
func viewableApplication(ctx context.Context, q db.Querier, actor auth.Principal, id string) (*application.Application, *property.Property, error) {
	a, err := application.NewRepository(q).Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := property.NewRepository(q).GetByID(ctx, a.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	if !canView(actor, p, a) {
		return nil, nil, fmt.Errorf("%w: application %s", ErrForbidden, id)
	}
	return a, p, nil
}

// CreateProperty adds a property owned by the actor.
func (s *Service) CreateProperty(ctx context.Context, actor auth.Principal, p property.Property) (*property.Property, error) {
	p.OwnerID = actor.UserID
	return property.NewRepository(s.db).Insert(ctx, &p)
}

// ListProperties returns all properties, or only the actor's when mine is set.
func (s *Service) ListProperties(ctx context.Context, actor auth.Principal, mine bool, city string) ([]*property.Property, error) {
	opts := property.ListOptions{City: city}
	if mine {
		opts.OwnerID = actor.UserID
	}
	return property.NewRepository(s.db).List(ctx, opts)
}

// GetProperty returns one property.
func (s *Service) GetProperty(ctx context.Context, id int64) (*property.Property, error) {
	return property.NewRepository(s.db).GetByID(ctx, id)
}

// DeleteProperty removes a property the actor manages.
func (s *Service) DeleteProperty(ctx context.Context, actor auth.Principal, id int64) error {
	return db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := ownedProperty(ctx, tx, actor, id); err != nil {
			return err
		}
		return property.NewRepository(tx).Delete(ctx, id)
	})
}

// ExportSchedule writes the property's slots and visits as a workbook.
func (s *Service) ExportSchedule(ctx context.Context, actor auth.Principal, propertyID int64, w io.Writer) error {
	p, err := ownedProperty(ctx, s.db, actor, propertyID)
	if err != nil {
		return err
	}
	slots, err := slot.NewRepository(s.db).ListByProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	visits, err := visit.NewRepository(s.db).ListByProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	return export.WriteSchedule(w, p, slots, visits)
}
