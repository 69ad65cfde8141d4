package scheduling

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
)

// SlotQuery selects which of a property's slots to list.
type SlotQuery struct {
	BookableOnly bool
	Filter       slot.Filter
}

// ListSlots returns a property's slots, optionally only the bookable ones,
// narrowed by the filter.
func (s *Service) ListSlots(ctx context.Context, propertyID int64, q SlotQuery) ([]*slot.VisitSlot, error) {
	if _, err := property.NewRepository(s.db).GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	slots, err := slot.NewRepository(s.db).ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if q.BookableOnly {
		slots = slot.FilterBookable(slots, s.now(), s.loc)
	}
	return q.Filter.Apply(slots), nil
}

// ProposableSlots returns the property's slots an owner may offer: those
// that are bookable right now.
func (s *Service) ProposableSlots(ctx context.Context, actor auth.Principal, propertyID int64) ([]*slot.VisitSlot, error) {
	if _, err := ownedProperty(ctx, s.db, actor, propertyID); err != nil {
		return nil, err
	}
	return s.ListSlots(ctx, propertyID, SlotQuery{BookableOnly: true})
}

// SaveSlots validates the editor rows and replaces the property's slots
// with them in one transaction.
func (s *Service) SaveSlots(ctx context.Context, actor auth.Principal, propertyID int64, drafts []slot.Draft) ([]*slot.VisitSlot, error) {
	valid, err := slot.Validate(drafts)
	if err != nil {
		return nil, err
	}

	var saved []*slot.VisitSlot
	err = db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := ownedProperty(ctx, tx, actor, propertyID); err != nil {
			return err
		}
		saved, err = slot.NewRepository(tx).Replace(ctx, propertyID, valid)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("visit slots saved",
		zap.Int64("property_id", propertyID),
		zap.Int("count", len(saved)),
		zap.String("actor", actor.UserID),
	)
	return saved, nil
}

// GenerateSlots returns draft rows for a recurring window without saving.
func (s *Service) GenerateSlots(ctx context.Context, actor auth.Principal, propertyID int64, opts slot.GenerateOptions) ([]slot.Draft, error) {
	if _, err := ownedProperty(ctx, s.db, actor, propertyID); err != nil {
		return nil, err
	}
	return slot.Generate(opts)
}

// UpdateSlot applies a partial edit to one of the property's slots.
func (s *Service) UpdateSlot(ctx context.Context, actor auth.Principal, propertyID int64, slotID string, patch slot.Patch) (*slot.VisitSlot, error) {
	var updated *slot.VisitSlot
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		repo, err := s.ownedSlot(ctx, tx, actor, propertyID, slotID)
		if err != nil {
			return err
		}
		updated, err = repo.Update(ctx, slotID, patch)
		return err
	})
	return updated, err
}

// DeleteSlot removes one of the property's slots if it has no bookings.
func (s *Service) DeleteSlot(ctx context.Context, actor auth.Principal, propertyID int64, slotID string) error {
	return db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		repo, err := s.ownedSlot(ctx, tx, actor, propertyID, slotID)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, slotID)
	})
}

func (s *Service) ownedSlot(ctx context.Context, q db.Querier, actor auth.Principal, propertyID int64, slotID string) (*slot.Repository, error) {
	if _, err := ownedProperty(ctx, q, actor, propertyID); err != nil {
		return nil, err
	}
	repo := slot.NewRepository(q)
	cur, err := repo.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if cur.PropertyID != propertyID {
		return nil, fmt.Errorf("%w: %s", slot.ErrNotFound, slotID)
	}
	return repo, nil
}
