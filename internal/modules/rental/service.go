// README: Rental state machine: atomic start and close with slot accounting.
package rental

import (
	"context"
	"time"

	"github.com/google/uuid"

	"poring/internal/modules/bike"
	"poring/internal/modules/fee"
	"poring/internal/modules/hub"
	"poring/internal/modules/user"
	"poring/internal/types"
)

type StartCommand struct {
	UserID int64
	BikeID int64
}

type CloseCommand struct {
	UserID int64
	HubID  int64
	Kind   hub.LocationKind
}

type Service struct {
	rentals *Store
	hubs    *hub.Store
	bikes   *bike.Store
	users   *user.Store
	now     func() time.Time
}

func NewService(rentals *Store, hubs *hub.Store, bikes *bike.Store, users *user.Store) *Service {
	return &Service{
		rentals: rentals,
		hubs:    hubs,
		bikes:   bikes,
		users:   users,
		now:     time.Now,
	}
}

// Open returns the user's active rental, or ErrRentalNotFound.
func (s *Service) Open(ctx context.Context, userID int64) (*Rental, error) {
	return s.rentals.OpenByUser(ctx, userID)
}

// Start opens a rental: takes the bike's slot, flips the bike to Using, and
// inserts the open rental row, all in one transaction. Both the slot decrement
// and the bike flip are conditional, and the partial unique index on open
// rentals backs the one-rental-per-user rule under races.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*StartResult, error) {
	exists, err := s.users.Exists(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, user.ErrNotFound
	}

	if _, err := s.rentals.OpenByUser(ctx, cmd.UserID); err == nil {
		return nil, ErrRentalActive
	} else if err != ErrRentalNotFound {
		return nil, err
	}

	b, err := s.bikes.Get(ctx, cmd.BikeID)
	if err != nil {
		return nil, err
	}
	if !b.Rentable() {
		return nil, bike.ErrNotAvailable
	}

	h, err := s.hubs.GetByID(ctx, *b.AssignedHubID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tx, err := s.rentals.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := hub.ReserveSlot(ctx, tx, *b.WhereParked, *b.AssignedSZID); err != nil {
		return nil, err
	}
	if err := bike.MarkUsing(ctx, tx, b.ID, now); err != nil {
		return nil, err
	}

	r := &Rental{
		Code:          uuid.NewString(),
		UserID:        cmd.UserID,
		BikeID:        b.ID,
		StartHubID:    h.ID,
		StartedAt:     now,
		PaymentStatus: PaymentPending,
		PaymentMethod: "card",
	}
	if err := Insert(ctx, tx, r); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &StartResult{
		RentalCode: r.Code,
		BikeID:     b.ID,
		HubName:    h.Name,
		StartedAt:  now,
	}, nil
}

// Close settles the user's open rental. Station returns pick any free dock at
// the hub. Zone returns are allowed only once every station at the hub is full;
// otherwise ErrStationReturnRequired and nothing is mutated.
func (s *Service) Close(ctx context.Context, cmd CloseCommand) (*CloseResult, error) {
	r, err := s.rentals.OpenByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	h, err := s.hubs.GetByID(ctx, cmd.HubID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	quote, err := fee.Compute(r.StartedAt, now)
	if err != nil {
		return nil, err
	}

	tx, err := s.rentals.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var szID int64
	switch cmd.Kind {
	case hub.KindZone:
		full, err := hub.IsHubFull(ctx, tx, h.ID)
		if err != nil {
			return nil, err
		}
		if !full {
			return nil, ErrStationReturnRequired
		}
		szID, err = hub.ReleaseZoneSlotAtHub(ctx, tx, h.ID)
		if err != nil {
			return nil, err
		}
	default:
		szID, err = hub.ReleaseStationSlotAtHub(ctx, tx, h.ID)
		if err != nil {
			return nil, err
		}
		cmd.Kind = hub.KindStation
	}

	if err := bike.MarkReturned(ctx, tx, r.BikeID, cmd.Kind, h.ID, szID); err != nil {
		return nil, err
	}

	r.EndHubID = &h.ID
	r.EndedAt = &now
	r.DurationMin = quote.DurationMinutes
	r.ChargedAmount = quote.Charged.Amount
	r.FinalAmount = quote.Charged.Amount - r.UsedPoint - r.CanceledAmt
	r.PaymentStatus = PaymentPaid
	if err := CloseUpdate(ctx, tx, r); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &CloseResult{
		RentalCode:      r.Code,
		DurationMinutes: quote.DurationMinutes,
		Charged:         quote.Charged,
		Final:           types.Money{Amount: r.FinalAmount, Currency: quote.Charged.Currency},
		ReturnKind:      cmd.Kind,
		EndHubName:      h.Name,
		EndedAt:         now,
	}, nil
}
