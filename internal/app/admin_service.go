package app

import (
	"context"
	"time"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

type AdminRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateInventoryUnit(ctx context.Context, unit domain.InventoryUnit) error
	CreateSeats(ctx context.Context, seats []domain.Seat) error
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name     string
	VenueID  string
	StartsAt *time.Time
}

func (s *AdminService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	startsAt := s.clock.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.Event{
		ID:       newID(),
		Name:     in.Name,
		VenueID:  in.VenueID,
		StartsAt: startsAt,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *AdminService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

type CreateInventoryUnitInput struct {
	EventID  string
	Name     string
	Capacity int
}

// CreateInventoryUnit seeds a unit with available == total and a fresh tag.
func (s *AdminService) CreateInventoryUnit(ctx context.Context, in CreateInventoryUnitInput) (domain.InventoryUnit, error) {
	if in.EventID == "" {
		return domain.InventoryUnit{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.InventoryUnit{}, domain.ErrUnitNameRequired
	}
	if in.Capacity <= 0 {
		return domain.InventoryUnit{}, domain.ErrInvalidCapacity
	}

	unit := domain.InventoryUnit{
		ID:        newID(),
		EventID:   in.EventID,
		Name:      in.Name,
		Total:     in.Capacity,
		Available: in.Capacity,
		ETag:      domain.NewETag(s.clock.Now()),
	}

	if err := s.repo.CreateInventoryUnit(ctx, unit); err != nil {
		return domain.InventoryUnit{}, err
	}
	return unit, nil
}

type CreateSeatsInput struct {
	VenueID string
	Labels  []string
}

// CreateSeats registers venue seats in bulk, all starting Available.
func (s *AdminService) CreateSeats(ctx context.Context, in CreateSeatsInput) ([]domain.Seat, error) {
	if in.VenueID == "" {
		return nil, domain.ErrInvalidID
	}
	if len(in.Labels) == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	seats := make([]domain.Seat, 0, len(in.Labels))
	for _, label := range in.Labels {
		seats = append(seats, domain.Seat{
			ID:      newID(),
			VenueID: in.VenueID,
			Label:   label,
			Status:  domain.SeatStatusAvailable,
		})
	}

	if err := s.repo.CreateSeats(ctx, seats); err != nil {
		return nil, err
	}
	return seats, nil
}
