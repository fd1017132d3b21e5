package app

import (
	"context"
	"time"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/pagination"
)

// ReservationFilter narrows reservation listings. Zero fields match everything.
type ReservationFilter struct {
	EventID string
	UserID  string
	Status  domain.ReservationStatus
}

// SeatFilter narrows seat listings.
type SeatFilter struct {
	VenueID string
	Status  domain.SeatStatus
}

// InventoryFilter narrows inventory listings.
type InventoryFilter struct {
	EventID string
	// MutatedSince keeps only units whose last persisted mutation is at or
	// after the given instant.
	MutatedSince time.Time
}

// Paginator is the cursor-paged read surface over the mutating tables.
// Implementations must keep pages duplicate- and gap-free while concurrent
// writers mutate the same rows.
type Paginator interface {
	ListReservations(ctx context.Context, filter ReservationFilter, params pagination.Params) (pagination.Page[domain.Reservation], error)
	ListSeats(ctx context.Context, filter SeatFilter, params pagination.Params) (pagination.Page[domain.Seat], error)
	ListInventory(ctx context.Context, filter InventoryFilter, params pagination.Params) (pagination.Page[domain.InventoryUnit], error)
}

type ListingService struct {
	paginator Paginator
}

func NewListingService(paginator Paginator) *ListingService {
	return &ListingService{paginator: paginator}
}

func (s *ListingService) ListReservations(ctx context.Context, filter ReservationFilter, params pagination.Params) (pagination.Page[domain.Reservation], error) {
	if err := params.Validate(); err != nil {
		return pagination.Page[domain.Reservation]{}, err
	}
	return s.paginator.ListReservations(ctx, filter, params)
}

func (s *ListingService) ListSeats(ctx context.Context, filter SeatFilter, params pagination.Params) (pagination.Page[domain.Seat], error) {
	if err := params.Validate(); err != nil {
		return pagination.Page[domain.Seat]{}, err
	}
	return s.paginator.ListSeats(ctx, filter, params)
}

func (s *ListingService) ListInventory(ctx context.Context, filter InventoryFilter, params pagination.Params) (pagination.Page[domain.InventoryUnit], error) {
	if err := params.Validate(); err != nil {
		return pagination.Page[domain.InventoryUnit]{}, err
	}
	return s.paginator.ListInventory(ctx, filter, params)
}
