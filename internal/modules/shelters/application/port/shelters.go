package port

import (
	"context"
	"errors"

	"evacumate/internal/modules/shelters/domain"
)

var (
	// ErrSheltersUnavailable wraps every failure to obtain the shelter list.
	ErrSheltersUnavailable = errors.New("shelters unavailable")
	// ErrShelterNotFound is returned when the dispatch endpoint does not know the shelter.
	ErrShelterNotFound = errors.New("shelter not found")
	// ErrDispatchRejected covers any non-success answer from the dispatch endpoint.
	ErrDispatchRejected = errors.New("dispatch rejected")
	// ErrUnauthorized indicates the backend refused the call.
	ErrUnauthorized = errors.New("backend unauthorized")
)

// ShelterRepository lists the shelters known to the backend.
type ShelterRepository interface {
	List(ctx context.Context) ([]domain.Shelter, error)
}

// DispatchService asks the backend to send a vehicle to a shelter.
type DispatchService interface {
	Request(ctx context.Context, shelterID string) (*domain.DispatchResult, error)
}

// DispatchEventPublisher forwards resolved dispatches to the event bus.
type DispatchEventPublisher interface {
	PublishDispatch(ctx context.Context, event domain.DispatchEvent) error
}
