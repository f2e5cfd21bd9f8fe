package cms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
)

// EventsService calls the /api/events endpoints.
type EventsService struct {
	client *api.Client
}

// NewEventsService creates an events client over c.
func NewEventsService(c *api.Client) *EventsService {
	return &EventsService{client: c}
}

// List returns all events.
func (s *EventsService) List(ctx context.Context) ([]Event, error) {
	var out []Event
	if err := s.client.Get(ctx, "/api/events", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single event by id.
func (s *EventsService) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	var out Event
	if err := s.client.Get(ctx, fmt.Sprintf("/api/events/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a new event. Admin only.
func (s *EventsService) Create(ctx context.Context, req CreateEventRequest) (*Event, error) {
	var out Event
	if err := s.client.Post(ctx, "/api/events", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an event's editable fields. Admin only.
func (s *EventsService) Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*Event, error) {
	var out Event
	if err := s.client.Put(ctx, fmt.Sprintf("/api/events/%s", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an event. Admin only.
func (s *EventsService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/events/%s", id))
}

// Register signs a visitor up for an event.
func (s *EventsService) Register(ctx context.Context, id uuid.UUID, reg EventRegistration) error {
	return s.client.Post(ctx, fmt.Sprintf("/api/events/%s/register", id), reg, nil)
}

// Registrations lists the sign-ups for an event. Admin only.
func (s *EventsService) Registrations(ctx context.Context, id uuid.UUID) ([]EventRegistration, error) {
	var out []EventRegistration
	if err := s.client.Get(ctx, fmt.Sprintf("/api/events/%s/registrations", id), &out); err != nil {
		return nil, err
	}
	return out, nil
}
