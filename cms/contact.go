package cms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
)

// ContactService calls the /api/contact endpoints.
type ContactService struct {
	client *api.Client
}

// NewContactService creates a contact client over c.
func NewContactService(c *api.Client) *ContactService {
	return &ContactService{client: c}
}

// Submit sends a message through the public contact form. No session is
// required.
func (s *ContactService) Submit(ctx context.Context, req ContactRequest) error {
	return s.client.Post(ctx, "/api/contact", req, nil)
}

// List returns all received messages. Admin only.
func (s *ContactService) List(ctx context.Context) ([]ContactMessage, error) {
	var out []ContactMessage
	if err := s.client.Get(ctx, "/api/contact", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount returns the number of unread messages. Admin only.
func (s *ContactService) UnreadCount(ctx context.Context) (int64, error) {
	var out int64
	if err := s.client.Get(ctx, "/api/contact/unread-count", &out); err != nil {
		return 0, err
	}
	return out, nil
}

// MarkRead marks a message as read. Admin only.
func (s *ContactService) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.client.Patch(ctx, fmt.Sprintf("/api/contact/%s", id), nil, nil)
}

// Delete removes a message. Admin only.
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/contact/%s", id))
}
