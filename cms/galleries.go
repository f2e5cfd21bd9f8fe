package cms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
)

// GalleriesService calls the /api/galleries endpoints.
type GalleriesService struct {
	client *api.Client
}

// NewGalleriesService creates a galleries client over c.
func NewGalleriesService(c *api.Client) *GalleriesService {
	return &GalleriesService{client: c}
}

// List returns the published galleries. When includeUnpublished is set it
// uses the admin-only listing that also returns drafts.
func (s *GalleriesService) List(ctx context.Context, includeUnpublished bool) ([]Gallery, error) {
	path := "/api/galleries"
	if includeUnpublished {
		path = "/api/galleries/all"
	}
	var out []Gallery
	if err := s.client.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Photos returns the photos belonging to a gallery.
func (s *GalleriesService) Photos(ctx context.Context, id uuid.UUID) ([]Photo, error) {
	var out []Photo
	if err := s.client.Get(ctx, fmt.Sprintf("/api/galleries/%s", id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a new gallery. Admin only.
func (s *GalleriesService) Create(ctx context.Context, req GalleryRequest) (*Gallery, error) {
	var out Gallery
	if err := s.client.Post(ctx, "/api/galleries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches a gallery's editable fields. Admin only.
func (s *GalleriesService) Update(ctx context.Context, id uuid.UUID, req GalleryRequest) (*Gallery, error) {
	var out Gallery
	if err := s.client.Patch(ctx, fmt.Sprintf("/api/galleries/%s", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a gallery. Admin only.
func (s *GalleriesService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/galleries/%s", id))
}
