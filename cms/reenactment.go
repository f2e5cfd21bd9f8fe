package cms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
)

// ReenactmentService calls the /api/reenactment endpoints: the club's
// history content, organized as localized categories of text blocks.
type ReenactmentService struct {
	client *api.Client
}

// NewReenactmentService creates a reenactment client over c.
func NewReenactmentService(c *api.Client) *ReenactmentService {
	return &ReenactmentService{client: c}
}

// BlocksByCategory returns every category with its blocks, ordered for
// display.
func (s *ReenactmentService) BlocksByCategory(ctx context.Context) ([]CategoryBlocks, error) {
	var out []CategoryBlocks
	if err := s.client.Get(ctx, "/api/reenactment", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists the categories alone.
func (s *ReenactmentService) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.client.Get(ctx, "/api/reenactment/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory adds a category. Admin only.
func (s *ReenactmentService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	var out Category
	if err := s.client.Post(ctx, "/api/reenactment/categories", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCategory patches a category. Admin only.
func (s *ReenactmentService) UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*Category, error) {
	var out Category
	if err := s.client.Patch(ctx, fmt.Sprintf("/api/reenactment/categories/%s", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory removes a category. Admin only.
func (s *ReenactmentService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/reenactment/categories/%s", id))
}

// Block returns one block with its photos.
func (s *ReenactmentService) Block(ctx context.Context, id uuid.UUID) (*BlockDetail, error) {
	var out BlockDetail
	if err := s.client.Get(ctx, fmt.Sprintf("/api/reenactment/blocks/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBlock adds a block. Admin only.
func (s *ReenactmentService) CreateBlock(ctx context.Context, req BlockRequest) (*Block, error) {
	var out Block
	if err := s.client.Post(ctx, "/api/reenactment/blocks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBlock patches a block. Admin only.
func (s *ReenactmentService) UpdateBlock(ctx context.Context, id uuid.UUID, req BlockRequest) (*Block, error) {
	var out Block
	if err := s.client.Patch(ctx, fmt.Sprintf("/api/reenactment/blocks/%s", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBlock removes a block. Admin only.
func (s *ReenactmentService) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/reenactment/blocks/%s", id))
}
