package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
)

// MaxUploadBytes is the client-side cap on a single photo upload. The
// backend enforces its own limit; rejecting locally spares the user a full
// upload round trip for a file that cannot be accepted.
const MaxUploadBytes = 3 << 20

// ErrFileTooLarge indicates the upload exceeds MaxUploadBytes.
var ErrFileTooLarge = errors.New("cms: file exceeds the upload size limit")

// ErrNotAnImage indicates the upload's content type is not image/*.
var ErrNotAnImage = errors.New("cms: only image uploads are accepted")

// UploadPhotoRequest describes one photo upload: the file itself plus its
// optional display metadata.
type UploadPhotoRequest struct {
	FileName    string
	ContentType string
	Body        io.Reader

	Caption   string
	AltText   string
	GalleryID *uuid.UUID
}

// PhotosService calls the /api/photos endpoints.
type PhotosService struct {
	client *api.Client
}

// NewPhotosService creates a photos client over c.
func NewPhotosService(c *api.Client) *PhotosService {
	return &PhotosService{client: c}
}

// Upload sends a photo as a multipart form (fields: file, caption,
// altText, galleryId). The size and type checks run before any bytes go on
// the wire. Admin only.
func (s *PhotosService) Upload(ctx context.Context, req UploadPhotoRequest) (*Photo, error) {
	if req.Body == nil {
		return nil, fmt.Errorf("cms: upload body is required")
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, ErrNotAnImage
	}

	// Read one byte past the cap so an oversized file is detected without
	// buffering more than the limit.
	data, err := io.ReadAll(io.LimitReader(req.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("cms: read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	form := api.NewForm().AddFile("file", req.FileName, bytes.NewReader(data))
	if req.Caption != "" {
		form.AddField("caption", req.Caption)
	}
	if req.AltText != "" {
		form.AddField("altText", req.AltText)
	}
	if req.GalleryID != nil {
		form.AddField("galleryId", req.GalleryID.String())
	}

	var out Photo
	if err := s.client.PostMultipart(ctx, "/api/photos/upload", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a photo. Admin only.
func (s *PhotosService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Delete(ctx, fmt.Sprintf("/api/photos/%s", id))
}
