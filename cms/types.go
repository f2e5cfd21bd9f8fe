// Package cms provides typed service clients for the CMS backend's REST
// surface: events, galleries, photos, reenactment history, contact
// messages, and users. Each service is a thin wrapper over the api.Client,
// which supplies the credential, content-type, and error policy.
package cms

import "github.com/google/uuid"

// Event is a public event listing. Date fields carry the backend's
// ISO-8601 local formats verbatim; they are display data.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	Link      string    `json:"link,omitempty"`
	Date      string    `json:"date,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// CreateEventRequest carries the required fields for a new event.
type CreateEventRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// UpdateEventRequest replaces an event's editable fields.
type UpdateEventRequest struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Link  string `json:"link,omitempty"`
	Date  string `json:"date,omitempty"`
}

// EventRegistration is a visitor's sign-up for an event.
type EventRegistration struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Note  string `json:"note,omitempty"`
}

// Gallery is a photo album.
type Gallery struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   string    `json:"createdAt,omitempty"`
}

// GalleryRequest creates or updates a gallery.
type GalleryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Published   bool   `json:"is_published"`
	Image       string `json:"image,omitempty"`
}

// Photo is an uploaded image with its storage metadata and derived
// versions.
type Photo struct {
	ID           uuid.UUID         `json:"id"`
	ObjectKey    string            `json:"objectKey,omitempty"`
	OriginalName string            `json:"originalName,omitempty"`
	ContentType  string            `json:"contentType,omitempty"`
	SizeBytes    int64             `json:"sizeBytes,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	Versions     map[string]string `json:"versions,omitempty"`
	GalleryID    *uuid.UUID        `json:"galleryId,omitempty"`
	Caption      string            `json:"caption,omitempty"`
	AltText      string            `json:"altText,omitempty"`
	SortOrder    int               `json:"sortOrder,omitempty"`
	Published    bool              `json:"isPublished,omitempty"`
	CreatedAt    string            `json:"createdAt,omitempty"`
}

// Category groups reenactment blocks. Names maps a language code (de, en,
// fr) to the localized display name.
type Category struct {
	ID        uuid.UUID         `json:"id"`
	Code      string            `json:"code"`
	Names     map[string]string `json:"names"`
	SortOrder int               `json:"sortOrder"`
}

// CreateCategoryRequest carries the localized names for a new category.
type CreateCategoryRequest struct {
	Code      string `json:"code"`
	NameDe    string `json:"nameDe"`
	NameEn    string `json:"nameEn"`
	NameFr    string `json:"nameFr"`
	SortOrder int    `json:"sortOrder"`
}

// UpdateCategoryRequest replaces a category's editable fields.
type UpdateCategoryRequest struct {
	NameDe    string `json:"nameDe,omitempty"`
	NameEn    string `json:"nameEn,omitempty"`
	NameFr    string `json:"nameFr,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

// Block is one reenactment history entry.
type Block struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Text         string     `json:"text,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CategoryCode string     `json:"categoryCode,omitempty"`
	SortOrder    int        `json:"sortOrder"`
}

// BlockDetail is a block with its attached photos.
type BlockDetail struct {
	Block
	Photos []Photo `json:"photos,omitempty"`
}

// BlockRequest creates or updates a block.
type BlockRequest struct {
	Title      string     `json:"title"`
	Text       *string    `json:"text"`
	CategoryID *uuid.UUID `json:"categoryId"`
	SortOrder  int        `json:"sortOrder"`
	Image      string     `json:"image,omitempty"`
}

// CategoryBlocks is a category with its blocks, as returned by the grouped
// listing.
type CategoryBlocks struct {
	Category
	Blocks []Block `json:"blocks"`
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt string    `json:"createdAt,omitempty"`
	Read      bool      `json:"read"`
	ReadAt    string    `json:"readAt,omitempty"`
}

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
