package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dsm1918/cms-client-go/api"
	bcastmem "github.com/dsm1918/cms-client-go/broadcast/memory"
	"github.com/dsm1918/cms-client-go/cms"
	sessmem "github.com/dsm1918/cms-client-go/session/memory"
)

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := sessmem.New()
	bcast := bcastmem.New()
	t.Cleanup(func() {
		store.Close()
		bcast.Close()
	})

	c, err := api.New(srv.URL, store, bcast)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestEventsRoutes(t *testing.T) {
	id := uuid.New()
	event := cms.Event{ID: id, Title: "Sommerlager", Text: "Drei Tage Lagerleben"}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		switch key {
		case "GET /api/events":
			writeJSON(t, w, []cms.Event{event})
		case "GET /api/events/" + id.String():
			writeJSON(t, w, event)
		case "POST /api/events":
			var req cms.CreateEventRequest
			json.NewDecoder(r.Body).Decode(&req)
			writeJSON(t, w, cms.Event{ID: uuid.New(), Title: req.Title, Text: req.Text})
		case "POST /api/events/" + id.String() + "/register":
			w.WriteHeader(http.StatusCreated)
		case "DELETE /api/events/" + id.String():
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	svc := cms.NewEventsService(c)
	ctx := context.Background()

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Sommerlager" {
		t.Fatalf("List = %+v", list)
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id {
		t.Fatalf("Get returned id %s, want %s", got.ID, id)
	}

	created, err := svc.Create(ctx, cms.CreateEventRequest{Title: "Winterfeier", Text: "Jahresabschluss"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "Winterfeier" {
		t.Fatalf("Create echoed %q", created.Title)
	}

	if err := svc.Register(ctx, id, cms.EventRegistration{Name: "Max", Email: "max@example.org"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestGalleriesListUsesAdminRouteForDrafts(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(t, w, []cms.Gallery{})
	}))
	svc := cms.NewGalleriesService(c)
	ctx := context.Background()

	if _, err := svc.List(ctx, false); err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := svc.List(ctx, true); err != nil {
		t.Fatalf("List all: %v", err)
	}

	want := []string{"/api/galleries", "/api/galleries/all"}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("request %d hit %s, want %s", i, paths[i], p)
		}
	}
}

func TestPhotoUploadFormFields(t *testing.T) {
	galleryID := uuid.New()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/photos/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("caption"); got != "Biwak am Morgen" {
			t.Errorf("caption = %q", got)
		}
		if got := r.FormValue("altText"); got != "Zelte im Nebel" {
			t.Errorf("altText = %q", got)
		}
		if got := r.FormValue("galleryId"); got != galleryID.String() {
			t.Errorf("galleryId = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part missing: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "biwak.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		writeJSON(t, w, cms.Photo{ID: uuid.New(), OriginalName: header.Filename})
	}))
	svc := cms.NewPhotosService(c)

	photo, err := svc.Upload(context.Background(), cms.UploadPhotoRequest{
		FileName:    "biwak.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpegbytes"),
		Caption:     "Biwak am Morgen",
		AltText:     "Zelte im Nebel",
		GalleryID:   &galleryID,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if photo.OriginalName != "biwak.jpg" {
		t.Fatalf("Upload returned %+v", photo)
	}
}

func TestPhotoUploadRejectsBadInputLocally(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server; rejection must happen client-side")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	svc := cms.NewPhotosService(c)
	ctx := context.Background()

	_, err := svc.Upload(ctx, cms.UploadPhotoRequest{
		FileName:    "notes.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF"),
	})
	if !errors.Is(err, cms.ErrNotAnImage) {
		t.Fatalf("non-image upload error = %v, want ErrNotAnImage", err)
	}

	big := strings.NewReader(strings.Repeat("x", cms.MaxUploadBytes+1))
	_, err = svc.Upload(ctx, cms.UploadPhotoRequest{
		FileName:    "huge.png",
		ContentType: "image/png",
		Body:        big,
	})
	if !errors.Is(err, cms.ErrFileTooLarge) {
		t.Fatalf("oversized upload error = %v, want ErrFileTooLarge", err)
	}
}

func TestReenactmentRoutes(t *testing.T) {
	catID := uuid.New()
	blockID := uuid.New()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		switch key {
		case "GET /api/reenactment":
			writeJSON(t, w, []cms.CategoryBlocks{{
				Category: cms.Category{ID: catID, Code: "uniformen", Names: map[string]string{"de": "Uniformen"}},
				Blocks:   []cms.Block{{ID: blockID, Title: "Feldbluse M1915"}},
			}})
		case "POST /api/reenactment/categories":
			writeJSON(t, w, cms.Category{ID: uuid.New(), Code: "ausruestung"})
		case "PATCH /api/reenactment/categories/" + catID.String():
			writeJSON(t, w, cms.Category{ID: catID, Code: "uniformen"})
		case "DELETE /api/reenactment/categories/" + catID.String():
			w.WriteHeader(http.StatusNoContent)
		case "GET /api/reenactment/blocks/" + blockID.String():
			writeJSON(t, w, cms.BlockDetail{Block: cms.Block{ID: blockID, Title: "Feldbluse M1915"}})
		case "PATCH /api/reenactment/blocks/" + blockID.String():
			writeJSON(t, w, cms.Block{ID: blockID, Title: "Feldbluse M1915/17"})
		default:
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	svc := cms.NewReenactmentService(c)
	ctx := context.Background()

	grouped, err := svc.BlocksByCategory(ctx)
	if err != nil {
		t.Fatalf("BlocksByCategory: %v", err)
	}
	if len(grouped) != 1 || len(grouped[0].Blocks) != 1 {
		t.Fatalf("BlocksByCategory = %+v", grouped)
	}

	if _, err := svc.CreateCategory(ctx, cms.CreateCategoryRequest{Code: "ausruestung", NameDe: "Ausrüstung"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, catID, cms.UpdateCategoryRequest{SortOrder: 2}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if err := svc.DeleteCategory(ctx, catID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	detail, err := svc.Block(ctx, blockID)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if detail.ID != blockID {
		t.Fatalf("Block = %+v", detail)
	}

	text := "Eingeführt 1915 als Ersatz der Friedensuniform."
	if _, err := svc.UpdateBlock(ctx, blockID, cms.BlockRequest{Title: "Feldbluse M1915/17", Text: &text}); err != nil {
		t.Fatalf("UpdateBlock: %v", err)
	}
}

func TestContactRoutes(t *testing.T) {
	msgID := uuid.New()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		switch key {
		case "POST /api/contact":
			var req cms.ContactRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email == "" {
				t.Error("contact submission missing email")
			}
			w.WriteHeader(http.StatusCreated)
		case "GET /api/contact/unread-count":
			w.Write([]byte("3"))
		case "PATCH /api/contact/" + msgID.String():
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	svc := cms.NewContactService(c)
	ctx := context.Background()

	if err := svc.Submit(ctx, cms.ContactRequest{
		Name:    "Erika",
		Email:   "erika@example.org",
		Message: "Wann ist das nächste Schaulager?",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	n, err := svc.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("UnreadCount = %d, want 3", n)
	}

	if err := svc.MarkRead(ctx, msgID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
}

func TestUsersRoutes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		switch key {
		case "GET /api/users/profile":
			w.Write([]byte(`{"id":7,"email":"member@dsm1918.de","roles":["ROLE_USER"]}`))
		case "GET /api/users/7/registrations":
			writeJSON(t, w, []cms.EventRegistration{{Name: "Member", Email: "member@dsm1918.de"}})
		default:
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	svc := cms.NewUsersService(c)
	ctx := context.Background()

	profile, err := svc.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.ID != 7 || profile.IsAdmin() {
		t.Fatalf("Profile = %+v", profile)
	}

	regs, err := svc.Registrations(ctx, 7)
	if err != nil {
		t.Fatalf("Registrations: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("Registrations = %+v", regs)
	}
}
