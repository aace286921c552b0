package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/http/handlers"
	"github.com/pranathisri21/frame-vault/internal/http/middleware"
	"github.com/pranathisri21/frame-vault/internal/identity"
	"github.com/pranathisri21/frame-vault/internal/storage"
)

func TestItemHandlerUploadSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = newUploadRequest(t, "Trip", map[string]string{"a.jpg": "aaa", "b.mp4": "bbb"})
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}

	items := &stubItems{
		createResult: gallery.BatchResult{
			Items: []storage.Item{
				{ID: "i1", SetID: "s1", Title: "Trip (1)", MediaType: storage.MediaImage},
				{ID: "i2", SetID: "s1", Title: "Trip (2)", MediaType: storage.MediaVideo},
			},
		},
	}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Upload(ctx)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if items.lastSetID != "s1" || items.lastTitle != "Trip" {
		t.Fatalf("unexpected call set=%q title=%q", items.lastSetID, items.lastTitle)
	}
	if len(items.lastFiles) != 2 {
		t.Fatalf("expected two files, got %d", len(items.lastFiles))
	}
	for _, f := range items.lastFiles {
		if len(f.Data) != 3 {
			t.Fatalf("file %s has %d bytes", f.Name, len(f.Data))
		}
	}
	body := decodeBody(t, rec)
	if _, ok := body["warning"]; ok {
		t.Fatalf("unexpected warning in %v", body)
	}
	if got := body["items"].([]any); len(got) != 2 {
		t.Fatalf("expected two items, got %v", got)
	}
}

func TestItemHandlerUploadStaleCountWarns(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = newUploadRequest(t, "", map[string]string{"a.jpg": "aaa"})
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}

	items := &stubItems{
		createResult: gallery.BatchResult{
			Items:      []storage.Item{{ID: "i1", SetID: "s1", Title: "a"}},
			StaleCount: true,
		},
	}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Upload(ctx)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["warning"]; !ok {
		t.Fatal("expected a warning for a stale media count")
	}
}

func TestItemHandlerUploadAllFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "missing set",
			err:  &gallery.NotFoundError{Resource: "set", ID: "s1", Err: storage.ErrNotFound},
			want: http.StatusNotFound,
		},
		{
			name: "host down",
			err:  &gallery.UploadError{Name: "a.jpg", Err: errors.New("timeout")},
			want: http.StatusBadGateway,
		},
		{
			name: "store down",
			err:  &gallery.StoreError{Op: "create item", Err: errors.New("locked")},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(rec)
			ctx.Request = newUploadRequest(t, "", map[string]string{"a.jpg": "aaa"})
			ctx.Params = gin.Params{{Key: "id", Value: "s1"}}

			items := &stubItems{
				createResult: gallery.BatchResult{
					Items:    []storage.Item{},
					Failures: []gallery.BatchFailure{{Name: "a.jpg", Err: tt.err}},
				},
			}

			handlers.NewItemHandler(newTestLogger(), items, 1<<20).Upload(ctx)

			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestItemHandlerUploadPartialFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = newUploadRequest(t, "", map[string]string{"a.jpg": "aaa", "b.jpg": "bbb"})
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}

	items := &stubItems{
		createResult: gallery.BatchResult{
			Items:    []storage.Item{{ID: "i1", SetID: "s1"}},
			Failures: []gallery.BatchFailure{{Name: "b.jpg", Err: &gallery.UploadError{Name: "b.jpg", Err: errors.New("rejected")}}},
		},
	}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Upload(ctx)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	failures := decodeBody(t, rec)["failures"].([]any)
	if len(failures) != 1 || failures[0].(map[string]any)["name"] != "b.jpg" {
		t.Fatalf("unexpected failures %v", failures)
	}
}

func TestItemHandlerUploadRequiresFile(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = newUploadRequest(t, "Only a title", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}

	items := &stubItems{}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Upload(ctx)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	if items.createCalled {
		t.Fatal("expected repository not to be called")
	}
}

func TestItemHandlerListPrivateRequiresAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/sets/s1/items?private=1", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}
	middleware.SetHandle(ctx, identity.Handle{UserID: "u1", Admin: false})

	items := &stubItems{}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).ListBySet(ctx)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
	if items.listCalled {
		t.Fatal("expected repository not to be called")
	}
}

func TestItemHandlerListPrivateForAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/sets/s1/items?private=true", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "s1"}}
	middleware.SetHandle(ctx, identity.Handle{UserID: "u1", Admin: true})

	items := &stubItems{list: []storage.Item{{ID: "i1", SetID: "s1", IsPrivate: true}}}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).ListBySet(ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !items.lastIncludePrivate || items.lastSetID != "s1" {
		t.Fatalf("unexpected call set=%q private=%v", items.lastSetID, items.lastIncludePrivate)
	}
	if !strings.Contains(rec.Body.String(), `"isPrivate":true`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestItemHandlerListPublicByDefault(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/items", nil)

	items := &stubItems{}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).List(ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !items.listCalled || items.lastIncludePrivate {
		t.Fatalf("expected public listing, called=%v private=%v", items.listCalled, items.lastIncludePrivate)
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestItemHandlerGetHidesPrivateFromViewers(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/items/i1", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "i1"}}
	middleware.SetHandle(ctx, identity.Handle{UserID: "u1"})

	items := &stubItems{item: storage.Item{ID: "i1", SetID: "s1", IsPrivate: true}}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Get(ctx)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestItemHandlerUpdateAppliesBothFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPatch, "/api/items/i1", strings.NewReader(`{"title":"Dune","isPrivate":true}`))
	req.Header.Set("Content-Type", "application/json")
	ctx.Request = req
	ctx.Params = gin.Params{{Key: "id", Value: "i1"}}

	items := &stubItems{item: storage.Item{ID: "i1", SetID: "s1", Title: "Dune", IsPrivate: true}}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Update(ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if items.updateCalls != 1 {
		t.Fatalf("expected a single update, got %d", items.updateCalls)
	}
	if items.lastChanges.Title == nil || *items.lastChanges.Title != "Dune" {
		t.Fatalf("expected rename to Dune, got %+v", items.lastChanges)
	}
	if items.lastChanges.IsPrivate == nil || !*items.lastChanges.IsPrivate {
		t.Fatal("expected privacy to be set")
	}
}

func TestItemHandlerUpdateRequiresAField(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPatch, "/api/items/i1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	ctx.Request = req
	ctx.Params = gin.Params{{Key: "id", Value: "i1"}}

	handlers.NewItemHandler(newTestLogger(), &stubItems{}, 1<<20).Update(ctx)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestItemHandlerDeleteRefreshesCount(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodDelete, "/api/items/i1", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "i1"}}

	items := &stubItems{item: storage.Item{ID: "i1", SetID: "s9"}}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Delete(ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if items.lastRefreshID != "s9" {
		t.Fatalf("expected refresh of s9, got %q", items.lastRefreshID)
	}
	if _, ok := decodeBody(t, rec)["warning"]; ok {
		t.Fatal("unexpected warning")
	}
}

func TestItemHandlerDeleteWarnsWhenRefreshFails(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodDelete, "/api/items/i1", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "i1"}}

	items := &stubItems{
		item:       storage.Item{ID: "i1", SetID: "s9"},
		refreshErr: &gallery.StoreError{Op: "refresh media count", Err: errors.New("locked")},
	}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Delete(ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["warning"]; !ok {
		t.Fatal("expected a warning for a stale media count")
	}
}

func TestItemHandlerDeleteNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodDelete, "/api/items/nope", nil)
	ctx.Params = gin.Params{{Key: "id", Value: "nope"}}

	items := &stubItems{itemErr: &gallery.NotFoundError{Resource: "item", ID: "nope", Err: storage.ErrNotFound}}

	handlers.NewItemHandler(newTestLogger(), items, 1<<20).Delete(ctx)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if items.lastRefreshID != "" {
		t.Fatal("expected no refresh after a failed delete")
	}
}

func newUploadRequest(t *testing.T, title string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if title != "" {
		if err := w.WriteField("title", title); err != nil {
			t.Fatalf("write title: %v", err)
		}
	}
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sets/s1/items", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type stubItems struct {
	createResult       gallery.BatchResult
	createCalled       bool
	lastSetID          string
	lastTitle          string
	lastFiles          []gallery.File
	list               []storage.Item
	listCalled         bool
	lastIncludePrivate bool
	item               storage.Item
	itemErr            error
	updateCalls        int
	lastChanges        gallery.ItemChanges
	refreshErr         error
	lastRefreshID      string
}

func (s *stubItems) CreateItems(_ context.Context, setID, title string, files []gallery.File) gallery.BatchResult {
	s.createCalled = true
	s.lastSetID = setID
	s.lastTitle = title
	s.lastFiles = files
	return s.createResult
}

func (s *stubItems) ListItemsBySet(_ context.Context, setID string, includePrivate bool) ([]storage.Item, error) {
	s.listCalled = true
	s.lastSetID = setID
	s.lastIncludePrivate = includePrivate
	return s.listOrEmpty(), nil
}

func (s *stubItems) ListItems(_ context.Context, includePrivate bool) ([]storage.Item, error) {
	s.listCalled = true
	s.lastIncludePrivate = includePrivate
	return s.listOrEmpty(), nil
}

func (s *stubItems) listOrEmpty() []storage.Item {
	if s.list == nil {
		return []storage.Item{}
	}
	return s.list
}

func (s *stubItems) GetItem(context.Context, string) (storage.Item, error) {
	return s.item, s.itemErr
}

func (s *stubItems) UpdateItem(_ context.Context, _ string, changes gallery.ItemChanges) (storage.Item, error) {
	s.updateCalls++
	s.lastChanges = changes
	return s.item, s.itemErr
}

func (s *stubItems) DeleteItem(context.Context, string) (storage.Item, error) {
	if s.itemErr != nil {
		return storage.Item{}, s.itemErr
	}
	return s.item, nil
}

func (s *stubItems) RefreshSetCount(_ context.Context, id string) (storage.Set, error) {
	s.lastRefreshID = id
	if s.refreshErr != nil {
		return storage.Set{}, s.refreshErr
	}
	return storage.Set{ID: id}, nil
}
