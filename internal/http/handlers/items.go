package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/http/middleware"
	"github.com/pranathisri21/frame-vault/internal/storage"
)

const staleCountWarning = "media count may be out of date; refresh the set"

// Items is the subset of the gallery repository the item endpoints need.
type Items interface {
	CreateItems(ctx context.Context, setID, title string, files []gallery.File) gallery.BatchResult
	ListItemsBySet(ctx context.Context, setID string, includePrivate bool) ([]storage.Item, error)
	ListItems(ctx context.Context, includePrivate bool) ([]storage.Item, error)
	GetItem(ctx context.Context, id string) (storage.Item, error)
	UpdateItem(ctx context.Context, id string, changes gallery.ItemChanges) (storage.Item, error)
	DeleteItem(ctx context.Context, id string) (storage.Item, error)
	RefreshSetCount(ctx context.Context, id string) (storage.Set, error)
}

type ItemHandler struct {
	logger         *slog.Logger
	items          Items
	maxUploadBytes int64
}

func NewItemHandler(logger *slog.Logger, items Items, maxUploadBytes int64) *ItemHandler {
	return &ItemHandler{
		logger:         logger,
		items:          items,
		maxUploadBytes: maxUploadBytes,
	}
}

type itemPatchRequest struct {
	Title     *string `json:"title"`
	IsPrivate *bool   `json:"isPrivate"`
}

type failureResponse struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (h *ItemHandler) ListBySet(c *gin.Context) {
	ctx := c.Request.Context()
	setID := strings.TrimSpace(c.Param("id"))

	includePrivate, ok := h.includePrivate(c)
	if !ok {
		return
	}

	items, err := h.items.ListItemsBySet(ctx, setID, includePrivate)
	if err != nil {
		respondError(c, h.logger, err, "failed to load items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": toItemResponses(items)})
}

func (h *ItemHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	includePrivate, ok := h.includePrivate(c)
	if !ok {
		return
	}

	items, err := h.items.ListItems(ctx, includePrivate)
	if err != nil {
		respondError(c, h.logger, err, "failed to load items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": toItemResponses(items)})
}

// Get hides private items from non-admins.
func (h *ItemHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	item, err := h.items.GetItem(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "failed to load item")
		return
	}

	if item.IsPrivate && !isAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("item %s not found", id)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": toItemResponse(item)})
}

// Upload accepts one or more multipart "file" fields and an optional title.
func (h *ItemHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	setID := strings.TrimSpace(c.Param("id"))

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		badRequest(c, "expected a multipart form")
		return
	}

	headers := form.File["file"]
	if len(headers) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "file: at least one file is required"})
		return
	}

	files := make([]gallery.File, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			h.logger.Warn("failed to read uploaded file", "file", header.Filename, "error", err)
			badRequest(c, fmt.Sprintf("could not read file %q", header.Filename))
			return
		}
		files = append(files, gallery.File{Name: header.Filename, Data: data})
	}

	title := ""
	if values := form.Value["title"]; len(values) > 0 {
		title = values[0]
	}

	result := h.items.CreateItems(ctx, setID, title, files)

	if len(result.Items) == 0 && len(result.Failures) > 0 {
		respondError(c, h.logger, result.Failures[0].Err, "failed to save upload")
		return
	}

	failures := make([]failureResponse, 0, len(result.Failures))
	for _, failure := range result.Failures {
		h.logger.Warn("upload failed", "set_id", setID, "file", failure.Name, "error", failure.Err)
		failures = append(failures, failureResponse{Name: failure.Name, Error: failure.Err.Error()})
	}

	body := gin.H{
		"items":    toItemResponses(result.Items),
		"failures": failures,
	}
	if result.StaleCount {
		body["warning"] = staleCountWarning
	}

	h.logger.Info("items uploaded", "set_id", setID, "saved", len(result.Items), "failed", len(failures))
	c.JSON(http.StatusCreated, body)
}

func (h *ItemHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	var req itemPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Title == nil && req.IsPrivate == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "nothing to update"})
		return
	}

	item, err := h.items.UpdateItem(ctx, id, gallery.ItemChanges{Title: req.Title, IsPrivate: req.IsPrivate})
	if err != nil {
		respondError(c, h.logger, err, "failed to update item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": toItemResponse(item)})
}

// Delete removes the item and then refreshes its set's media count. A failed
// refresh still reports success, with a warning.
func (h *ItemHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	item, err := h.items.DeleteItem(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "failed to delete item")
		return
	}

	body := gin.H{"id": item.ID}
	if _, err := h.items.RefreshSetCount(ctx, item.SetID); err != nil {
		h.logger.Warn("item deleted with stale media count", "set_id", item.SetID, "item_id", item.ID, "error", err)
		body["warning"] = staleCountWarning
	}

	h.logger.Info("item deleted", "item_id", item.ID, "set_id", item.SetID)
	c.JSON(http.StatusOK, body)
}

func (h *ItemHandler) includePrivate(c *gin.Context) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(c.Query("private"))) {
	case "", "0", "false":
		return false, true
	}
	if !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return false, false
	}
	return true, true
}

func isAdmin(c *gin.Context) bool {
	handle, ok := middleware.CurrentHandle(c)
	return ok && handle.Admin
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
