package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/storage"
)

// Sets is the subset of the gallery repository the set endpoints need.
type Sets interface {
	CreateSet(ctx context.Context, name string) (storage.Set, error)
	ListSets(ctx context.Context) ([]storage.Set, error)
	GetSet(ctx context.Context, id string) (storage.Set, error)
	UpdateSet(ctx context.Context, id string, changes gallery.SetChanges) (storage.Set, error)
	RefreshSetCount(ctx context.Context, id string) (storage.Set, error)
	DeleteSet(ctx context.Context, id string) error
}

type SetHandler struct {
	logger *slog.Logger
	sets   Sets
}

func NewSetHandler(logger *slog.Logger, sets Sets) *SetHandler {
	return &SetHandler{
		logger: logger,
		sets:   sets,
	}
}

type setRequest struct {
	Name *string `json:"name"`
}

func (h *SetHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	sets, err := h.sets.ListSets(ctx)
	if err != nil {
		respondError(c, h.logger, err, "failed to load sets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sets": toSetResponses(sets)})
}

func (h *SetHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	set, err := h.sets.CreateSet(ctx, name)
	if err != nil {
		respondError(c, h.logger, err, "failed to create set")
		return
	}

	h.logger.Info("set created", "set_id", set.ID)
	c.JSON(http.StatusCreated, gin.H{"set": toSetResponse(set)})
}

func (h *SetHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	set, err := h.sets.GetSet(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "failed to load set")
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": toSetResponse(set)})
}

func (h *SetHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	set, err := h.sets.UpdateSet(ctx, id, gallery.SetChanges{Name: req.Name})
	if err != nil {
		respondError(c, h.logger, err, "failed to update set")
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": toSetResponse(set)})
}

func (h *SetHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	set, err := h.sets.RefreshSetCount(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "failed to refresh media count")
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": toSetResponse(set)})
}

func (h *SetHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	if err := h.sets.DeleteSet(ctx, id); err != nil {
		respondError(c, h.logger, err, "failed to delete set")
		return
	}

	h.logger.Info("set deleted", "set_id", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}
