package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/storage"
)

type setResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaCount int       `json:"mediaCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type itemResponse struct {
	ID        string     `json:"id"`
	SetID     string     `json:"setId"`
	Title     string     `json:"title"`
	MediaURL  string     `json:"mediaUrl"`
	Type      string     `json:"type"`
	IsPrivate bool       `json:"isPrivate"`
	TakenAt   *time.Time `json:"takenAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toSetResponse(set storage.Set) setResponse {
	return setResponse{
		ID:         set.ID,
		Name:       set.Name,
		MediaCount: set.MediaCount,
		CreatedAt:  set.CreatedAt,
		UpdatedAt:  set.UpdatedAt,
	}
}

func toSetResponses(sets []storage.Set) []setResponse {
	out := make([]setResponse, 0, len(sets))
	for _, set := range sets {
		out = append(out, toSetResponse(set))
	}
	return out
}

func toItemResponse(item storage.Item) itemResponse {
	return itemResponse{
		ID:        item.ID,
		SetID:     item.SetID,
		Title:     item.Title,
		MediaURL:  item.MediaURL,
		Type:      string(item.MediaType),
		IsPrivate: item.IsPrivate,
		TakenAt:   item.TakenAt,
		CreatedAt: item.CreatedAt,
	}
}

func toItemResponses(items []storage.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}

// respondError maps the gallery error taxonomy onto status codes. Anything
// unrecognised is logged and reported as a 500 with fallback as the message.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var (
		validation *gallery.ValidationError
		notFound   *gallery.NotFoundError
		upload     *gallery.UploadError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &upload):
		logger.Warn("media upload failed", "file", upload.Name, "error", upload.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": upload.Error()})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
