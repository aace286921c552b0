package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/http/middleware"
	"github.com/pranathisri21/frame-vault/internal/identity"
)

// Identity is the subset of the identity provider the auth endpoints need.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (identity.Session, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	SignOut(ctx context.Context, token string) error
}

type AuthHandler struct {
	logger     *slog.Logger
	identity   Identity
	cookieName string
	now        func() time.Time
}

func NewAuthHandler(logger *slog.Logger, id Identity, cookieName string) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		identity:   id,
		cookieName: cookieName,
		now:        time.Now,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

func toUserResponse(h identity.Handle) userResponse {
	return userResponse{ID: h.UserID, Email: h.Email, Admin: h.Admin}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, identity.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			h.logger.Error("failed to sign up", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
		}
		return
	}

	h.startSession(c, session)
	c.JSON(http.StatusCreated, sessionBody(session))
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	ctx := c.Request.Context()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.logger.Warn("invalid sign in attempt", "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.logger.Error("failed to sign in", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	h.startSession(c, session)
	c.JSON(http.StatusOK, sessionBody(session))
}

// SignOut revokes the current token and clears the cookie. An already
// invalid token still clears the cookie.
func (h *AuthHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()

	token := middleware.SessionToken(c, h.cookieName)
	if token != "" {
		if err := h.identity.SignOut(ctx, token); err != nil && !errors.Is(err, identity.ErrUnauthorized) {
			h.logger.Error("failed to sign out", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign out"})
			return
		}
	}

	c.SetCookie(h.cookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"signedOut": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	handle, ok := middleware.CurrentHandle(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(handle)})
}

func (h *AuthHandler) startSession(c *gin.Context, session identity.Session) {
	maxAge := int(session.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, session.Token, maxAge, "/", "", secure, true)
}

func sessionBody(session identity.Session) gin.H {
	return gin.H{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      toUserResponse(session.Handle),
	}
}
