package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scoresheet-api/internal/middleware"
	"github.com/noah-isme/scoresheet-api/internal/models"
	"github.com/noah-isme/scoresheet-api/internal/service"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
	"github.com/noah-isme/scoresheet-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service and manages the
// session cookie.
type AuthHandler struct {
	service    *service.AuthService
	cookieName string
	secure     bool
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{service: svc, cookieName: cookieName, secure: secure}
}

// SignUp godoc
// @Summary Register account
// @Description Create an account and open its first session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignUpRequest true "Sign up payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign up payload"))
		return
	}

	user, session, err := h.service.SignUp(c.Request.Context(), req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, session.SessionID, h.service.CookieMaxAge(false))
	response.Created(c, user)
}

// SignIn godoc
// @Summary Authenticate user
// @Description Authenticate by username and password; replaces any prior session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignInRequest true "Sign in payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign in payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	user, session, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, session.SessionID, h.service.CookieMaxAge(req.RememberMe))
	response.JSON(c, http.StatusOK, user, nil)
}

// SignOut godoc
// @Summary End session
// @Description Revoke the current session and clear the cookie
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, _ := c.Cookie(h.cookieName)

	if err := h.service.SignOut(c.Request.Context(), token, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	response.NoContent(c)
}

// Refresh godoc
// @Summary Extend session
// @Description Slide the current session window forward
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err != nil || token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no session found"))
		return
	}

	session, err := h.service.RefreshSession(c.Request.Context(), token)
	if err != nil {
		h.setSessionCookie(c, "", -1)
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, session.SessionID, h.service.CookieMaxAge(session.RememberMe))
	response.JSON(c, http.StatusOK, gin.H{"expires_at": session.ExpiresAt}, nil)
}

// Check godoc
// @Summary Check session
// @Description Reports whether the request carries a valid session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/check [get]
func (h *AuthHandler) Check(c *gin.Context) {
	if user, ok := middleware.CurrentUser(c); ok {
		response.JSON(c, http.StatusOK, gin.H{"authenticated": true, "user": user}, nil)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"authenticated": false}, nil)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
