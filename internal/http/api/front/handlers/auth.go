package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/logging"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/metrics"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
)

// SessionTokenHeader carries the opaque session token.
const SessionTokenHeader = "X-Session-Token"

// AuthHandler serves login, refresh, logout and session management.
type AuthHandler struct {
	sessions *session.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// loginRequest is the login payload.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	DeviceName string `json:"device_name"`
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}

	result, errLogin := h.sessions.Login(c.Request.Context(), session.LoginRequest{
		Email:      body.Email,
		Password:   body.Password,
		RememberMe: body.RememberMe,
		Device: models.DeviceInfo{
			UserAgent: c.Request.UserAgent(),
			Name:      strings.TrimSpace(body.DeviceName),
		},
		IPAddress: c.ClientIP(),
	})
	if errLogin != nil {
		_, code, _ := apiutil.Classify(errLogin)
		metrics.RecordLogin(strings.ToLower(code), 0)
		apiutil.Error(c, errLogin)
		return
	}
	metrics.RecordLogin("success", result.Evicted)

	c.Set(logging.UserIDKey, result.User.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"access_token":       result.AccessToken,
		"refresh_token":      result.RefreshToken,
		"session_token":      result.SessionToken,
		"expires_in":         result.ExpiresIn,
		"session_expires_at": result.SessionExpiresAt,
		"user":               formatUser(&result.User),
	})
}

// refreshRequest is the refresh payload.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || strings.TrimSpace(body.RefreshToken) == "" {
		apiutil.BadRequest(c, "refresh_token is required")
		return
	}
	result, errRefresh := h.sessions.RefreshToken(c.Request.Context(), strings.TrimSpace(body.RefreshToken))
	if errRefresh != nil {
		apiutil.Error(c, errRefresh)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"expires_in":    result.ExpiresIn,
	})
}

// logoutRequest is the optional logout payload.
type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// Logout deactivates the session named by the header or body token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := strings.TrimSpace(c.GetHeader(SessionTokenHeader))
	if token == "" {
		var body logoutRequest
		if errBind := c.ShouldBindJSON(&body); errBind != nil && !errors.Is(errBind, io.EOF) {
			apiutil.BadRequest(c, "invalid json")
			return
		}
		token = strings.TrimSpace(body.SessionToken)
	}
	if token == "" {
		apiutil.BadRequest(c, "session token is required")
		return
	}
	if errLogout := h.sessions.Logout(c.Request.Context(), token); errLogout != nil {
		apiutil.Error(c, errLogout)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session validates the X-Session-Token header.
func (h *AuthHandler) Session(c *gin.Context) {
	ident, errValidate := h.sessions.ValidateSession(c.Request.Context(), strings.TrimSpace(c.GetHeader(SessionTokenHeader)))
	if errValidate != nil {
		apiutil.Error(c, errValidate)
		return
	}
	c.Set(logging.UserIDKey, ident.User.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    formatUser(&ident.User),
		"session": formatSession(&ident.Session, ident.Session.ID),
	})
}

// LogoutAll revokes every session of the caller.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	count, errLogout := h.sessions.LogoutAllDevices(c.Request.Context(), ident.User.ID)
	if errLogout != nil {
		apiutil.Error(c, errLogout)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "revoked": count})
}

// Sessions lists the caller's active sessions.
func (h *AuthHandler) Sessions(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	sessions, errList := h.sessions.GetUserSessions(c.Request.Context(), ident.User.ID)
	if errList != nil {
		apiutil.Error(c, errList)
		return
	}
	out := make([]gin.H, 0, len(sessions))
	for i := range sessions {
		out = append(out, formatSession(&sessions[i], ident.Session.ID))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": out})
}

// RevokeSession revokes one of the caller's sessions by id.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		apiutil.BadRequest(c, "invalid session id")
		return
	}
	if errRevoke := h.sessions.LogoutSession(c.Request.Context(), ident.User.ID, sessionID); errRevoke != nil {
		apiutil.Error(c, errRevoke)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
