package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	dbutil "github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
	"gorm.io/gorm"
)

const (
	defaultUserLimit = 50
	maxUserLimit     = 200
)

// UserHandler manages member accounts.
type UserHandler struct {
	db       *gorm.DB
	sessions *session.Manager
	ledger   *ledger.Engine
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, sessions *session.Manager, engine *ledger.Engine) *UserHandler {
	return &UserHandler{db: db, sessions: sessions, ledger: engine}
}

// List returns users with optional filters.
func (h *UserHandler) List(c *gin.Context) {
	var (
		searchQ = strings.TrimSpace(c.Query("search"))
		tierQ   = strings.TrimSpace(c.Query("tier"))
		bannedQ = strings.TrimSpace(c.Query("banned"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if searchQ != "" {
		searchPattern := "%" + searchQ + "%"
		ciPattern := dbutil.NormalizeLikePattern(h.db, searchPattern)
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR CAST(id AS TEXT) LIKE ?",
			ciPattern,
			ciPattern,
			searchPattern,
		)
	}
	if tierQ != "" {
		tier, ok := models.ParseTier(strings.ToLower(tierQ))
		if !ok {
			apiutil.BadRequest(c, "invalid tier")
			return
		}
		q = q.Where("tier = ?", tier)
	}
	if bannedQ != "" {
		banned, errParse := strconv.ParseBool(bannedQ)
		if errParse != nil {
			apiutil.BadRequest(c, "invalid banned filter")
			return
		}
		q = q.Where("banned = ?", banned)
	}
	limit := defaultUserLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil || parsed <= 0 {
			apiutil.BadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxUserLimit {
		limit = maxUserLimit
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		apiutil.Error(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": out})
}

// Get returns a single user.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apiutil.Error(c, ledger.ErrNotFound)
			return
		}
		apiutil.Error(c, errFind)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": formatUser(&user)})
}

// Ban bans a user and revokes their sessions.
func (h *UserHandler) Ban(c *gin.Context) {
	h.setFlag(c, "banned", true, true)
}

// Unban lifts a ban.
func (h *UserHandler) Unban(c *gin.Context) {
	h.setFlag(c, "banned", false, false)
}

// Activate re-enables a deactivated user.
func (h *UserHandler) Activate(c *gin.Context) {
	h.setFlag(c, "active", true, false)
}

// Deactivate disables a user and revokes their sessions.
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setFlag(c, "active", false, true)
}

func (h *UserHandler) setFlag(c *gin.Context, column string, value bool, revoke bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	admin, _ := apiutil.CurrentIdentity(c)
	if revoke && admin.User.ID == id {
		apiutil.BadRequest(c, "cannot restrict your own account")
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{column: value, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		apiutil.Error(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apiutil.Error(c, ledger.ErrNotFound)
		return
	}

	var revoked int64
	if revoke {
		count, errRevoke := h.sessions.LogoutAllDevices(c.Request.Context(), id)
		if errRevoke != nil {
			apiutil.Error(c, errRevoke)
			return
		}
		revoked = count
	}
	log.WithFields(log.Fields{
		"admin_id": admin.User.ID,
		"user_id":  id,
		column:     value,
		"revoked":  revoked,
	}).Info("admin: user updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "revoked_sessions": revoked})
}

// adjustCoinsRequest is the coin adjustment payload. Amount is signed.
type adjustCoinsRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// AdjustCoins credits or debits a user's balance through the ledger.
func (h *UserHandler) AdjustCoins(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body adjustCoinsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	admin, _ := apiutil.CurrentIdentity(c)
	row, errAdjust := h.ledger.Adjust(c.Request.Context(), id, body.Amount, admin.User.ID, body.Note)
	if errAdjust != nil {
		apiutil.Error(c, errAdjust)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"balance":        row.BalanceAfter,
		"transaction_id": row.ID,
	})
}

func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		apiutil.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"auth_id":      user.AuthID,
		"username":     user.Username,
		"email":        user.Email,
		"tier":         user.Tier.String(),
		"coin_balance": user.CoinBalance,
		"active":       user.Active,
		"banned":       user.Banned,
		"is_admin":     user.IsAdmin,
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}
}
