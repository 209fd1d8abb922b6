package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
	"gorm.io/gorm"
)

// SettingHandler manages admin CRUD for runtime settings.
type SettingHandler struct {
	db *gorm.DB // Database handle for settings.
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// createSettingRequest captures the payload for creating a setting.
type createSettingRequest struct {
	Key   string          `json:"key"`   // Setting key.
	Value json.RawMessage `json:"value"` // JSON value payload.
}

// updateSettingRequest captures the payload for updating a setting.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"` // New JSON value.
}

var positiveIntSettingKeys = map[string]struct{}{
	internalsettings.VoteCostKey:        {},
	internalsettings.LoginRateWindowKey: {},
	internalsettings.VoteRateWindowKey:  {},
}

var nonNegativeIntSettingKeys = map[string]struct{}{
	internalsettings.LoginRateLimitKey:   {},
	internalsettings.VoteRateLimitKey:    {},
	internalsettings.RateLimitRedisDBKey: {},
}

var boolSettingKeys = map[string]struct{}{
	internalsettings.RateLimitRedisEnabledKey: {},
}

var stringSettingKeys = map[string]struct{}{
	internalsettings.RateLimitRedisAddrKey:     {},
	internalsettings.RateLimitRedisPasswordKey: {},
	internalsettings.RateLimitRedisPrefixKey:   {},
}

var secretSettingKeys = map[string]struct{}{
	internalsettings.RateLimitRedisPasswordKey: {},
}

var (
	errPositiveIntegerValue    = errors.New("value must be a positive integer")
	errNonNegativeIntegerValue = errors.New("value must be a non-negative integer")
	errBoolValue               = errors.New("value must be a boolean")
	errStringValue             = errors.New("value must be a string")
	errMissingValue            = errors.New("value is required")
)

// Create validates and inserts a setting, then refreshes the snapshot.
func (h *SettingHandler) Create(c *gin.Context) {
	var body createSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	key := strings.TrimSpace(body.Key)
	if key == "" {
		apiutil.BadRequest(c, "key is required")
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		apiutil.BadRequest(c, errValidate.Error())
		return
	}

	ctx := c.Request.Context()
	var count int64
	if errCount := h.db.WithContext(ctx).Model(&models.Setting{}).Where("key = ?", key).Count(&count).Error; errCount != nil {
		apiutil.Error(c, errCount)
		return
	}
	if count > 0 {
		apiutil.Fail(c, http.StatusConflict, apiutil.CodeConflict, "key already exists")
		return
	}

	setting := models.Setting{Key: key, Value: body.Value}
	if errCreate := h.db.WithContext(ctx).Create(&setting).Error; errCreate != nil {
		apiutil.Error(c, errCreate)
		return
	}
	if !h.refresh(c) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "setting": formatSetting(&setting)})
}

// List returns all settings sorted by key.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		apiutil.Error(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSetting(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": out})
}

// Get returns a setting by key.
func (h *SettingHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	var setting models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&setting).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apiutil.Fail(c, http.StatusNotFound, apiutil.CodeNotFound, "setting not found")
			return
		}
		apiutil.Error(c, errFind)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "setting": formatSetting(&setting)})
}

// Update replaces a setting value and refreshes the snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		apiutil.BadRequest(c, errValidate.Error())
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Setting{}).
		Where("key = ?", key).
		Update("value", body.Value)
	if res.Error != nil {
		apiutil.Error(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apiutil.Fail(c, http.StatusNotFound, apiutil.CodeNotFound, "setting not found")
		return
	}
	if !h.refresh(c) {
		return
	}
	admin, _ := apiutil.CurrentIdentity(c)
	if admin != nil {
		log.WithFields(log.Fields{"admin_id": admin.User.ID, "key": key}).Info("admin: setting updated")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete removes a setting; readers fall back to built-in defaults.
func (h *SettingHandler) Delete(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	res := h.db.WithContext(c.Request.Context()).Where("key = ?", key).Delete(&models.Setting{})
	if res.Error != nil {
		apiutil.Error(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apiutil.Fail(c, http.StatusNotFound, apiutil.CodeNotFound, "setting not found")
		return
	}
	if !h.refresh(c) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SettingHandler) refresh(c *gin.Context) bool {
	if errRefresh := internalsettings.Refresh(c.Request.Context(), h.db); errRefresh != nil {
		apiutil.Error(c, errRefresh)
		return false
	}
	return true
}

func validateSettingValue(key string, value json.RawMessage) error {
	if len(value) == 0 {
		return errMissingValue
	}
	if _, ok := positiveIntSettingKeys[key]; ok {
		if parsed, okParse := internalsettings.ParseNonNegativeInt(value); !okParse || parsed == 0 {
			return errPositiveIntegerValue
		}
		return nil
	}
	if _, ok := nonNegativeIntSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseNonNegativeInt(value); !okParse {
			return errNonNegativeIntegerValue
		}
		return nil
	}
	if _, ok := boolSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseBool(value); !okParse {
			return errBoolValue
		}
		return nil
	}
	if _, ok := stringSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseString(value); !okParse {
			return errStringValue
		}
	}
	return nil
}

// formatSetting formats a setting row, masking secret values.
func formatSetting(s *models.Setting) gin.H {
	var value any = s.Value
	if _, secret := secretSettingKeys[s.Key]; secret && len(s.Value) > 0 {
		value = "********"
	}
	return gin.H{
		"key":        s.Key,
		"value":      value,
		"updated_at": s.UpdatedAt,
	}
}
