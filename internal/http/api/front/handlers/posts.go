package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	dbutil "github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

const (
	maxPostContentRunes = 5000
	maxCategoryRunes    = 64
	defaultPostLimit    = 20
	maxPostLimit        = 100
)

// PostHandler serves the community feed.
type PostHandler struct {
	db     *gorm.DB
	ledger *ledger.Engine
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(db *gorm.DB, engine *ledger.Engine) *PostHandler {
	return &PostHandler{db: db, ledger: engine}
}

// createPostRequest is the post creation payload.
type createPostRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Create publishes a post authored by the caller.
func (h *PostHandler) Create(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	var body createPostRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		apiutil.BadRequest(c, "content is required")
		return
	}
	if utf8.RuneCountInString(content) > maxPostContentRunes {
		apiutil.BadRequest(c, "content is too long")
		return
	}
	category := strings.ToLower(strings.TrimSpace(body.Category))
	if category == "" {
		category = "general"
	}
	if utf8.RuneCountInString(category) > maxCategoryRunes {
		apiutil.BadRequest(c, "category is too long")
		return
	}

	post := models.Post{
		AuthorID: ident.User.ID,
		Category: category,
		Content:  content,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&post).Error; errCreate != nil {
		apiutil.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": formatPost(&post)})
}

// List returns non-deleted posts, newest first.
func (h *PostHandler) List(c *gin.Context) {
	limit := defaultPostLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil || parsed <= 0 {
			apiutil.BadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxPostLimit {
		limit = maxPostLimit
	}

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Post{}).
		Where("deleted = ?", false)
	if category := strings.ToLower(strings.TrimSpace(c.Query("category"))); category != "" {
		query = query.Where("category = ?", category)
	}
	if author := strings.TrimSpace(c.Query("author_id")); author != "" {
		authorID, errParse := strconv.ParseUint(author, 10, 64)
		if errParse != nil {
			apiutil.BadRequest(c, "invalid author_id")
			return
		}
		query = query.Where("author_id = ?", authorID)
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := "%" + dbutil.NormalizeLikePattern(h.db, search) + "%"
		query = query.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "content"), pattern)
	}
	if before := strings.TrimSpace(c.Query("before_id")); before != "" {
		beforeID, errParse := strconv.ParseUint(before, 10, 64)
		if errParse != nil {
			apiutil.BadRequest(c, "invalid before_id")
			return
		}
		query = query.Where("id < ?", beforeID)
	}

	var posts []models.Post
	if errFind := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error; errFind != nil {
		apiutil.Error(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(posts))
	for i := range posts {
		out = append(out, formatPost(&posts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "posts": out})
}

// Get returns one post and whether the caller has voted on it.
func (h *PostHandler) Get(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	postID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || postID == 0 {
		apiutil.BadRequest(c, "invalid post id")
		return
	}
	var post models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted = ?", postID, false).
		First(&post).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apiutil.Error(c, ledger.ErrNotFound)
			return
		}
		apiutil.Error(c, errFind)
		return
	}
	voted, errVoted := h.ledger.HasVoted(c.Request.Context(), ident.User.ID, post.ID)
	if errVoted != nil {
		apiutil.Error(c, errVoted)
		return
	}
	out := formatPost(&post)
	out["has_voted"] = voted
	c.JSON(http.StatusOK, gin.H{"success": true, "post": out})
}
