package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/metrics"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
)

// VoteHandler toggles coin votes on posts.
type VoteHandler struct {
	ledger *ledger.Engine
}

// NewVoteHandler constructs a VoteHandler.
func NewVoteHandler(engine *ledger.Engine) *VoteHandler {
	return &VoteHandler{ledger: engine}
}

// voteRequest is the vote payload. PostAuthorID is optional.
type voteRequest struct {
	PostID       uint64 `json:"post_id"`
	PostAuthorID uint64 `json:"post_author_id"`
}

// Vote casts a vote, or retracts the caller's existing vote.
func (h *VoteHandler) Vote(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	var body voteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.PostID == 0 {
		apiutil.BadRequest(c, "post_id is required")
		return
	}

	result, errVote := h.ledger.CastOrRetractVote(c.Request.Context(), ledger.VoteRequest{
		VoterID:      ident.User.ID,
		PostID:       body.PostID,
		PostAuthorID: body.PostAuthorID,
		Amount:       internalsettings.VoteCost(),
	})
	if errVote != nil {
		_, code, _ := apiutil.Classify(errVote)
		metrics.RecordVote(strings.ToLower(code))
		apiutil.Error(c, errVote)
		return
	}
	if result.Voted {
		metrics.RecordVote("cast")
	} else {
		metrics.RecordVote("retract")
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"voted":     result.Voted,
		"new_count": result.VoteCount,
		"balance":   result.VoterBalance,
		"amount":    result.Amount,
	})
}
