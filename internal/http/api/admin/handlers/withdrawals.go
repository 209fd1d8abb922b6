package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

// WithdrawalHandler reviews withdrawal requests.
type WithdrawalHandler struct {
	ledger *ledger.Engine
}

// NewWithdrawalHandler constructs a WithdrawalHandler.
func NewWithdrawalHandler(engine *ledger.Engine) *WithdrawalHandler {
	return &WithdrawalHandler{ledger: engine}
}

var withdrawalStatuses = map[string]models.WithdrawalStatus{
	"pending":  models.WithdrawalStatusPending,
	"approved": models.WithdrawalStatusApproved,
	"rejected": models.WithdrawalStatusRejected,
}

// List returns withdrawals, pending first when no status filter is given.
func (h *WithdrawalHandler) List(c *gin.Context) {
	statusQ := strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", "pending")))
	var status models.WithdrawalStatus
	if statusQ != "all" {
		parsed, ok := withdrawalStatuses[statusQ]
		if !ok {
			apiutil.BadRequest(c, "invalid status")
			return
		}
		status = parsed
	}
	rows, errList := h.ledger.ListWithdrawals(c.Request.Context(), 0, status, 0)
	if errList != nil {
		apiutil.Error(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatWithdrawal(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawals": out})
}

// reviewRequest carries an optional review note.
type reviewRequest struct {
	Note string `json:"note"`
}

// Approve marks a pending withdrawal as paid out.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	h.resolve(c, true)
}

// Reject refuses a pending withdrawal and refunds the coins.
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	h.resolve(c, false)
}

func (h *WithdrawalHandler) resolve(c *gin.Context, approve bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body reviewRequest
	if errDecode := json.NewDecoder(c.Request.Body).Decode(&body); errDecode != nil && !errors.Is(errDecode, io.EOF) {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	admin, _ := apiutil.CurrentIdentity(c)
	withdrawal, errResolve := h.ledger.ResolveWithdrawal(c.Request.Context(), id, admin.User.ID, approve, body.Note)
	if errResolve != nil {
		apiutil.Error(c, errResolve)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawal": formatWithdrawal(withdrawal)})
}

func formatWithdrawal(w *models.Withdrawal) gin.H {
	status := "pending"
	for name, value := range withdrawalStatuses {
		if value == w.Status {
			status = name
		}
	}
	out := gin.H{
		"id":          w.ID,
		"user_id":     w.UserID,
		"coins":       w.Coins,
		"status":      status,
		"note":        w.Note,
		"reviewed_by": w.ReviewedBy,
		"reviewed_at": w.ReviewedAt,
		"created_at":  w.CreatedAt,
	}
	if len(w.Destination) > 0 {
		out["destination"] = json.RawMessage(w.Destination)
	}
	return out
}
