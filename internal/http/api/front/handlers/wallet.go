package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/metrics"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/payments"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
)

// WalletHandler serves balances, the coin journal, purchases and withdrawals.
type WalletHandler struct {
	ledger   *ledger.Engine
	payments *payments.Service
}

// NewWalletHandler constructs a WalletHandler. purchases may be nil when no
// payment gateway is configured.
func NewWalletHandler(engine *ledger.Engine, purchases *payments.Service) *WalletHandler {
	return &WalletHandler{ledger: engine, payments: purchases}
}

// Wallet returns the caller's balance and purchasable packages.
func (h *WalletHandler) Wallet(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	balance, errBalance := h.ledger.Balance(c.Request.Context(), ident.User.ID)
	if errBalance != nil {
		apiutil.Error(c, errBalance)
		return
	}
	packages := make([]gin.H, 0)
	if h.payments != nil {
		for _, pkg := range h.payments.Packages() {
			packages = append(packages, gin.H{"coins": pkg.Coins, "amount": pkg.Amount})
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"balance":        balance,
		"vote_cost":      internalsettings.VoteCost(),
		"min_withdrawal": h.ledger.MinWithdrawal(),
		"packages":       packages,
	})
}

// Transactions lists the caller's coin journal.
func (h *WalletHandler) Transactions(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	filter := ledger.TransactionFilter{Kind: models.CoinTransactionKind(strings.TrimSpace(c.Query("kind")))}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil || limit <= 0 {
			apiutil.BadRequest(c, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("before_id")); raw != "" {
		beforeID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			apiutil.BadRequest(c, "invalid before_id")
			return
		}
		filter.BeforeID = beforeID
	}

	rows, errList := h.ledger.Transactions(c.Request.Context(), ident.User.ID, filter)
	if errList != nil {
		apiutil.Error(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTransaction(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": out})
}

// verifyPurchaseRequest is the purchase verification payload.
type verifyPurchaseRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Coins     int64  `json:"coins"`
}

// VerifyPurchase verifies a gateway payment and credits the coins once.
func (h *WalletHandler) VerifyPurchase(c *gin.Context) {
	if h.payments == nil {
		apiutil.Fail(c, http.StatusServiceUnavailable, apiutil.CodeUnavailable, "payments are not configured")
		return
	}
	ident, _ := apiutil.CurrentIdentity(c)
	var body verifyPurchaseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}

	result, errVerify := h.payments.VerifyPurchase(c.Request.Context(), ident.User.ID, body.Reference, body.Amount, body.Coins)
	if errVerify != nil {
		_, code, _ := apiutil.Classify(errVerify)
		metrics.RecordPurchase(strings.ToLower(code), 0)
		apiutil.Error(c, errVerify)
		return
	}
	if result.AlreadyCredited {
		metrics.RecordPurchase("already_credited", 0)
	} else {
		metrics.RecordPurchase("credited", result.Coins)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"coins":            result.Coins,
		"balance":          result.Balance,
		"already_credited": result.AlreadyCredited,
		"transaction":      formatTransaction(result.Transaction),
	})
}

// withdrawalRequest is the withdrawal payload.
type withdrawalRequest struct {
	Coins       int64          `json:"coins"`
	Destination map[string]any `json:"destination"`
}

// RequestWithdrawal holds coins for an admin-reviewed payout.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	var body withdrawalRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apiutil.BadRequest(c, "invalid json")
		return
	}
	if len(body.Destination) == 0 {
		apiutil.BadRequest(c, "destination is required")
		return
	}
	withdrawal, errRequest := h.ledger.RequestWithdrawal(c.Request.Context(), ident.User.ID, body.Coins, body.Destination)
	if errRequest != nil {
		apiutil.Error(c, errRequest)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "withdrawal": formatWithdrawal(withdrawal)})
}

// ListWithdrawals lists the caller's withdrawals.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	ident, _ := apiutil.CurrentIdentity(c)
	rows, errList := h.ledger.ListWithdrawals(c.Request.Context(), ident.User.ID, 0, 0)
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
