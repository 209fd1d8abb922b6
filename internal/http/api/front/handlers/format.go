package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"tier":         user.Tier.String(),
		"coin_balance": user.CoinBalance,
		"is_admin":     user.IsAdmin,
		"created_at":   user.CreatedAt,
	}
}

func formatSession(s *models.Session, currentID string) gin.H {
	var device any
	if len(s.Device) > 0 {
		device = json.RawMessage(s.Device)
	}
	return gin.H{
		"id":               s.ID,
		"device":           device,
		"ip_address":       s.IPAddress,
		"remember_me":      s.RememberMe,
		"created_at":       s.CreatedAt,
		"last_activity_at": s.LastActivityAt,
		"expires_at":       s.ExpiresAt,
		"current":          s.ID == currentID,
	}
}

func formatPost(p *models.Post) gin.H {
	return gin.H{
		"id":            p.ID,
		"author_id":     p.AuthorID,
		"category":      p.Category,
		"content":       p.Content,
		"vote_count":    p.VoteCount,
		"comment_count": p.CommentCount,
		"created_at":    p.CreatedAt,
		"updated_at":    p.UpdatedAt,
	}
}

func formatTransaction(tx *models.CoinTransaction) gin.H {
	out := gin.H{
		"id":            tx.ID,
		"kind":          tx.Kind,
		"amount":        tx.Amount,
		"balance_after": tx.BalanceAfter,
		"created_at":    tx.CreatedAt,
	}
	if tx.Reference != nil {
		out["reference"] = *tx.Reference
	}
	if tx.PostID != nil {
		out["post_id"] = *tx.PostID
	}
	if len(tx.Metadata) > 0 {
		out["metadata"] = json.RawMessage(tx.Metadata)
	}
	return out
}

func formatWithdrawal(w *models.Withdrawal) gin.H {
	status := "pending"
	switch w.Status {
	case models.WithdrawalStatusApproved:
		status = "approved"
	case models.WithdrawalStatusRejected:
		status = "rejected"
	}
	out := gin.H{
		"id":          w.ID,
		"user_id":     w.UserID,
		"coins":       w.Coins,
		"status":      status,
		"note":        w.Note,
		"reviewed_at": w.ReviewedAt,
		"created_at":  w.CreatedAt,
	}
	if len(w.Destination) > 0 {
		out["destination"] = json.RawMessage(w.Destination)
	}
	return out
}
