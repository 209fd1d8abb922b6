package ledger

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

// VoteRequest identifies a vote toggle. PostAuthorID is optional; when set it
// must match the stored author.
type VoteRequest struct {
	VoterID      uint64
	PostID       uint64
	PostAuthorID uint64
	Amount       int64
}

// VoteResult is the authoritative state after a toggle.
type VoteResult struct {
	Voted         bool
	Amount        int64
	VoteCount     int64
	VoterBalance  int64
	AuthorBalance int64
	AuthorID      uint64
}

// CastOrRetractVote casts a vote when none exists for (voter, post), otherwise
// retracts it. Coins move between voter and author in the same transaction.
func (e *Engine) CastOrRetractVote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.VoterID == 0 || req.PostID == 0 {
		return nil, ErrNotFound
	}

	var result VoteResult
	errTx := e.inTx(ctx, "vote", func(tx *gorm.DB) error {
		res, errToggle := e.toggleVote(tx, req)
		if errToggle != nil {
			return errToggle
		}
		result = *res
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"voter_id":   req.VoterID,
		"post_id":    req.PostID,
		"voted":      result.Voted,
		"amount":     result.Amount,
		"vote_count": result.VoteCount,
	}).Info("vote toggled")
	return &result, nil
}

func (e *Engine) toggleVote(tx *gorm.DB, req VoteRequest) (*VoteResult, error) {
	var post models.Post
	if errPost := lockUpdate(tx).
		Where("id = ? AND deleted = ?", req.PostID, false).
		First(&post).Error; errPost != nil {
		return nil, notFound(errPost)
	}
	if req.PostAuthorID != 0 && req.PostAuthorID != post.AuthorID {
		return nil, ErrNotFound
	}
	if req.VoterID == post.AuthorID {
		return nil, ErrSelfVote
	}
	if _, errLock := lockUsers(tx, ascending(req.VoterID, post.AuthorID)...); errLock != nil {
		return nil, errLock
	}

	var existing []models.Vote
	if errFind := tx.
		Where("voter_id = ? AND post_id = ?", req.VoterID, post.ID).
		Limit(1).
		Find(&existing).Error; errFind != nil {
		return nil, errFind
	}

	now := e.now()
	postID := post.ID
	result := &VoteResult{AuthorID: post.AuthorID}

	if len(existing) == 0 {
		amount := req.Amount
		voterBalance, errDebit := addBalance(tx, req.VoterID, -amount)
		if errDebit != nil {
			return nil, errDebit
		}
		authorBalance, errCredit := addBalance(tx, post.AuthorID, amount)
		if errCredit != nil {
			return nil, errCredit
		}
		vote := models.Vote{VoterID: req.VoterID, PostID: post.ID, Amount: amount, CreatedAt: now}
		if errCreate := tx.Create(&vote).Error; errCreate != nil {
			return nil, errCreate
		}
		if errCount := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("vote_count", gorm.Expr("vote_count + 1")).Error; errCount != nil {
			return nil, errCount
		}
		if _, errJournal := writeJournal(tx, now,
			journal{userID: req.VoterID, kind: models.CoinTxVoteDebit, amount: -amount, balance: voterBalance, postID: &postID},
			journal{userID: post.AuthorID, kind: models.CoinTxVoteCredit, amount: amount, balance: authorBalance, postID: &postID},
		); errJournal != nil {
			return nil, errJournal
		}
		result.Voted = true
		result.Amount = amount
		result.VoterBalance = voterBalance
		result.AuthorBalance = authorBalance
	} else {
		vote := existing[0]
		amount := vote.Amount
		voterBalance, errCredit := addBalance(tx, req.VoterID, amount)
		if errCredit != nil {
			return nil, errCredit
		}
		authorBalance, errDebit := addBalance(tx, post.AuthorID, -amount)
		if errDebit != nil {
			return nil, errDebit
		}
		res := tx.Where("id = ?", vote.ID).Delete(&models.Vote{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrAlreadyProcessing
		}
		if errCount := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("vote_count", gorm.Expr("CASE WHEN vote_count > 0 THEN vote_count - 1 ELSE 0 END")).Error; errCount != nil {
			return nil, errCount
		}
		if _, errJournal := writeJournal(tx, now,
			journal{userID: req.VoterID, kind: models.CoinTxVoteRefund, amount: amount, balance: voterBalance, postID: &postID},
			journal{userID: post.AuthorID, kind: models.CoinTxVoteReversal, amount: -amount, balance: authorBalance, postID: &postID},
		); errJournal != nil {
			return nil, errJournal
		}
		result.Voted = false
		result.Amount = amount
		result.VoterBalance = voterBalance
		result.AuthorBalance = authorBalance
	}

	if errCount := tx.Model(&models.Post{}).
		Where("id = ?", post.ID).
		Select("vote_count").
		Scan(&result.VoteCount).Error; errCount != nil {
		return nil, errCount
	}
	return result, nil
}

// HasVoted reports whether voterID currently has a vote on postID.
func (e *Engine) HasVoted(ctx context.Context, voterID, postID uint64) (bool, error) {
	var count int64
	if errCount := e.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("voter_id = ? AND post_id = ?", voterID, postID).
		Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

func ascending(a, b uint64) []uint64 {
	if a > b {
		a, b = b, a
	}
	return []uint64{a, b}
}
