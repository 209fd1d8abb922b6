package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

const referencePrefix = "paystack:"

var (
	// ErrUnknownPackage is returned when (amount, coins) is not a sold package.
	ErrUnknownPackage = errors.New("unknown coin package")
	// ErrPaymentNotConfirmed is returned when the gateway has not settled the payment.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	// ErrAmountMismatch is returned when the paid amount or currency differs.
	ErrAmountMismatch = errors.New("payment amount mismatch")
	// ErrInvalidReference is returned for an empty payment reference.
	ErrInvalidReference = errors.New("invalid payment reference")
	// ErrReferenceOwnedByOther is returned when another user already redeemed the reference.
	ErrReferenceOwnedByOther = errors.New("payment reference belongs to another user")
)

// PurchaseResult reports the credit applied for a purchase.
type PurchaseResult struct {
	Transaction     *models.CoinTransaction
	Coins           int64
	Balance         int64
	AlreadyCredited bool
}

// Service turns verified payments into coin credits.
type Service struct {
	gateway  Gateway
	ledger   *ledger.Engine
	currency string
	packages []config.CoinPackage
}

// NewService wires a gateway to the ledger.
func NewService(gateway Gateway, engine *ledger.Engine, cfg config.PaymentsConfig) *Service {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "NGN"
	}
	return &Service{
		gateway:  gateway,
		ledger:   engine,
		currency: currency,
		packages: append([]config.CoinPackage(nil), cfg.Packages...),
	}
}

// Packages lists the coin packages on sale.
func (s *Service) Packages() []config.CoinPackage {
	return append([]config.CoinPackage(nil), s.packages...)
}

func (s *Service) knownPackage(amount, coins int64) bool {
	for _, pkg := range s.packages {
		if pkg.Amount == amount && pkg.Coins == coins {
			return true
		}
	}
	return false
}

// VerifyPurchase verifies reference with the gateway and credits coins once.
// expectedAmount is in major currency units.
func (s *Service) VerifyPurchase(ctx context.Context, userID uint64, reference string, expectedAmount, expectedCoins int64) (*PurchaseResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidReference
	}
	if !s.knownPackage(expectedAmount, expectedCoins) {
		return nil, ErrUnknownPackage
	}
	journalRef := referencePrefix + reference

	if existing, errFind := s.ledger.FindTransactionByReference(ctx, journalRef); errFind == nil {
		return s.alreadyCredited(existing, userID)
	} else if !errors.Is(errFind, ledger.ErrNotFound) {
		return nil, errFind
	}

	verification, errVerify := s.gateway.Verify(ctx, reference)
	if errVerify != nil {
		return nil, errVerify
	}
	if !verification.Successful() {
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotConfirmed, verification.Status)
	}
	if verification.Amount != expectedAmount*100 || (verification.Currency != "" && verification.Currency != s.currency) {
		log.WithFields(log.Fields{
			"reference": reference,
			"expected":  expectedAmount * 100,
			"paid":      verification.Amount,
			"currency":  verification.Currency,
		}).Warn("payments: amount mismatch")
		return nil, ErrAmountMismatch
	}

	row, errCredit := s.ledger.Credit(ctx, ledger.Entry{
		UserID:    userID,
		Amount:    expectedCoins,
		Kind:      models.CoinTxPurchase,
		Reference: journalRef,
		Metadata: map[string]any{
			"amount":   expectedAmount,
			"currency": s.currency,
			"paid_at":  verification.PaidAt,
		},
	})
	if errors.Is(errCredit, ledger.ErrDuplicateReference) {
		existing, errFind := s.ledger.FindTransactionByReference(ctx, journalRef)
		if errFind != nil {
			return nil, errFind
		}
		return s.alreadyCredited(existing, userID)
	}
	if errCredit != nil {
		return nil, errCredit
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"reference": reference,
		"coins":     expectedCoins,
	}).Info("payments: purchase credited")
	return &PurchaseResult{
		Transaction: row,
		Coins:       expectedCoins,
		Balance:     row.BalanceAfter,
	}, nil
}

func (s *Service) alreadyCredited(existing *models.CoinTransaction, userID uint64) (*PurchaseResult, error) {
	if existing.UserID != userID {
		return nil, ErrReferenceOwnedByOther
	}
	return &PurchaseResult{
		Transaction:     existing,
		Coins:           existing.Amount,
		Balance:         existing.BalanceAfter,
		AlreadyCredited: true,
	}, nil
}
