package payments

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable is returned when the gateway cannot be reached.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrTransactionNotFound is returned when the gateway has no such reference.
	ErrTransactionNotFound = errors.New("payment reference not found")
)

// Verification is the gateway's view of a transaction.
type Verification struct {
	Reference string
	Status    string
	// Amount is in minor units (kobo for NGN).
	Amount   int64
	Currency string
	PaidAt   string
}

// Successful reports whether the gateway settled the transaction.
func (v Verification) Successful() bool {
	return v.Status == "success"
}

// Gateway verifies a payment reference with the payment provider.
type Gateway interface {
	Verify(ctx context.Context, reference string) (Verification, error)
}
