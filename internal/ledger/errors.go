package ledger

import "errors"

var (
	// ErrSelfVote is returned when a user votes on their own post.
	ErrSelfVote = errors.New("cannot vote on own post")
	// ErrInsufficientFunds is returned when a guarded debit would go negative.
	ErrInsufficientFunds = errors.New("insufficient coin balance")
	// ErrAlreadyProcessing is returned when a conflicting write keeps winning.
	ErrAlreadyProcessing = errors.New("operation already processing")
	// ErrNotFound is returned when a post, user or withdrawal is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount is returned for non-positive or out-of-range amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrDuplicateReference is returned when a reference was already journaled.
	ErrDuplicateReference = errors.New("duplicate reference")
	// ErrWithdrawalResolved is returned when a withdrawal is no longer pending.
	ErrWithdrawalResolved = errors.New("withdrawal already resolved")
)
