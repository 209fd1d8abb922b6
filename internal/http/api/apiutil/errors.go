package apiutil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/payments"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ratelimit"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
)

// Error codes returned in the "code" field of failed responses.
const (
	CodeSelfVote            = "SELF_VOTE"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeAlreadyProcessing   = "ALREADY_PROCESSING"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidSession      = "INVALID_SESSION"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenMalformed      = "TOKEN_MALFORMED"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeAccountBanned       = "ACCOUNT_BANNED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeForbidden           = "FORBIDDEN"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeUnknownPackage      = "UNKNOWN_PACKAGE"
	CodePaymentNotConfirmed = "PAYMENT_NOT_CONFIRMED"
	CodeAmountMismatch      = "AMOUNT_MISMATCH"
	CodeConflict            = "CONFLICT"
)

// mapping binds a sentinel error to its response status and code.
type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable is checked in order with errors.Is; the first match wins.
var errorTable = []mapping{
	{ledger.ErrSelfVote, http.StatusBadRequest, CodeSelfVote, "cannot vote on your own post"},
	{ledger.ErrInsufficientFunds, http.StatusPaymentRequired, CodeInsufficientFunds, "insufficient coin balance"},
	{ledger.ErrAlreadyProcessing, http.StatusConflict, CodeAlreadyProcessing, "request is already being processed"},
	{ledger.ErrNotFound, http.StatusNotFound, CodeNotFound, "not found"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount, "invalid amount"},
	{ledger.ErrDuplicateReference, http.StatusConflict, CodeConflict, "reference already used"},
	{ledger.ErrWithdrawalResolved, http.StatusConflict, CodeConflict, "withdrawal already resolved"},
	{session.ErrInvalidSession, http.StatusUnauthorized, CodeInvalidSession, "invalid session"},
	{session.ErrSessionExpired, http.StatusUnauthorized, CodeSessionExpired, "session expired"},
	{session.ErrAccountInactive, http.StatusForbidden, CodeAccountInactive, "account inactive"},
	{session.ErrAccountBanned, http.StatusForbidden, CodeAccountBanned, "account banned"},
	{session.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"},
	{security.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, "token expired"},
	{security.ErrTokenMalformed, http.StatusUnauthorized, CodeTokenMalformed, "token malformed"},
	{security.ErrTokenInvalid, http.StatusUnauthorized, CodeTokenInvalid, "token invalid"},
	{identity.ErrProviderUnavailable, http.StatusServiceUnavailable, CodeUnavailable, "identity provider unavailable"},
	{ratelimit.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, "too many requests"},
	{payments.ErrUnknownPackage, http.StatusBadRequest, CodeUnknownPackage, "unknown coin package"},
	{payments.ErrInvalidReference, http.StatusBadRequest, CodeInvalidRequest, "invalid payment reference"},
	{payments.ErrPaymentNotConfirmed, http.StatusPaymentRequired, CodePaymentNotConfirmed, "payment not confirmed"},
	{payments.ErrAmountMismatch, http.StatusBadRequest, CodeAmountMismatch, "payment amount mismatch"},
	{payments.ErrReferenceOwnedByOther, http.StatusConflict, CodeConflict, "payment reference already redeemed"},
	{payments.ErrTransactionNotFound, http.StatusNotFound, CodeNotFound, "payment reference not found"},
	{payments.ErrGatewayUnavailable, http.StatusServiceUnavailable, CodeUnavailable, "payment gateway unavailable"},
}

// Classify returns the status and code for err.
func Classify(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, CodeInternal, "internal error"
}

// Fail writes {success:false, error, code} and aborts the chain.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// Error translates err through the error table and writes the response.
func Error(c *gin.Context, err error) {
	status, code, message := Classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	_ = c.Error(err)
	Fail(c, status, code, message)
}

// BadRequest writes an INVALID_REQUEST response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, CodeInvalidRequest, message)
}
