// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/levaja/levaja-backend/internal/models"
)

var (
	// ErrEstablishmentNotConnected blocks split-payment creation while the
	// seller has no live gateway connection.
	ErrEstablishmentNotConnected = errors.New("establishment is not connected to the payment gateway")

	// ErrInvalidFeeConfiguration rejects fee percentages outside (0, 100].
	ErrInvalidFeeConfiguration = errors.New("invalid fee configuration")

	// ErrOAuthExchangeFailed marks a failed authorization-code exchange.
	// It is never retried.
	ErrOAuthExchangeFailed = errors.New("oauth code exchange failed")

	// ErrTokenInvalid marks a token the gateway rejected or could not verify.
	ErrTokenInvalid = errors.New("gateway token is invalid")

	// ErrInvalidOAuthState rejects callbacks whose state does not match the
	// one issued for the establishment.
	ErrInvalidOAuthState = errors.New("oauth state mismatch")

	// ErrCardTokenRequired rejects card payments without a single-use token.
	ErrCardTokenRequired = errors.New("card token is required")

	// ErrPaymentExpired ends a PIX wait whose window elapsed without
	// approval; the reservation is dropped and no order is created.
	ErrPaymentExpired = errors.New("payment expired before approval")

	// ErrPaymentNotApproved rejects order placement on an unapproved payment.
	ErrPaymentNotApproved = errors.New("payment is not approved")
)

// InvalidStateTransitionError rejects an illegal order-status transition.
type InvalidStateTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// RefundNotAllowedError carries the gateway or ledger reason a refund was
// refused; the reason is surfaced to the caller, never swallowed.
type RefundNotAllowedError struct {
	Reason string
}

func (e *RefundNotAllowedError) Error() string {
	return "refund not allowed: " + e.Reason
}

func IsRefundNotAllowed(err error) bool {
	var rerr *RefundNotAllowedError
	return errors.As(err, &rerr)
}
