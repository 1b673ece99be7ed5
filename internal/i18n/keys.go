// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Orders
	KeyOrderCreated           = "order.created"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderAdvanced          = "order.advanced"
	KeyOrderCancelled         = "order.cancelled"
	KeyOrderInvalidTransition = "order.invalid_transition"

	// Payments
	KeyPaymentSuccess            = "payment.success"
	KeyPaymentFailed             = "payment.failed"
	KeyPaymentPending            = "payment.pending"
	KeyPaymentExpired            = "payment.expired"
	KeyPaymentRefunded           = "payment.refunded"
	KeyPaymentNotFound           = "payment.not_found"
	KeyPaymentSellerNotConnected = "payment.seller_not_connected"
	KeyPaymentInvalidFee         = "payment.invalid_fee"
	KeyRefundNotAllowed          = "payment.refund_not_allowed"

	// OAuth / establishment connection
	KeyOAuthConnected      = "oauth.connected"
	KeyOAuthDisconnected   = "oauth.disconnected"
	KeyOAuthExchangeFailed = "oauth.exchange_failed"
	KeyOAuthInvalidState   = "oauth.invalid_state"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Establishments
	KeyEstablishmentNotFound = "establishment.not_found"
)
