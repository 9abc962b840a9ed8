package errors

// Error codes returned in the "error" field of every failure response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to their own copy.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked = "AUTH_TOKEN_REVOKED"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"
	ValidationTooLarge     = "VALIDATION_PAYLOAD_TOO_LARGE"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Verification (VERIFICATION_) ====================
	VerificationNotFound       = "VERIFICATION_NOT_FOUND"
	VerificationAlreadyClaimed = "VERIFICATION_ALREADY_CLAIMED"
	PropertyNotFound           = "PROPERTY_NOT_FOUND"

	// ==================== Payments (PAYMENT_) ====================
	PaymentProviderError    = "PAYMENT_PROVIDER_ERROR"
	TransactionNotFound     = "TRANSACTION_NOT_FOUND"
	PayoutInvalidType       = "PAYOUT_INVALID_TYPE"
	WebhookInvalidSignature = "WEBHOOK_INVALID_SIGNATURE"
	WebhookMissingField     = "WEBHOOK_MISSING_FIELD"

	// ==================== Commission (COMMISSION_) ====================
	CommissionConfigNotFound      = "COMMISSION_CONFIG_NOT_FOUND"
	CommissionDistributionPending = "COMMISSION_DISTRIBUTION_PENDING"

	// ==================== Idempotency (IDEMPOTENCY_) ====================
	IdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
