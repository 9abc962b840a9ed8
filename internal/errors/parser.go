package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/garka/garka-backend/internal/app/service"
	"gorm.io/gorm"
)

// ErrorInfo is the client-facing shape of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError maps service and persistence errors to a status, code and a
// message that is safe to return. Domain error text is written by this
// service and returned as is; driver and network text is never echoed.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: defaultMessage(context)}
	}

	switch {
	case errors.Is(err, service.ErrDistributionPending):
		return ErrorInfo{Status: http.StatusInternalServerError, Code: CommissionDistributionPending, Message: "Verification completed but commission distribution is pending; retry the distribution"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return ErrorInfo{Status: http.StatusUnauthorized, Code: AuthUnauthorized, Message: "Invalid email or password"}
	case errors.Is(err, service.ErrMissingField):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: err.Error()}
	case errors.Is(err, service.ErrNotPayout):
		return ErrorInfo{Status: http.StatusBadRequest, Code: PayoutInvalidType, Message: err.Error()}
	case errors.Is(err, service.ErrValidation):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: err.Error()}
	case errors.Is(err, service.ErrVerificationNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: VerificationNotFound, Message: err.Error()}
	case errors.Is(err, service.ErrPropertyNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: PropertyNotFound, Message: err.Error()}
	case errors.Is(err, service.ErrTransactionNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: TransactionNotFound, Message: err.Error()}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: notFoundMessage(context)}
	case errors.Is(err, service.ErrForbidden):
		return ErrorInfo{Status: http.StatusForbidden, Code: AuthzForbidden, Message: err.Error()}
	case errors.Is(err, service.ErrInvalidSignature):
		return ErrorInfo{Status: http.StatusUnauthorized, Code: WebhookInvalidSignature, Message: "Invalid webhook signature"}
	case errors.Is(err, service.ErrAlreadyClaimed):
		return ErrorInfo{Status: http.StatusConflict, Code: VerificationAlreadyClaimed, Message: err.Error()}
	case errors.Is(err, service.ErrConfigNotFound):
		return ErrorInfo{Status: http.StatusInternalServerError, Code: CommissionConfigNotFound, Message: "No active commission configuration"}
	case errors.Is(err, service.ErrProvider):
		return ErrorInfo{Status: http.StatusBadGateway, Code: PaymentProviderError, Message: "Payment provider is unavailable, please retry"}
	}

	lower := strings.ToLower(err.Error())

	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "Resource already exists"}
	}
	if strings.Contains(lower, "foreign key constraint") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "Referenced resource does not exist or is still in use"}
	}
	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{Status: http.StatusBadGateway, Code: InternalExternalAPI, Message: "Upstream service unavailable, please retry"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: defaultMessage(context)}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "verification"):
		return "Verification request not found"
	case strings.Contains(lower, "transaction"), strings.Contains(lower, "payout"):
		return "Transaction not found"
	case strings.Contains(lower, "property"):
		return "Property not found"
	}
	return "Requested resource not found"
}

func defaultMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "create"):
		return "Could not create the resource, please try again later"
	case strings.Contains(lower, "update"), strings.Contains(lower, "approve"), strings.Contains(lower, "claim"):
		return "Could not update the resource, please try again later"
	}
	return "Something went wrong, please try again later"
}
