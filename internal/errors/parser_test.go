package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/garka/garka-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		context    string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "nil error",
			err:        nil,
			context:    "create verification",
			wantStatus: http.StatusInternalServerError,
			wantCode:   InternalServerError,
			wantMsg:    "Could not create the resource, please try again later",
		},
		{
			name:       "validation keeps detail",
			err:        fmt.Errorf("%w: verification fee must not be negative", service.ErrValidation),
			wantStatus: http.StatusBadRequest,
			wantCode:   ValidationInvalidInput,
			wantMsg:    "validation failed: verification fee must not be negative",
		},
		{
			name:       "missing field",
			err:        fmt.Errorf("%w: propertyId", service.ErrMissingField),
			wantStatus: http.StatusBadRequest,
			wantCode:   ValidationRequired,
		},
		{
			name:       "not a payout wins over validation",
			err:        service.ErrNotPayout,
			wantStatus: http.StatusBadRequest,
			wantCode:   PayoutInvalidType,
		},
		{
			name:       "verification not found",
			err:        service.ErrVerificationNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   VerificationNotFound,
			wantMsg:    "verification request not found",
		},
		{
			name:       "record not found uses context",
			err:        gorm.ErrRecordNotFound,
			context:    "process payout",
			wantStatus: http.StatusNotFound,
			wantCode:   ResourceNotFound,
			wantMsg:    "Transaction not found",
		},
		{
			name:       "invalid credentials",
			err:        service.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   AuthUnauthorized,
		},
		{
			name:       "signature",
			err:        fmt.Errorf("%w: digest mismatch", service.ErrInvalidSignature),
			wantStatus: http.StatusUnauthorized,
			wantCode:   WebhookInvalidSignature,
			wantMsg:    "Invalid webhook signature",
		},
		{
			name:       "already claimed",
			err:        service.ErrAlreadyClaimed,
			wantStatus: http.StatusConflict,
			wantCode:   VerificationAlreadyClaimed,
		},
		{
			name:       "distribution pending",
			err:        fmt.Errorf("%w: config missing", service.ErrDistributionPending),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CommissionDistributionPending,
		},
		{
			name:       "provider",
			err:        fmt.Errorf("%w: 503", service.ErrProvider),
			wantStatus: http.StatusBadGateway,
			wantCode:   PaymentProviderError,
		},
		{
			name:       "unique violation",
			err:        errors.New("ERROR: duplicate key value violates unique constraint \"idx_users_email\""),
			wantStatus: http.StatusConflict,
			wantCode:   ResourceAlreadyExists,
			wantMsg:    "Resource already exists",
		},
		{
			name:       "network text is not echoed",
			err:        errors.New("dial tcp 10.0.0.4:5432: connect: connection refused"),
			wantStatus: http.StatusBadGateway,
			wantCode:   InternalExternalAPI,
			wantMsg:    "Upstream service unavailable, please retry",
		},
		{
			name:       "unknown error",
			err:        errors.New("pq: something odd"),
			context:    "approve verification",
			wantStatus: http.StatusInternalServerError,
			wantCode:   InternalServerError,
			wantMsg:    "Could not update the resource, please try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantStatus, info.Status)
			assert.Equal(t, tt.wantCode, info.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, info.Message)
			}
		})
	}
}
