package service

import (
	"errors"
	"fmt"
)

// Sentinels shared by every service. Callers wrap them with detail through
// fmt.Errorf("%w: ...") and internal/errors maps them to HTTP responses.
var (
	ErrValidation   = errors.New("validation failed")
	ErrMissingField = errors.New("missing required field")

	ErrNotFound             = errors.New("not found")
	ErrVerificationNotFound = fmt.Errorf("verification request %w", ErrNotFound)
	ErrPropertyNotFound     = fmt.Errorf("property %w", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", ErrNotFound)

	ErrForbidden        = errors.New("forbidden")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrAlreadyClaimed   = errors.New("verification request already claimed")
	ErrConfigNotFound   = errors.New("no active commission config")
	ErrProvider         = errors.New("payment provider error")

	ErrNotPayout           = fmt.Errorf("%w: transaction is not a payout", ErrValidation)
	ErrDistributionPending = errors.New("commission distribution pending")

	ErrInvalidCredentials = errors.New("invalid email or password")
)
