package monnify

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPaymentFailed is returned when Monnify rejects the operation
	ErrPaymentFailed = errors.New("payment failed")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUnauthorized is returned when the API key or secret is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid API credentials")

	// ErrNoSecret is returned by VerifySignature when no webhook secret is configured
	ErrNoSecret = errors.New("webhook secret not configured")

	// ErrMalformedPayload is returned when a webhook body is not a JSON object
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrMissingData is returned when a webhook has no data object
	ErrMissingData = errors.New("webhook data is missing")

	// ErrMissingReference is returned when a webhook carries no payment reference
	ErrMissingReference = errors.New("webhook payment reference is missing")
)

var (
	// ErrSignatureMismatch is returned when the signature header does not match the body
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrUnsupportedAlgorithm is returned for digests other than sha256 and sha512
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
)
