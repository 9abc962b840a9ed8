package monnify

import "fmt"

// Config represents the configuration for the Monnify client
type Config struct {
	// APIKey and APISecret are exchanged for a bearer token on every call.
	// Leaving either empty puts the client in mock mode.
	APIKey    string
	APISecret string

	// ContractCode is the merchant contract the collection is booked against
	ContractCode string

	// BaseURL is the Monnify API base URL (sandbox or live)
	BaseURL string

	// RedirectURL is where the checkout returns the buyer when the request has none
	RedirectURL string
}

// Configured reports whether real API credentials are present.
func (c *Config) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidRequest)
	}
	if c.Configured() && c.ContractCode == "" {
		return fmt.Errorf("%w: contract code is required when credentials are set", ErrInvalidRequest)
	}
	return nil
}
