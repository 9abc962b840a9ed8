package monnify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/garka/garka-backend/pkg/logger"
)

const (
	loginPath  = "/api/v1/auth/login"
	initPath   = "/api/v2/transactions/init-transaction"
	verifyPath = "/api/v2/transactions/"

	mockCheckoutURL = "https://sandbox.monnify.co/checkout"
	currencyNGN     = "NGN"
)

// Client represents a Monnify collections API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Monnify client with the given configuration
func NewClient(config Config, timeout time.Duration) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// InitializeTransaction starts a hosted checkout. Without credentials a
// deterministic sandbox URL is returned so local flows keep working.
func (c *Client) InitializeTransaction(ctx context.Context, req InitRequest) (*InitResponse, error) {
	if req.PaymentReference == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidRequest)
	}

	if !c.config.Configured() {
		logger.Warn("Monnify credentials not configured; returning mock checkout", map[string]interface{}{
			"payment_reference": req.PaymentReference,
		})
		return &InitResponse{
			PaymentReference: req.PaymentReference,
			CheckoutURL:      mockCheckoutURL + "?paymentReference=" + url.QueryEscape(req.PaymentReference),
			Mock:             true,
		}, nil
	}

	req.ContractCode = c.config.ContractCode
	if req.CurrencyCode == "" {
		req.CurrencyCode = currencyNGN
	}
	if req.RedirectURL == "" {
		req.RedirectURL = c.config.RedirectURL
	}

	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, http.MethodPost, initPath, "Bearer "+token, req)
	if err != nil {
		return nil, fmt.Errorf("failed to make init request: %w", err)
	}

	var initResp InitResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal init response: %w", err)
	}
	if initResp.PaymentReference == "" {
		initResp.PaymentReference = req.PaymentReference
	}

	return &initResp, nil
}

// VerifyTransaction looks up a collection by payment reference.
func (c *Client) VerifyTransaction(ctx context.Context, paymentReference string) (*TransactionStatus, error) {
	if !c.config.Configured() {
		return &TransactionStatus{PaymentReference: paymentReference, PaymentStatus: "UNKNOWN"}, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	path := verifyPath + url.PathEscape(paymentReference)
	body, err := c.doRequest(ctx, http.MethodGet, path, "Bearer "+token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make verify request: %w", err)
	}

	var status TransactionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verify response: %w", err)
	}
	return &status, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.config.APIKey + ":" + c.config.APISecret))
	body, err := c.doRequest(ctx, http.MethodPost, loginPath, "Basic "+basic, nil)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate with Monnify: %w", err)
	}

	var login loginBody
	if err := json.Unmarshal(body, &login); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if login.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnauthorized)
	}
	return login.AccessToken, nil
}

// doRequest performs an HTTP request and returns the unwrapped responseBody
func (c *Client) doRequest(ctx context.Context, method, path, authorization string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	endpoint := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("Monnify request", map[string]interface{}{
		"method": method,
		"path":   path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetworkError, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrPaymentFailed, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || !env.RequestSuccessful {
		errorMsg := fmt.Sprintf("Monnify API error - Status: %d, Code: %s, Message: %s",
			resp.StatusCode, env.ResponseCode, env.ResponseMessage)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMsg)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMsg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, errorMsg)
		}
	}

	return env.ResponseBody, nil
}
