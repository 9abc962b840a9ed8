package monnify

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// InitRequest represents the parameters for initializing a checkout.
// Amount is in naira with two decimals.
type InitRequest struct {
	Amount             json.Number `json:"amount"`
	CustomerName       string      `json:"customerName"`
	CustomerEmail      string      `json:"customerEmail"`
	PaymentReference   string      `json:"paymentReference"`
	PaymentDescription string      `json:"paymentDescription,omitempty"`
	CurrencyCode       string      `json:"currencyCode"`
	ContractCode       string      `json:"contractCode"`
	RedirectURL        string      `json:"redirectUrl,omitempty"`
}

// InitResponse is the part of the init-transaction response the service uses
type InitResponse struct {
	TransactionReference string `json:"transactionReference,omitempty"`
	PaymentReference     string `json:"paymentReference"`
	CheckoutURL          string `json:"checkoutUrl"`
	Mock                 bool   `json:"mock,omitempty"`
}

// TransactionStatus is the verify-transaction response body. AmountPaid is
// in naira.
type TransactionStatus struct {
	TransactionReference string          `json:"transactionReference"`
	PaymentReference     string          `json:"paymentReference"`
	AmountPaid           decimal.Decimal `json:"amountPaid"`
	PaymentStatus        string          `json:"paymentStatus"`
	PaidOn               string          `json:"paidOn,omitempty"`
}

// StatusPaid is the verify-transaction status of a settled collection.
const StatusPaid = "PAID"

// Paid reports whether the collection has settled.
func (s *TransactionStatus) Paid() bool {
	return s != nil && s.PaymentStatus == StatusPaid
}

// envelope wraps every Monnify API response
type envelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseCode      string          `json:"responseCode"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

type loginBody struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}
