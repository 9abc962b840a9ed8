package monnify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTransactionSuccessful = "TRANSACTION_SUCCESSFUL"
	EventTransactionFailed     = "TRANSACTION_FAILED"
)

// Outcome is what a webhook means for the payment it references.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// WebhookPayload is the normalized view of a Monnify event.
type WebhookPayload struct {
	EventType        string
	EventID          string
	PaymentReference string
	Status           string
	AmountPaid       decimal.Decimal // naira

	// OccurredAt is nil when the event carries no parseable timestamp.
	// RawTimestamp keeps the original value for logging.
	OccurredAt   *time.Time
	RawTimestamp string

	Raw map[string]interface{}
}

// Outcome classifies the event by type first, then by data.status.
func (p *WebhookPayload) Outcome() Outcome {
	status := strings.ToUpper(p.Status)
	switch {
	case p.EventType == EventTransactionSuccessful || status == "SUCCESS" || status == "PAID":
		return OutcomeSuccess
	case p.EventType == EventTransactionFailed || status == "FAILED":
		return OutcomeFailure
	}
	return OutcomeUnknown
}

// ParseWebhook decodes a raw request body. headerEventID is used when the
// payload itself has no eventId.
func ParseWebhook(raw []byte, headerEventID string) (*WebhookPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrMalformedPayload
	}
	return ExtractWebhook(obj, headerEventID)
}

// ExtractWebhook normalizes an already decoded payload.
func ExtractWebhook(obj map[string]interface{}, headerEventID string) (*WebhookPayload, error) {
	data, ok := obj["eventData"].(map[string]interface{})
	if !ok {
		data, ok = obj["data"].(map[string]interface{})
	}
	if !ok || len(data) == 0 {
		return nil, ErrMissingData
	}

	p := &WebhookPayload{
		EventType: stringValue(obj["eventType"]),
		EventID:   firstNonEmpty(stringValue(obj["eventId"]), strings.TrimSpace(headerEventID)),
		PaymentReference: firstNonEmpty(
			stringValue(data["paymentReference"]),
			stringValue(data["transactionReference"]),
		),
		Status: firstNonEmpty(stringValue(data["status"]), stringValue(data["paymentStatus"])),
		Raw:    obj,
	}

	if p.PaymentReference == "" {
		return nil, ErrMissingReference
	}

	if amount, err := decimal.NewFromString(stringValue(data["amountPaid"])); err == nil {
		p.AmountPaid = amount
	}

	for _, candidate := range []interface{}{data["transactionDate"], data["transactionTime"], obj["timestamp"], data["timestamp"]} {
		if candidate == nil {
			continue
		}
		p.RawTimestamp = stringValue(candidate)
		if t, ok := parseTimestamp(candidate); ok {
			p.OccurredAt = &t
		}
		break
	}

	return p, nil
}

// Age returns how old the event is at now, or false without a timestamp.
func (p *WebhookPayload) Age(now time.Time) (time.Duration, bool) {
	if p.OccurredAt == nil {
		return 0, false
	}
	return now.Sub(*p.OccurredAt), true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

func parseTimestamp(v interface{}) (time.Time, bool) {
	if n, ok := v.(json.Number); ok {
		return epochToTime(string(n))
	}
	if f, ok := v.(float64); ok {
		return epochToTime(strconv.FormatFloat(f, 'f', 0, 64))
	}

	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return epochToTime(s)
}

// epochToTime accepts seconds or milliseconds.
func epochToTime(s string) (time.Time, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
