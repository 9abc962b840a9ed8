package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookBody(t *testing.T, eventID, eventType, reference string, occurredAt time.Time) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"eventId":   eventID,
		"eventType": eventType,
		"eventData": map[string]interface{}{
			"paymentReference":     reference,
			"transactionReference": "MNFY|" + reference,
			"amountPaid":           "100.00",
			"paymentStatus":        "PAID",
			"transactionDate":      occurredAt.UTC().Format(time.RFC3339),
		},
	})
	require.NoError(t, err)
	return body
}

func signedRequest(t *testing.T, body []byte) WebhookRequest {
	t.Helper()
	sig, err := monnify.Sign(testWebhookSecret, "sha512", body)
	require.NoError(t, err)
	return WebhookRequest{Body: body, Signature: sig}
}

func pendingPayment(t *testing.T, f *fixture) (*model.VerificationRequest, *InitiatePaymentResult) {
	t.Helper()
	v := f.requestVerification(t, 10000)
	init, err := f.payments.InitiatePayment(context.Background(), f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)
	return v, init
}

func TestWebhookService_SuccessMarksPaid(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-1", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now())

	result, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, result.Outcome)
	assert.Equal(t, v.ID, result.VerificationID)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, model.EscrowStatusHeld, got.EscrowStatus)
	assert.Equal(t, "MNFY|"+init.PaymentReference, got.PaymentProviderReference)

	tx, err := f.transactionRepo.FindByID(ctx, init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusSuccess, tx.Status)
	assert.NotNil(t, tx.ProcessedAt)
}

func TestWebhookService_DuplicateEventIsIgnored(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-dup", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now())

	first, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, first.Outcome)
	paidAt := f.reload(t, v.ID).PaidAt

	second, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, second.Outcome)
	assert.Equal(t, "Duplicate event ignored", second.Message)
	assert.Equal(t, paidAt.Unix(), f.reload(t, v.ID).PaidAt.Unix())
}

func TestWebhookService_HeaderEventIDDeduplicates(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, init := pendingPayment(t, f)
	body := webhookBody(t, "", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now())

	req := signedRequest(t, body)
	req.EventIDHeader = "hdr-1"

	first, err := f.webhooks.HandleMonnifyWebhook(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, first.Outcome)

	second, err := f.webhooks.HandleMonnifyWebhook(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, second.Outcome)
}

func TestWebhookService_TamperedBodyIsRejected(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-tamper", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now())
	req := signedRequest(t, body)
	req.Body = webhookBody(t, "evt-tamper", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now().Add(time.Second))

	_, err := f.webhooks.HandleMonnifyWebhook(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.webhooks.HandleMonnifyWebhook(ctx, WebhookRequest{Body: body})
	assert.ErrorIs(t, err, ErrInvalidSignature, "missing signature")

	assert.Equal(t, model.PaymentStatusPending, f.reload(t, v.ID).PaymentStatus)
	exists, err := f.webhookRepo.Exists(ctx, model.ProviderMonnify, "evt-tamper")
	require.NoError(t, err)
	assert.False(t, exists, "rejected deliveries are not recorded")
}

func TestWebhookService_StaleEventIsIgnored(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-old", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now().Add(-48*time.Hour))

	result, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookStale, result.Outcome)
	assert.Equal(t, "Event too old", result.Message)
	assert.Equal(t, model.PaymentStatusPending, f.reload(t, v.ID).PaymentStatus)
}

func TestWebhookService_InjectedClockDecidesFreshness(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, init := pendingPayment(t, f)
	occurred := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	body := webhookBody(t, "evt-clock", monnify.EventTransactionSuccessful, init.PaymentReference, occurred)

	svc := f.webhooks.(*webhookService)
	svc.now = func() time.Time { return occurred.Add(time.Hour) }

	result, err := svc.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, result.Outcome)
}

func TestWebhookService_FailureEvent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-fail", monnify.EventTransactionFailed, init.PaymentReference, time.Now())

	result, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedFailed, result.Outcome)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, model.EscrowStatusNone, got.EscrowStatus)

	tx, err := f.transactionRepo.FindByID(ctx, init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusFailed, tx.Status)
}

func TestWebhookService_UnknownEventAndMissingFields(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	body, err := json.Marshal(map[string]interface{}{
		"eventId":   "evt-refund",
		"eventType": "REFUND_COMPLETED",
		"eventData": map[string]interface{}{"paymentReference": "MON_1_abcdef01"},
	})
	require.NoError(t, err)

	result, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result.Outcome)
	assert.Equal(t, "Webhook received", result.Message)

	noData := []byte(`{"eventId":"evt-x","eventType":"TRANSACTION_SUCCESSFUL"}`)
	_, err = f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, noData))
	assert.ErrorIs(t, err, ErrMissingField)

	noRef := []byte(`{"eventId":"evt-y","eventData":{"amountPaid":"10"}}`)
	_, err = f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, noRef))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, []byte(`not json`)))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWebhookService_UnknownReferenceIsAcknowledged(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	body := webhookBody(t, "evt-orphan", monnify.EventTransactionSuccessful, "MON_0_deadbeef", time.Now())

	result, err := f.webhooks.HandleMonnifyWebhook(ctx, signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, result.Outcome)
	assert.Zero(t, result.VerificationID)
}

func TestWebhookService_NoSecretAllowsUnsignedEvents(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	svc := NewWebhookService(f.webhookRepo, f.transactionRepo, f.verification, WebhookSettings{Algorithm: "sha512", MaxAge: time.Hour})
	v, init := pendingPayment(t, f)
	body := webhookBody(t, "evt-open", monnify.EventTransactionSuccessful, init.PaymentReference, time.Now())

	result, err := svc.HandleMonnifyWebhook(ctx, WebhookRequest{Body: body})
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessedPaid, result.Outcome)
	assert.Equal(t, model.PaymentStatusPaid, f.reload(t, v.ID).PaymentStatus)
}
