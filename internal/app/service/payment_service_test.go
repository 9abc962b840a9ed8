package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingGateway struct{}

func (failingGateway) InitializeTransaction(ctx context.Context, req monnify.InitRequest) (*monnify.InitResponse, error) {
	return nil, monnify.ErrNetworkError
}

func (failingGateway) VerifyTransaction(ctx context.Context, paymentReference string) (*monnify.TransactionStatus, error) {
	return nil, monnify.ErrNetworkError
}

// settledGateway hands out checkouts and reports every one of them as paid.
type settledGateway struct {
	initialized []monnify.InitRequest
	amountPaid  decimal.Decimal
}

func (g *settledGateway) InitializeTransaction(ctx context.Context, req monnify.InitRequest) (*monnify.InitResponse, error) {
	g.initialized = append(g.initialized, req)
	return &monnify.InitResponse{
		TransactionReference: "MNFY|" + req.PaymentReference,
		PaymentReference:     req.PaymentReference,
		CheckoutURL:          "https://checkout.example/" + req.PaymentReference,
	}, nil
}

func (g *settledGateway) VerifyTransaction(ctx context.Context, paymentReference string) (*monnify.TransactionStatus, error) {
	return &monnify.TransactionStatus{
		TransactionReference: "MNFY|" + paymentReference,
		PaymentReference:     paymentReference,
		AmountPaid:           g.amountPaid,
		PaymentStatus:        monnify.StatusPaid,
	}, nil
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v := f.requestVerification(t, 10000)

	result, err := f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)
	assert.True(t, result.Mock)
	assert.Regexp(t, `^MON_\d+_[0-9a-f]{8}$`, result.PaymentReference)
	assert.Equal(t, "https://sandbox.monnify.co/checkout?paymentReference="+result.PaymentReference, result.CheckoutURL)
	assert.Equal(t, model.Amount(10000), result.Amount)

	tx, err := f.transactionRepo.FindByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypePaymentIn, tx.Type)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.Equal(t, model.ProviderMonnify, tx.Provider)
	assert.Equal(t, result.PaymentReference, tx.ProviderReference)
	require.NotNil(t, tx.UserID)
	assert.Equal(t, f.buyer.ID, *tx.UserID)

	got := f.reload(t, v.ID)
	assert.Equal(t, result.PaymentReference, got.PaymentReference)

	second, err := f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID, Amount: 10000})
	require.NoError(t, err)
	assert.NotEqual(t, result.PaymentReference, second.PaymentReference, "every attempt gets a fresh reference")
	assert.Equal(t, model.Amount(10000), f.reload(t, v.ID).VerificationFee)
}

func TestPaymentService_InitiatePaymentKeepsRequestedFee(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	gateway := &settledGateway{}
	svc := NewPaymentService(gateway, f.verification, f.verificationRepo, f.transactionRepo, f.userRepo)
	v := f.requestVerification(t, 1000500)

	for _, amount := range []model.Amount{1, 4999, 1000501} {
		_, err := svc.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID, Amount: amount})
		assert.ErrorIs(t, err, ErrValidation, "amount %d", amount)
	}

	got := f.reload(t, v.ID)
	assert.Equal(t, model.Amount(1000500), got.VerificationFee)
	assert.Empty(t, got.PaymentReference)
	assert.Empty(t, gateway.initialized, "no checkout for a mismatched amount")

	txs, err := f.transactionRepo.FindByVerificationID(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	result, err := svc.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)
	assert.Equal(t, model.Amount(1000500), result.Amount)
	require.Len(t, gateway.initialized, 1)
	assert.Equal(t, json.Number("10005.00"), gateway.initialized[0].Amount, "checkout is in naira")
}

func TestPaymentService_InitiatePaymentErrors(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v := f.requestVerification(t, 10000)

	_, err := f.payments.InitiatePayment(ctx, f.agentUser.ID, InitiatePaymentInput{VerificationID: v.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: 999})
	assert.ErrorIs(t, err, ErrVerificationNotFound)

	_, err = f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID, Amount: -1})
	assert.ErrorIs(t, err, ErrValidation)

	paid := f.paidVerification(t, 10000)
	_, err = f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: paid.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaymentService_ProviderFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	svc := NewPaymentService(failingGateway{}, f.verification, f.verificationRepo, f.transactionRepo, f.userRepo)
	v := f.requestVerification(t, 10000)

	_, err := svc.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	assert.ErrorIs(t, err, ErrProvider)
	assert.True(t, errors.Is(err, monnify.ErrNetworkError))

	txs, err := f.transactionRepo.FindByVerificationID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TransactionStatusFailed, txs[0].Status)
	assert.Empty(t, f.reload(t, v.ID).PaymentReference)
}

func TestPaymentService_GetPaymentStatus(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v := f.paidVerification(t, 10000)

	status, err := f.payments.GetPaymentStatus(ctx, Viewer{UserID: f.buyer.ID, Role: model.RoleUser}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, status.PaymentStatus)
	assert.Equal(t, model.EscrowStatusHeld, status.EscrowStatus)
	require.NotNil(t, status.Transaction)
	assert.Equal(t, v.PaymentReference, status.Transaction.ProviderReference)

	_, err = f.payments.GetPaymentStatus(ctx, Viewer{UserID: f.agentUser.ID, Role: model.RoleAgent}, v.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.payments.GetPaymentStatus(ctx, Viewer{UserID: 1, Role: model.RoleAdmin}, v.ID)
	assert.NoError(t, err)
}

func TestPaymentService_GetPaymentStatusReconcilesLostWebhook(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	gateway := &settledGateway{amountPaid: decimal.RequireFromString("100.00")}
	svc := NewPaymentService(gateway, f.verification, f.verificationRepo, f.transactionRepo, f.userRepo)
	v := f.requestVerification(t, 10000)
	init, err := svc.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)

	status, err := svc.GetPaymentStatus(ctx, Viewer{UserID: f.buyer.ID, Role: model.RoleUser}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, status.PaymentStatus)
	assert.Equal(t, model.EscrowStatusHeld, status.EscrowStatus)
	assert.NotNil(t, status.PaidAt)
	assert.NotNil(t, status.ReservedUntil)
	require.NotNil(t, status.Transaction)
	assert.Equal(t, model.TransactionStatusSuccess, status.Transaction.Status)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "MNFY|"+init.PaymentReference, got.PaymentProviderReference)

	property, err := f.propertyRepo.FindByID(ctx, f.property.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusReserved, property.Status)

	again, err := svc.GetPaymentStatus(ctx, Viewer{UserID: f.buyer.ID, Role: model.RoleUser}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, status.PaidAt.Unix(), again.PaidAt.Unix(), "paid requests are not reconciled twice")
}

func TestPaymentService_GetPaymentStatusKeepsLocalStateOnProviderError(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	v := f.requestVerification(t, 10000)
	_, err := f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)

	svc := NewPaymentService(failingGateway{}, f.verification, f.verificationRepo, f.transactionRepo, f.userRepo)
	status, err := svc.GetPaymentStatus(ctx, Viewer{UserID: f.buyer.ID, Role: model.RoleUser}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, status.PaymentStatus)
	require.NotNil(t, status.Transaction)
	assert.Equal(t, model.TransactionStatusPending, status.Transaction.Status)
}
