package service

import (
	"context"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

// fixture wires every service against one in-memory database, the way
// cmd/server does against postgres.
type fixture struct {
	db *gorm.DB

	verificationRepo repository.VerificationRepository
	transactionRepo  repository.TransactionRepository
	propertyRepo     repository.PropertyRepository
	profileRepo      repository.ProfileRepository
	userRepo         repository.UserRepository
	configRepo       repository.CommissionConfigRepository
	webhookRepo      repository.WebhookEventRepository

	payouts      PayoutService
	commissions  CommissionService
	verification VerificationService
	payments     PaymentService
	webhooks     WebhookService
	reservations ReservationService
	ops          OpsService

	buyer         *model.User
	agentUser     *model.User
	agent         *model.Agent
	initiatorUser *model.User
	initiator     *model.DealInitiator
	property      *model.LandProperty
}

type fixtureOptions struct {
	autoPayout bool
	noConfig   bool
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	if !opts.noConfig {
		require.NoError(t, db.SeedDefaultCommissionConfig(testDB, 5000))
	}

	f := &fixture{
		db:               testDB,
		verificationRepo: repository.NewVerificationRepository(testDB),
		transactionRepo:  repository.NewTransactionRepository(testDB),
		propertyRepo:     repository.NewPropertyRepository(testDB),
		profileRepo:      repository.NewProfileRepository(testDB),
		userRepo:         repository.NewUserRepository(testDB),
		configRepo:       repository.NewCommissionConfigRepository(testDB),
		webhookRepo:      repository.NewWebhookEventRepository(testDB),
	}

	notifier := NewNotificationService(f.userRepo, f.profileRepo, nil)
	f.payouts = NewPayoutService(f.transactionRepo, "STRIPE")
	f.commissions = NewCommissionService(testDB, f.configRepo, f.verificationRepo, f.transactionRepo, f.payouts,
		AutoPayoutSettings{Enabled: opts.autoPayout, Provider: "STRIPE"})
	f.verification = NewVerificationService(f.verificationRepo, f.propertyRepo, f.profileRepo, f.commissions, notifier,
		VerificationSettings{MinimumFee: 5000, ReservationTTL: 72 * time.Hour})

	gateway, err := monnify.NewClient(monnify.Config{BaseURL: "https://sandbox.monnify.co"}, time.Second)
	require.NoError(t, err)
	f.payments = NewPaymentService(gateway, f.verification, f.verificationRepo, f.transactionRepo, f.userRepo)
	f.webhooks = NewWebhookService(f.webhookRepo, f.transactionRepo, f.verification,
		WebhookSettings{Secret: testWebhookSecret, Algorithm: "sha512", MaxAge: 24 * time.Hour})
	f.reservations = NewReservationService(f.verificationRepo, f.propertyRepo, notifier)
	f.ops = NewOpsService(f.verificationRepo, f.transactionRepo)

	ctx := context.Background()
	f.buyer = f.createUser(t, "buyer@example.com", model.RoleUser)
	f.agentUser = f.createUser(t, "agent@example.com", model.RoleAgent)
	f.initiatorUser = f.createUser(t, "initiator@example.com", model.RoleDealInitiator)

	f.agent = &model.Agent{UserID: f.agentUser.ID, AgencyName: "Lekki Lands", Status: model.ProfileStatusApproved}
	require.NoError(t, f.profileRepo.CreateAgent(ctx, f.agent))
	f.initiator = &model.DealInitiator{UserID: f.initiatorUser.ID, Status: model.ProfileStatusApproved}
	require.NoError(t, f.profileRepo.CreateDealInitiator(ctx, f.initiator))

	f.property = &model.LandProperty{
		AgentID:     f.agent.ID,
		Title:       "600sqm plot, Ajah",
		Location:    model.Location{State: "Lagos", City: "Ajah", Address: "12 Abraham Adesanya Rd"},
		Price:       25000000,
		LandUseType: model.LandUseResidential,
		Status:      model.PropertyStatusAvailable,
	}
	require.NoError(t, f.propertyRepo.Create(ctx, f.property))

	return f
}

func (f *fixture) createUser(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Obi",
		Role:         role,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	return user
}

// requestVerification creates a request for the fixture property.
func (f *fixture) requestVerification(t *testing.T, fee model.Amount) *model.VerificationRequest {
	t.Helper()
	v, err := f.verification.RequestVerification(context.Background(), RequestVerificationInput{
		PropertyID:      f.property.ID,
		BuyerID:         f.buyer.ID,
		VerificationFee: fee,
	})
	require.NoError(t, err)
	return v
}

// paidVerification creates a request and drives it to paid through the
// payment service, returning it with its payment reference.
func (f *fixture) paidVerification(t *testing.T, fee model.Amount) *model.VerificationRequest {
	t.Helper()
	ctx := context.Background()

	v := f.requestVerification(t, fee)
	init, err := f.payments.InitiatePayment(ctx, f.buyer.ID, InitiatePaymentInput{VerificationID: v.ID})
	require.NoError(t, err)

	paid, err := f.verification.MarkPaid(ctx, PaymentConfirmation{PaymentReference: init.PaymentReference, AmountPaid: fee})
	require.NoError(t, err)
	return paid
}

func (f *fixture) reload(t *testing.T, id uint) *model.VerificationRequest {
	t.Helper()
	v, err := f.verificationRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return v
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
