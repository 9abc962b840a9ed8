package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/app/service"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/garka/garka-backend/pkg/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret        = "controller-test-secret"
	testWebhookSecret = "whsec_controller"
	testBodyLimit     = 4 * 1024
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB

	transactionRepo repository.TransactionRepository
	verificationSvc service.VerificationService

	buyer, agentUser, initiatorUser, admin *model.User
	agent                                  *model.Agent
	initiator                              *model.DealInitiator
	property                               *model.LandProperty
}

func setupControllerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.SeedDefaultCommissionConfig(testDB, 5000))

	userRepo := repository.NewUserRepository(testDB)
	profileRepo := repository.NewProfileRepository(testDB)
	propertyRepo := repository.NewPropertyRepository(testDB)
	verificationRepo := repository.NewVerificationRepository(testDB)
	transactionRepo := repository.NewTransactionRepository(testDB)
	configRepo := repository.NewCommissionConfigRepository(testDB)
	webhookRepo := repository.NewWebhookEventRepository(testDB)

	notifier := service.NewNotificationService(userRepo, profileRepo, nil)
	payoutSvc := service.NewPayoutService(transactionRepo, "STRIPE")
	commissionSvc := service.NewCommissionService(testDB, configRepo, verificationRepo, transactionRepo, payoutSvc,
		service.AutoPayoutSettings{})
	verificationSvc := service.NewVerificationService(verificationRepo, propertyRepo, profileRepo, commissionSvc, notifier,
		service.VerificationSettings{MinimumFee: 5000, ReservationTTL: 72 * time.Hour})
	gateway, err := monnify.NewClient(monnify.Config{BaseURL: "https://sandbox.monnify.co"}, time.Second)
	require.NoError(t, err)
	paymentSvc := service.NewPaymentService(gateway, verificationSvc, verificationRepo, transactionRepo, userRepo)
	webhookSvc := service.NewWebhookService(webhookRepo, transactionRepo, verificationSvc,
		service.WebhookSettings{Secret: testWebhookSecret, Algorithm: "sha512", MaxAge: 24 * time.Hour})
	opsSvc := service.NewOpsService(verificationRepo, transactionRepo)
	authSvc := service.NewAuthService(userRepo, testSecret, 15*time.Minute, time.Hour)

	auth := middleware.NewAuthMiddleware(testSecret)
	verifications := NewVerificationController(verificationSvc)
	payments := NewPaymentController(paymentSvc, webhookSvc, testBodyLimit)
	admin := NewAdminController(payoutSvc, commissionSvc, opsSvc)
	authCtrl := NewAuthController(authSvc)

	r := gin.New()
	r.POST("/auth/login", authCtrl.Login)
	r.POST("/auth/logout", auth.Authenticate(), authCtrl.Logout)
	r.GET("/auth/me", auth.Authenticate(), authCtrl.GetMe)

	v := r.Group("/verifications", auth.Authenticate())
	v.POST("", verifications.CreateVerification)
	v.GET("/claimable", auth.RequireRole(model.RoleAgent, model.RoleDealInitiator, model.RoleAdmin), verifications.ListClaimable)
	v.GET("/:id", verifications.GetVerification)
	v.POST("/:id/claim", auth.RequireRole(model.RoleAgent, model.RoleDealInitiator), verifications.ClaimVerification)
	v.PATCH("/:id/approve", auth.RequireRole(model.RoleAdmin), verifications.ApproveVerification)
	v.POST("/:id/distribute", auth.RequireRole(model.RoleAdmin), verifications.RetryDistribution)

	r.POST("/payments/monnify/initiate", auth.Authenticate(), payments.InitiatePayment)
	r.GET("/payments/status/:verificationId", auth.Authenticate(), payments.GetPaymentStatus)
	r.POST("/payments/monnify/webhook", payments.MonnifyWebhook)

	a := r.Group("/admin", auth.Authenticate(), auth.RequireRole(model.RoleAdmin))
	a.POST("/payouts/:transactionId/process", admin.ProcessPayout)
	a.GET("/payouts/export", admin.ExportPayouts)
	a.GET("/ops/status", admin.OpsStatus)
	a.GET("/commission-configs", admin.ListCommissionConfigs)
	a.POST("/commission-configs", admin.PublishCommissionConfig)
	a.GET("/commission-configs/calculate", admin.CalculateCommission)

	env := &testEnv{
		router:          r,
		db:              testDB,
		transactionRepo: transactionRepo,
		verificationSvc: verificationSvc,
	}

	ctx := context.Background()
	mkUser := func(email string, role model.UserRole) *model.User {
		hash, err := util.HashPassword("password123")
		require.NoError(t, err)
		u := &model.User{Email: email, PasswordHash: hash, FirstName: "Chidi", LastName: "Eze", Role: role}
		require.NoError(t, userRepo.Create(ctx, u))
		return u
	}
	env.buyer = mkUser("buyer@example.com", model.RoleUser)
	env.agentUser = mkUser("agent@example.com", model.RoleAgent)
	env.initiatorUser = mkUser("initiator@example.com", model.RoleDealInitiator)
	env.admin = mkUser("admin@example.com", model.RoleAdmin)

	env.agent = &model.Agent{UserID: env.agentUser.ID, AgencyName: "Abuja Homes", Status: model.ProfileStatusApproved}
	require.NoError(t, profileRepo.CreateAgent(ctx, env.agent))
	env.initiator = &model.DealInitiator{UserID: env.initiatorUser.ID, Status: model.ProfileStatusApproved}
	require.NoError(t, profileRepo.CreateDealInitiator(ctx, env.initiator))

	env.property = &model.LandProperty{
		AgentID:     env.agent.ID,
		Title:       "1000sqm plot, Gwarinpa",
		Location:    model.Location{State: "FCT", City: "Gwarinpa", Address: "4 Ahmadu Bello Way"},
		Price:       40000000,
		LandUseType: model.LandUseResidential,
		Status:      model.PropertyStatusAvailable,
	}
	require.NoError(t, propertyRepo.Create(ctx, env.property))

	return env
}

func (e *testEnv) token(t *testing.T, u *model.User) string {
	t.Helper()
	tokens, err := util.GenerateTokenPair(u.ID, u.Email, string(u.Role), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path string, user *model.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// envelope is the success body shape.
type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decode(t, w).Data, into))
}

// createVerification posts a request as the buyer and returns its id.
func (e *testEnv) createVerification(t *testing.T) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/verifications", e.buyer, gin.H{
		"propertyId":      e.property.ID,
		"verificationFee": 10000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v model.VerificationRequest
	decodeData(t, w, &v)
	return v.ID
}

// payViaWebhook initiates a payment and confirms it with a signed webhook.
func (e *testEnv) payViaWebhook(t *testing.T, verificationID uint) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/payments/monnify/initiate", e.buyer, gin.H{"verificationId": verificationID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var init service.InitiatePaymentResult
	decodeData(t, w, &init)

	body := webhookPayload(t, "evt-"+init.PaymentReference, init.PaymentReference)
	w = e.webhook(t, body, sign(t, body), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return init.PaymentReference
}

func webhookPayload(t *testing.T, eventID, reference string) []byte {
	t.Helper()
	raw, err := json.Marshal(gin.H{
		"eventId":   eventID,
		"eventType": monnify.EventTransactionSuccessful,
		"eventData": gin.H{
			"paymentReference": reference,
			"amountPaid":       "100.00",
			"transactionDate":  time.Now().UTC().Format(time.RFC3339),
		},
	})
	require.NoError(t, err)
	return raw
}

func sign(t *testing.T, body []byte) string {
	t.Helper()
	sig, err := monnify.Sign(testWebhookSecret, "sha512", body)
	require.NoError(t, err)
	return sig
}

func (e *testEnv) webhook(t *testing.T, body []byte, signature, signatureHeader string) *httptest.ResponseRecorder {
	t.Helper()
	if signatureHeader == "" {
		signatureHeader = "x-monnify-signature"
	}
	req := httptest.NewRequest(http.MethodPost, "/payments/monnify/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
