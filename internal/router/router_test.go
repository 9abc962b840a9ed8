package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/internal/app/controller"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/app/service"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/internal/middleware"
	ws "github.com/garka/garka-backend/internal/websocket"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://app.garka.ng"}},
	}

	userRepo := repository.NewUserRepository(testDB)
	profileRepo := repository.NewProfileRepository(testDB)
	verificationRepo := repository.NewVerificationRepository(testDB)
	transactionRepo := repository.NewTransactionRepository(testDB)

	hub := ws.NewHub()
	notifier := service.NewNotificationService(userRepo, profileRepo, hub)
	payouts := service.NewPayoutService(transactionRepo, "STRIPE")
	commissions := service.NewCommissionService(testDB, repository.NewCommissionConfigRepository(testDB),
		verificationRepo, transactionRepo, payouts, service.AutoPayoutSettings{})
	verifications := service.NewVerificationService(verificationRepo, repository.NewPropertyRepository(testDB),
		profileRepo, commissions, notifier, service.VerificationSettings{MinimumFee: 5000, ReservationTTL: time.Hour})
	gateway, err := monnify.NewClient(monnify.Config{BaseURL: "https://sandbox.monnify.co"}, time.Second)
	require.NoError(t, err)

	r := NewRouter(
		controller.NewAuthController(service.NewAuthService(userRepo, "secret", time.Minute, time.Hour)),
		controller.NewVerificationController(verifications),
		controller.NewPaymentController(
			service.NewPaymentService(gateway, verifications, verificationRepo, transactionRepo, userRepo),
			service.NewWebhookService(repository.NewWebhookEventRepository(testDB), transactionRepo, verifications,
				service.WebhookSettings{Secret: "whsec"}),
			0,
		),
		controller.NewAdminController(payouts, commissions, service.NewOpsService(verificationRepo, transactionRepo)),
		controller.NewNotificationController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware("secret"),
		cfg,
	)
	return r.Setup()
}

func TestRouter_PublicEndpoints(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "garka_http_requests_total")
}

func TestRouter_ProtectedEndpointsRequireToken(t *testing.T) {
	engine := setupRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/verifications"},
		{http.MethodGet, "/api/v1/verifications/1"},
		{http.MethodPatch, "/api/v1/verifications/1/approve"},
		{http.MethodPost, "/api/v1/payments/monnify/initiate"},
		{http.MethodGet, "/api/v1/admin/ops/status"},
		{http.MethodGet, "/api/v1/notifications/ws"},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/monnify/webhook", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unsigned webhook")
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/verifications", nil)
	req.Header.Set("Origin", "https://app.garka.ng")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.garka.ng", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
