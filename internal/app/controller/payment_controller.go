package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/service"
	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

const defaultWebhookBodyLimit = 1 << 20

// Monnify has sent the signature under each of these names.
var signatureHeaders = []string{"x-monnify-signature", "x-monify-signature", "x-monnify-signature-key"}

var eventIDHeaders = []string{"x-event-id", "x-webhook-id"}

type PaymentController struct {
	paymentService service.PaymentService
	webhookService service.WebhookService
	maxBodyBytes   int64
}

func NewPaymentController(paymentService service.PaymentService, webhookService service.WebhookService, maxBodyBytes int64) *PaymentController {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultWebhookBodyLimit
	}
	return &PaymentController{
		paymentService: paymentService,
		webhookService: webhookService,
		maxBodyBytes:   maxBodyBytes,
	}
}

type InitiatePaymentRequest struct {
	VerificationID uint         `json:"verificationId" binding:"required"`
	Amount         model.Amount `json:"amount" binding:"min=0"`
	RedirectURL    string       `json:"redirectUrl" binding:"omitempty,url"`
}

// InitiatePayment starts a Monnify checkout for a verification fee
// POST /api/v1/payments/monnify/initiate
func (ctrl *PaymentController) InitiatePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid payment request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "verificationId is required")
		return
	}

	resp, err := ctrl.paymentService.InitiatePayment(c.Request.Context(), userID, service.InitiatePaymentInput{
		VerificationID: req.VerificationID,
		Amount:         req.Amount,
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		respondError(c, err, "initiate payment", map[string]interface{}{
			"user_id":         userID,
			"verification_id": req.VerificationID,
		})
		return
	}

	log.Info("Payment initiated", map[string]interface{}{
		"user_id":           userID,
		"verification_id":   req.VerificationID,
		"payment_reference": resp.PaymentReference,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment initiated",
		"data":    resp,
	})
}

// GetPaymentStatus reports payment and escrow state of a verification
// GET /api/v1/payments/status/:verificationId
func (ctrl *PaymentController) GetPaymentStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "verificationId")
	if !ok {
		return
	}
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	status, err := ctrl.paymentService.GetPaymentStatus(c.Request.Context(), viewer, id)
	if err != nil {
		respondError(c, err, "get payment status", map[string]interface{}{
			"verification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status retrieved",
		"data":    status,
	})
}

// MonnifyWebhook receives Monnify event notifications. The raw body is
// needed for the signature, so it is read before any JSON decoding.
// POST /api/v1/payments/monnify/webhook
func (ctrl *PaymentController) MonnifyWebhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Webhook body too large", map[string]interface{}{
				"limit": ctrl.maxBodyBytes,
			})
			apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.ValidationTooLarge, "Webhook body too large")
			return
		}
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Could not read webhook body")
		return
	}

	result, err := ctrl.webhookService.HandleMonnifyWebhook(c.Request.Context(), service.WebhookRequest{
		Body:          body,
		Signature:     firstHeader(c, signatureHeaders),
		EventIDHeader: firstHeader(c, eventIDHeaders),
	})
	if err != nil {
		respondError(c, err, "process webhook", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": result.Message,
		"data":    result,
	})
}

func firstHeader(c *gin.Context, names []string) string {
	for _, name := range names {
		if v := c.GetHeader(name); v != "" {
			return v
		}
	}
	return ""
}
