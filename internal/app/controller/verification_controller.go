package controller

import (
	"net/http"
	"strconv"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/service"
	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

const defaultClaimableLimit = 50

type VerificationController struct {
	verificationService service.VerificationService
}

func NewVerificationController(verificationService service.VerificationService) *VerificationController {
	return &VerificationController{
		verificationService: verificationService,
	}
}

type CreateVerificationRequest struct {
	PropertyID      uint         `json:"propertyId" binding:"required"`
	AgentID         uint         `json:"agentId"`
	DealInitiatorID *uint        `json:"dealInitiatorId"`
	VerificationFee model.Amount `json:"verificationFee" binding:"min=0"`
	TermsAccepted   *bool        `json:"termsAccepted"`
}

type ApproveVerificationRequest struct {
	AdminNote string `json:"adminNote" binding:"max=2000"`
}

// CreateVerification handles a buyer's verification request
// POST /api/v1/verifications
func (ctrl *VerificationController) CreateVerification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CreateVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid verification request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "propertyId is required and verificationFee must not be negative")
		return
	}

	v, err := ctrl.verificationService.RequestVerification(c.Request.Context(), service.RequestVerificationInput{
		PropertyID:      req.PropertyID,
		BuyerID:         userID,
		AgentID:         req.AgentID,
		DealInitiatorID: req.DealInitiatorID,
		VerificationFee: req.VerificationFee,
		TermsAccepted:   req.TermsAccepted,
	})
	if err != nil {
		respondError(c, err, "create verification", map[string]interface{}{
			"user_id":     userID,
			"property_id": req.PropertyID,
		})
		return
	}

	log.Info("Verification request created", map[string]interface{}{
		"verification_id": v.ID,
		"user_id":         userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Verification request created",
		"data":    v,
	})
}

// GetVerification returns one request
// GET /api/v1/verifications/:id
func (ctrl *VerificationController) GetVerification(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	v, err := ctrl.verificationService.GetVerification(c.Request.Context(), id, viewer)
	if err != nil {
		respondError(c, err, "get verification", map[string]interface{}{
			"verification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification retrieved",
		"data":    v,
	})
}

// ListClaimable lists paid requests nobody has claimed yet
// GET /api/v1/verifications/claimable
func (ctrl *VerificationController) ListClaimable(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultClaimableLimit)))
	if err != nil || limit <= 0 {
		limit = defaultClaimableLimit
	}

	list, err := ctrl.verificationService.ListClaimable(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "list claimable verifications", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Claimable verifications retrieved",
		"data":    list,
		"count":   len(list),
	})
}

// ClaimVerification assigns the request to the calling agent or deal initiator
// POST /api/v1/verifications/:id/claim
func (ctrl *VerificationController) ClaimVerification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	claimant, err := ctrl.verificationService.ResolveClaimant(ctx, viewer.UserID, viewer.Role)
	if err != nil {
		respondError(c, err, "claim verification", map[string]interface{}{
			"verification_id": id,
			"user_id":         viewer.UserID,
		})
		return
	}

	v, err := ctrl.verificationService.Claim(ctx, id, claimant)
	if err != nil {
		respondError(c, err, "claim verification", map[string]interface{}{
			"verification_id": id,
			"claimant_kind":   claimant.Kind,
			"claimant_id":     claimant.ID,
		})
		return
	}

	log.Info("Verification claimed", map[string]interface{}{
		"verification_id": id,
		"claimant_kind":   claimant.Kind,
		"claimant_id":     claimant.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification claimed",
		"data":    v,
	})
}

// ApproveVerification records admin approval and completes the request when it can
// PATCH /api/v1/verifications/:id/approve
func (ctrl *VerificationController) ApproveVerification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ApproveVerificationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid approval body")
			return
		}
	}

	result, err := ctrl.verificationService.Approve(c.Request.Context(), id, req.AdminNote)
	if err != nil {
		if result == nil {
			respondError(c, err, "approve verification", map[string]interface{}{
				"verification_id": id,
			})
			return
		}
		// completed, but the commission lines were not written
		info := apperrors.ParseError(err, "approve verification")
		log.Error("Commission distribution pending after approval", err, map[string]interface{}{
			"verification_id": id,
		})
		c.JSON(info.Status, gin.H{
			"error":   info.Code,
			"message": info.Message,
			"data":    result,
		})
		return
	}

	message := "Verification approved and completed"
	if !result.Completed {
		message = "Verification approved; completion pending: " + result.Reason
	}

	log.Info("Verification approved", map[string]interface{}{
		"verification_id": id,
		"completed":       result.Completed,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}

// RetryDistribution re-runs commission distribution for a completed request
// POST /api/v1/verifications/:id/distribute
func (ctrl *VerificationController) RetryDistribution(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := ctrl.verificationService.RetryDistribution(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "distribute commissions", map[string]interface{}{
			"verification_id": id,
		})
		return
	}

	message := "Commissions distributed"
	if result.AlreadyDistributed {
		message = "Commissions already distributed"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}
