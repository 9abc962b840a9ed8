package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/app/service"
	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminController struct {
	payoutService     service.PayoutService
	commissionService service.CommissionService
	opsService        service.OpsService
}

func NewAdminController(
	payoutService service.PayoutService,
	commissionService service.CommissionService,
	opsService service.OpsService,
) *AdminController {
	return &AdminController{
		payoutService:     payoutService,
		commissionService: commissionService,
		opsService:        opsService,
	}
}

type ProcessPayoutRequest struct {
	Provider string `json:"provider" binding:"max=40"`
}

type PublishCommissionConfigRequest struct {
	PlatformCommissionPercent  decimal.Decimal `json:"platformCommissionPercent"`
	AdminCommissionPercent     decimal.Decimal `json:"adminCommissionPercent"`
	AgentPayoutPercent         decimal.Decimal `json:"agentPayoutPercent"`
	DealInitiatorPayoutPercent decimal.Decimal `json:"dealInitiatorPayoutPercent"`
	MinimumVerificationFee     model.Amount    `json:"minimumVerificationFee" binding:"min=0"`
	EffectiveFrom              *time.Time      `json:"effectiveFrom"`
}

// ProcessPayout settles one pending payout line
// POST /api/v1/admin/payouts/:transactionId/process
func (ctrl *AdminController) ProcessPayout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "transactionId")
	if !ok {
		return
	}

	var req ProcessPayoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid payout body")
			return
		}
	}

	tx, err := ctrl.payoutService.ProcessPayout(c.Request.Context(), id, strings.TrimSpace(req.Provider))
	if err != nil {
		respondError(c, err, "process payout", map[string]interface{}{
			"transaction_id": id,
		})
		return
	}

	log.Info("Payout processed by admin", map[string]interface{}{
		"transaction_id": tx.ID,
		"provider":       tx.Provider,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Payout processed",
		"data":    tx,
	})
}

// ExportPayouts downloads payout lines as an xlsx workbook
// GET /api/v1/admin/payouts/export?status=PENDING&from=2024-01-01&to=2024-02-01
func (ctrl *AdminController) ExportPayouts(c *gin.Context) {
	filter := repository.PayoutFilter{
		Status: model.TransactionStatus(strings.ToUpper(c.Query("status"))),
	}

	var err error
	if filter.From, err = parseDateQuery(c.Query("from")); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "from must be YYYY-MM-DD or RFC3339")
		return
	}
	if filter.To, err = parseDateQuery(c.Query("to")); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "to must be YYYY-MM-DD or RFC3339")
		return
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	buf, err := ctrl.payoutService.ExportPayouts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "export payouts", nil)
		return
	}

	filename := fmt.Sprintf("payouts-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// OpsStatus reports stuck payouts and escrow holds
// GET /api/v1/admin/ops/status?hours=24
func (ctrl *AdminController) OpsStatus(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "hours must be a positive integer")
		return
	}

	status, err := ctrl.opsService.Status(c.Request.Context(), hours)
	if err != nil {
		respondError(c, err, "get ops status", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ops status retrieved",
		"data":    status,
	})
}

// ListCommissionConfigs returns the commission split history, newest first
// GET /api/v1/admin/commission-configs
func (ctrl *AdminController) ListCommissionConfigs(c *gin.Context) {
	configs, err := ctrl.commissionService.ListConfigs(c.Request.Context())
	if err != nil {
		respondError(c, err, "list commission configs", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Commission configs retrieved",
		"data":    configs,
	})
}

// PublishCommissionConfig makes a new split the active one
// POST /api/v1/admin/commission-configs
func (ctrl *AdminController) PublishCommissionConfig(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req PublishCommissionConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid commission config", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid commission config body")
		return
	}

	cfg, err := ctrl.commissionService.PublishConfig(c.Request.Context(), adminID, service.PublishConfigInput{
		PlatformCommissionPercent:  req.PlatformCommissionPercent,
		AdminCommissionPercent:     req.AdminCommissionPercent,
		AgentPayoutPercent:         req.AgentPayoutPercent,
		DealInitiatorPayoutPercent: req.DealInitiatorPayoutPercent,
		MinimumVerificationFee:     req.MinimumVerificationFee,
		EffectiveFrom:              req.EffectiveFrom,
	})
	if err != nil {
		respondError(c, err, "create commission config", map[string]interface{}{
			"admin_id": adminID,
		})
		return
	}

	log.Info("Commission config published", map[string]interface{}{
		"config_id": cfg.ID,
		"admin_id":  adminID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Commission config published",
		"data":    cfg,
	})
}

// CalculateCommission previews the split of an amount under the active config
// GET /api/v1/admin/commission-configs/calculate?amount=10000
func (ctrl *AdminController) CalculateCommission(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount < 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "amount must be a non-negative integer")
		return
	}

	quote, err := ctrl.commissionService.Calculate(c.Request.Context(), model.Amount(amount))
	if err != nil {
		respondError(c, err, "calculate commission", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Commission calculated",
		"data":    quote,
	})
}

func parseDateQuery(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
