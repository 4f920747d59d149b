package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cvbuilder/internal/database"
	"cvbuilder/internal/payment"
)

// PaymentOptions 是订单金额与回执签名密钥。
type PaymentOptions struct {
	KeySecret string
	Amount    int64
	Currency  string
}

// PaymentHandler 负责创建订单与校验支付回执。
type PaymentHandler struct {
	db     *gorm.DB
	opts   PaymentOptions
	logger *slog.Logger
}

func NewPaymentHandler(db *gorm.DB, opts PaymentOptions, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{db: db, opts: opts, logger: logger}
}

// CreateOrder 为当前用户的一份简历创建订单。
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req payment.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid order request")
		return
	}
	switch req.Purpose {
	case payment.PurposeDownload, payment.PurposeShare:
	default:
		BadRequest(c, "invalid purpose")
		return
	}

	ctx := c.Request.Context()
	record, err := findCVForUser(ctx, h.db, req.CVID, userID)
	if err != nil {
		if errors.Is(err, errInvalidCVID) || errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "CV not found")
			return
		}
		Internal(c, "failed to query cv")
		return
	}

	order := database.PaymentOrder{
		OrderID:  "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:   userID,
		CVID:     record.ID,
		Purpose:  string(req.Purpose),
		Amount:   h.opts.Amount,
		Currency: h.opts.Currency,
		Status:   database.OrderStatusCreated,
	}
	logger := loggerFromContext(c, h.logger).With(
		slog.Uint64("cv_id", uint64(record.ID)),
		slog.String("order_id", order.OrderID),
	)
	if err := h.db.WithContext(ctx).Create(&order).Error; err != nil {
		logger.Error("create payment order failed", slog.Any("error", err))
		Internal(c, "failed to create order")
		return
	}

	logger.Info("payment order created", slog.String("purpose", order.Purpose))
	c.JSON(http.StatusOK, payment.Order{
		ID:       order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
}

// VerifyPayment 校验回执签名并将订单标记为已支付。
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var receipt payment.Receipt
	if err := c.ShouldBindJSON(&receipt); err != nil || receipt.OrderID == "" || receipt.PaymentID == "" {
		BadRequest(c, "invalid payment receipt")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.String("order_id", receipt.OrderID))

	var order database.PaymentOrder
	if err := h.db.WithContext(ctx).Where("order_id = ? AND user_id = ?", receipt.OrderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "order not found")
			return
		}
		logger.Error("query payment order failed", slog.Any("error", err))
		Internal(c, "failed to verify payment")
		return
	}

	if !payment.ValidSignature(h.opts.KeySecret, receipt) {
		logger.Warn("payment signature mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "error": "Payment verification failed"})
		return
	}

	if order.Status != database.OrderStatusPaid {
		if err := h.db.WithContext(ctx).Model(&order).Updates(map[string]any{
			"status":     database.OrderStatusPaid,
			"payment_id": receipt.PaymentID,
		}).Error; err != nil {
			logger.Error("mark order paid failed", slog.Any("error", err))
			Internal(c, "failed to verify payment")
			return
		}
		logger.Info("payment verified")
	}

	c.JSON(http.StatusOK, payment.Verification{Status: payment.StatusSuccess})
}

func hasPaidOrder(ctx context.Context, db *gorm.DB, userID, cvID uint, purpose payment.Purpose) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&database.PaymentOrder{}).
		Where("user_id = ? AND cv_id = ? AND purpose = ? AND status = ?", userID, cvID, string(purpose), database.OrderStatusPaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
