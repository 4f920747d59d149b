// Package payment gates premium actions (download, share) behind a verified
// payment: create an order, run the external checkout widget, then ask the
// backend to verify the signed receipt.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// StatusSuccess 是校验成功时后端返回的状态。
const StatusSuccess = "success"

// Purpose 是需要付费的动作。
type Purpose string

const (
	PurposeDownload Purpose = "download"
	PurposeShare    Purpose = "share"
)

// ErrCheckoutCancelled 表示用户关闭了支付窗口。
var ErrCheckoutCancelled = errors.New("checkout cancelled")

// OrderRequest 是创建订单的请求体。
type OrderRequest struct {
	CVID    string  `json:"cv_id"`
	Purpose Purpose `json:"purpose"`
}

// Order 是后端返回的订单描述。
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Receipt 是支付组件握手后返回的签名回执。
type Receipt struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verification 是校验结果。
type Verification struct {
	Status string `json:"status"`
}

// Backend is the payment collaborator reached over REST.
type Backend interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifyPayment(ctx context.Context, receipt Receipt) (Verification, error)
}

// Widget is the external checkout handshake.
type Widget interface {
	Checkout(ctx context.Context, order Order) (Receipt, error)
}

// Stage 表示支付流程的阶段。
type Stage string

const (
	StageOrder    Stage = "order"
	StageCheckout Stage = "checkout"
	StageVerify   Stage = "verify"
)

// Error 表示支付未完成，受保护的动作不得继续。
type Error struct {
	Stage  Stage
	Status string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("payment %s: %v", e.Stage, e.Err)
	case e.Status != "":
		return fmt.Sprintf("payment %s: status %q", e.Stage, e.Status)
	}
	return fmt.Sprintf("payment %s failed", e.Stage)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) UserMessage() string {
	switch e.Stage {
	case StageVerify:
		return "Payment verification failed"
	case StageCheckout:
		if errors.Is(e.Err, ErrCheckoutCancelled) {
			return "Payment cancelled"
		}
	}
	return "Payment failed"
}

// Gate runs the order, checkout and verify handshake.
type Gate struct {
	backend Backend
	widget  Widget
	logger  *slog.Logger
}

// NewGate 创建付费闸门。
func NewGate(backend Backend, widget Widget, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{backend: backend, widget: widget, logger: logger}
}

// Authorize returns nil only when the backend verified the payment with
// status "success".
func (g *Gate) Authorize(ctx context.Context, req OrderRequest) error {
	log := g.logger.With(slog.String("cv_id", req.CVID), slog.String("purpose", string(req.Purpose)))

	order, err := g.backend.CreateOrder(ctx, req)
	if err != nil {
		log.Error("create payment order failed", slog.Any("error", err))
		return &Error{Stage: StageOrder, Err: err}
	}
	log = log.With(slog.String("order_id", order.ID))

	receipt, err := g.widget.Checkout(ctx, order)
	if err != nil {
		log.Warn("checkout did not complete", slog.Any("error", err))
		return &Error{Stage: StageCheckout, Err: err}
	}

	result, err := g.backend.VerifyPayment(ctx, receipt)
	if err != nil {
		log.Error("verify payment failed", slog.Any("error", err))
		return &Error{Stage: StageVerify, Err: err}
	}
	if result.Status != StatusSuccess {
		log.Warn("payment not verified", slog.String("status", result.Status))
		return &Error{Stage: StageVerify, Status: result.Status}
	}

	log.Info("payment verified")
	return nil
}

// Sign 计算回执签名：HMAC-SHA256(order_id + "|" + payment_id)，十六进制编码。
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature 以常量时间比较回执签名。
func ValidSignature(secret string, r Receipt) bool {
	want := Sign(secret, r.OrderID, r.PaymentID)
	return hmac.Equal([]byte(want), []byte(r.Signature))
}
