package client

import (
	"context"
	"net/http"

	"cvbuilder/internal/payment"
)

// CreateOrder 实现 payment.Backend。
func (c *Client) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	var order payment.Order
	err := c.do(ctx, "create payment order", http.MethodPost, "/api/payment/order", req, &order)
	return order, err
}

// VerifyPayment 实现 payment.Backend。
func (c *Client) VerifyPayment(ctx context.Context, receipt payment.Receipt) (payment.Verification, error) {
	var v payment.Verification
	err := c.do(ctx, "verify payment", http.MethodPost, "/api/payment/verify", receipt, &v)
	return v, err
}
