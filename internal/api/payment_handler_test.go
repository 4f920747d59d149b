package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/database"
	"cvbuilder/internal/layout"
	"cvbuilder/internal/payment"
)

func TestCreateOrder(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")
	_, stranger := srv.signUp(t, "eve@example.com")
	doc := srv.createCV(t, token, "Ada")

	w := srv.do(t, http.MethodPost, "/api/payment/order", token, payment.OrderRequest{CVID: doc.ID, Purpose: payment.PurposeDownload})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var order payment.Order
	decode(t, w, &order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, int64(4900), order.Amount)
	assert.Equal(t, "INR", order.Currency)

	var row database.PaymentOrder
	require.NoError(t, srv.db.Where("order_id = ?", order.ID).First(&row).Error)
	assert.Equal(t, database.OrderStatusCreated, row.Status)

	w = srv.do(t, http.MethodPost, "/api/payment/order", token, payment.OrderRequest{CVID: doc.ID, Purpose: "print"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/payment/order", stranger, payment.OrderRequest{CVID: doc.ID, Purpose: payment.PurposeShare})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyPaymentChecksSignature(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada")

	w := srv.do(t, http.MethodPost, "/api/payment/order", token, payment.OrderRequest{CVID: doc.ID, Purpose: payment.PurposeDownload})
	require.Equal(t, http.StatusOK, w.Code)
	var order payment.Order
	decode(t, w, &order)

	forged := payment.Receipt{OrderID: order.ID, PaymentID: "pay_1", Signature: payment.Sign("wrong", order.ID, "pay_1")}
	w = srv.do(t, http.MethodPost, "/api/payment/verify", token, forged)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"failure","error":"Payment verification failed"}`, w.Body.String())

	var row database.PaymentOrder
	require.NoError(t, srv.db.Where("order_id = ?", order.ID).First(&row).Error)
	assert.Equal(t, database.OrderStatusCreated, row.Status)

	valid := payment.Receipt{OrderID: order.ID, PaymentID: "pay_1", Signature: payment.Sign(testPaymentSecret, order.ID, "pay_1")}
	w = srv.do(t, http.MethodPost, "/api/payment/verify", token, valid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	require.NoError(t, srv.db.Where("order_id = ?", order.ID).First(&row).Error)
	assert.Equal(t, database.OrderStatusPaid, row.Status)
	assert.Equal(t, "pay_1", row.PaymentID)

	w = srv.do(t, http.MethodPost, "/api/payment/verify", token, payment.Receipt{OrderID: "order_missing", PaymentID: "p", Signature: "s"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLayoutsFallsBackToCatalog(t *testing.T) {
	srv := newTestServer(t, CVOptions{})

	w := srv.do(t, http.MethodGet, "/api/layouts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var builtIn []layout.Descriptor
	decode(t, w, &builtIn)
	assert.Equal(t, layout.DefaultCatalog(), builtIn)

	row, err := database.NewLayout(layout.Descriptor{ID: "custom", Name: "Custom", Available: true})
	require.NoError(t, err)
	require.NoError(t, srv.db.Create(&row).Error)

	w = srv.do(t, http.MethodGet, "/api/layouts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored []layout.Descriptor
	decode(t, w, &stored)
	require.Len(t, stored, 1)
	assert.Equal(t, "custom", stored[0].ID)
	assert.Equal(t, "Custom", stored[0].Name)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, CVOptions{})

	w := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	w = srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cvbuilder_http_requests_total")
}
