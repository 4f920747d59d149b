package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/payment"
	"cvbuilder/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := session.New()
	sess.Start(session.User{ID: "u1"}, "tok-123")
	return New(srv.URL, sess), sess
}

func TestListCVsSendsPagingAndToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cv", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"_id":"a","basic":{"name":"Ada"},"skills":[{"name":"Go","percentage":90}]}]`))
	})

	docs, err := c.ListCVs(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "90", docs[0].Skills[0].Get("percentage"))
}

func TestGetCVNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"CV not found"}`))
	})

	_, err := c.GetCV(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cv.ErrNotFound))

	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.StatusNotFound, nerr.Status)
	assert.Equal(t, "CV not found", nerr.UserMessage())
}

func TestCreateAndUpdateCV(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		var doc cv.Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		if r.Method == http.MethodPost {
			assert.Empty(t, doc.ID)
			doc.ID = "new-id"
		}
		_ = json.NewEncoder(w).Encode(doc)
	})

	doc := cv.New()
	doc.ID = "ignored"
	doc.Basic.Name = "Ada"
	created, err := c.CreateCV(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)

	updated, err := c.UpdateCV(context.Background(), "new-id", created)
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.Basic.Name)

	assert.Equal(t, []string{"POST /api/cv", "PUT /api/cv/new-id"}, methods)
}

func TestServerMessageFromMsgField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"User already exists"}`))
	})

	_, err := c.Register(context.Background(), Registration{Username: "ada"})
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "User already exists", nerr.UserMessage())
}

func TestLayoutsFallBackToCatalog(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	layouts := c.Layouts(context.Background())
	require.Len(t, layouts, 3)
	assert.Equal(t, "Professional Classic", layouts[0].Name)
}

func TestSignInStartsSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ada@example.com", creds.Email)
		_, _ = w.Write([]byte(`{"user":{"id":"u9","username":"ada","email":"ada@example.com"},"token":"fresh"}`))
	})

	sess := session.New()
	user, err := c.SignIn(context.Background(), sess, Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u9", user.ID)
	assert.Equal(t, "fresh", sess.Token())
}

func TestPaymentEndpoints(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payment/order":
			_, _ = w.Write([]byte(`{"id":"order_1","amount":4900,"currency":"INR"}`))
		case "/api/payment/verify":
			var receipt payment.Receipt
			require.NoError(t, json.NewDecoder(r.Body).Decode(&receipt))
			assert.Equal(t, "order_1", receipt.OrderID)
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	order, err := c.CreateOrder(context.Background(), payment.OrderRequest{CVID: "a", Purpose: payment.PurposeDownload})
	require.NoError(t, err)
	assert.Equal(t, int64(4900), order.Amount)

	v, err := c.VerifyPayment(context.Background(), payment.Receipt{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, v.Status)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	c := New("http://127.0.0.1:1", nil)
	err := c.DeleteCV(context.Background(), "a")

	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "delete cv", nerr.Op)
	assert.Equal(t, "Something went wrong", nerr.UserMessage())
}
