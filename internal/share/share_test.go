package share

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/payment"
)

func TestLinks(t *testing.T) {
	targets := Links("https://cv.example.com/", "64f0a1")

	assert.Equal(t, "https://cv.example.com/cv/64f0a1", targets.URL)
	assert.Equal(t, "https://wa.me/?text=Check%20out%20my%20CV:%20https%3A%2F%2Fcv.example.com%2Fcv%2F64f0a1", targets.WhatsApp)
	assert.Equal(t, "https://www.linkedin.com/sharing/share-offsite/?url=https%3A%2F%2Fcv.example.com%2Fcv%2F64f0a1", targets.LinkedIn)
}

func TestEscapeComponentUsesPercentTwenty(t *testing.T) {
	assert.Equal(t, "a%20b%26c", escapeComponent("a b&c"))
}

type stubBackend struct{ status string }

func (b stubBackend) CreateOrder(context.Context, payment.OrderRequest) (payment.Order, error) {
	return payment.Order{ID: "o"}, nil
}

func (b stubBackend) VerifyPayment(context.Context, payment.Receipt) (payment.Verification, error) {
	return payment.Verification{Status: b.status}, nil
}

type stubWidget struct{}

func (stubWidget) Checkout(_ context.Context, o payment.Order) (payment.Receipt, error) {
	return payment.Receipt{OrderID: o.ID}, nil
}

func TestSharerRequiresVerifiedPayment(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	denied := NewSharer("https://cv.example.com", payment.NewGate(stubBackend{status: "failed"}, stubWidget{}, logger))
	_, err := denied.Share(context.Background(), "1")
	require.Error(t, err)

	allowed := NewSharer("https://cv.example.com", payment.NewGate(stubBackend{status: payment.StatusSuccess}, stubWidget{}, logger))
	targets, err := allowed.Share(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "https://cv.example.com/cv/1", targets.URL)
}
