package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsRejectsInvalidToken(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	h := NewWsHandler(nil, srv.auth, nil, nil)

	r := gin.New()
	r.GET("/api/ws", h.HandleConnection)
	ts := httptest.NewServer(r)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsAuthMessage{Type: "auth", Token: "forged"}))

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestWsCheckOrigin(t *testing.T) {
	h := NewWsHandler(nil, nil, nil, []string{"https://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, h.checkOrigin(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.checkOrigin(req))

	same := NewWsHandler(nil, nil, nil, nil)
	req.Host = "cv.example.com"
	req.Header.Set("Origin", "https://cv.example.com")
	assert.True(t, same.checkOrigin(req))
	req.Header.Set("Origin", "https://other.example.com")
	assert.False(t, same.checkOrigin(req))
}
