package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cvbuilder/internal/auth"
	"cvbuilder/internal/database"
)

const testPaymentSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	deleted  []string
	lastKey  string
	lastName string
}

func (s *fakeStore) GenerateDownloadURL(_ context.Context, key, filename string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKey, s.lastName = key, filename
	return "https://storage.test/" + key, nil
}

func (s *fakeStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, prefix)
	return nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *auth.AuthService
	queue  *fakeQueue
	store  *fakeStore
}

func newTestServer(t *testing.T, opts CVOptions) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	authService, err := auth.NewAuthService(privatePEM, publicPEM, time.Hour)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &testServer{
		router: NewRouter(log),
		db:     db,
		auth:   authService,
		queue:  &fakeQueue{},
		store:  &fakeStore{},
	}
	RegisterRoutes(srv.router, Deps{
		DB:          db,
		AuthService: authService,
		Queue:       srv.queue,
		Store:       srv.store,
		Logger:      log,
		CV:          opts,
		Payment: PaymentOptions{
			KeySecret: testPaymentSecret,
			Amount:    4900,
			Currency:  "INR",
		},
	})
	return srv
}

// do 发送 JSON 请求，token 为空时不带 Authorization。
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signUp 注册一个用户并返回其 ID 与令牌。
func (s *testServer) signUp(t *testing.T, email string) (uint, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "user",
		Email:    email,
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res authResponse
	decode(t, w, &res)
	id, err := database.ParseID(res.User.ID)
	require.NoError(t, err)
	return id, res.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
