package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/database"
	"cvbuilder/internal/payment"
	"cvbuilder/internal/tasks"
)

func sampleDoc(name string) cv.Document {
	doc := cv.New()
	doc.Basic = cv.Basic{Name: name, Email: "ada@example.com"}
	doc.Skills = []cv.Record{{"name": "Go", "percentage": "90"}}
	doc.Social = []cv.Record{{"platform": "GitHub", "link": "https://github.com/ada"}}
	return doc
}

func (s *testServer) createCV(t *testing.T, token, name string) cv.Document {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/cv", token, sampleDoc(name))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc cv.Document
	decode(t, w, &doc)
	require.NotEmpty(t, doc.ID)
	return doc
}

func TestCreateGetUpdateCV(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")

	created := srv.createCV(t, token, "Ada")
	assert.Equal(t, "Ada", created.Basic.Name)
	assert.Equal(t, "90", created.Skills[0].Get("percentage"))

	w := srv.do(t, http.MethodGet, "/api/cv/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched cv.Document
	decode(t, w, &fetched)
	assert.Equal(t, created, fetched)

	fetched.Basic.Intro = "Engineer"
	fetched.Skills = append(fetched.Skills, cv.Record{"name": "SQL", "percentage": "70"})
	w = srv.do(t, http.MethodPut, "/api/cv/"+created.ID, token, fetched)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated cv.Document
	decode(t, w, &updated)
	assert.Equal(t, "Engineer", updated.Basic.Intro)
	assert.Len(t, updated.Skills, 2)
	assert.Equal(t, created.ID, updated.ID)
}

func TestCreateCVRejectsInvalidDocument(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")

	doc := sampleDoc("Ada")
	doc.Social[0]["link"] = "github.com/ada"
	w := srv.do(t, http.MethodPost, "/api/cv", token, doc)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid URL format for social link."}`, w.Body.String())

	doc = sampleDoc("Ada")
	doc.Skills[0]["percentage"] = "120"
	w = srv.do(t, http.MethodPost, "/api/cv", token, doc)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCVEnforcesLimit(t *testing.T) {
	srv := newTestServer(t, CVOptions{MaxCVsPerUser: 1})
	_, token := srv.signUp(t, "ada@example.com")

	srv.createCV(t, token, "One")
	w := srv.do(t, http.MethodPost, "/api/cv", token, sampleDoc("Two"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListCVsPagesNewestFirst(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")
	_, otherToken := srv.signUp(t, "bob@example.com")

	for i := 1; i <= 7; i++ {
		srv.createCV(t, token, fmt.Sprintf("cv-%d", i))
	}
	srv.createCV(t, otherToken, "not mine")

	var page1, page2, page3 []cv.Document
	w := srv.do(t, http.MethodGet, "/api/cv?page=1&limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page1)
	decode(t, srv.do(t, http.MethodGet, "/api/cv?page=2&limit=5", token, nil), &page2)
	decode(t, srv.do(t, http.MethodGet, "/api/cv?page=3&limit=5", token, nil), &page3)

	require.Len(t, page1, 5)
	require.Len(t, page2, 2)
	assert.Empty(t, page3)
	assert.Equal(t, "cv-7", page1[0].Basic.Name)
	assert.Equal(t, "cv-1", page2[1].Basic.Name)

	// 缺省参数：第 1 页，每页 5 条
	var defaults []cv.Document
	decode(t, srv.do(t, http.MethodGet, "/api/cv", token, nil), &defaults)
	assert.Len(t, defaults, 5)
}

func TestOtherUsersCVIsNotFound(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, owner := srv.signUp(t, "ada@example.com")
	_, stranger := srv.signUp(t, "eve@example.com")
	doc := srv.createCV(t, owner, "Ada")

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/cv/"+doc.ID, stranger, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/api/cv/"+doc.ID, stranger, nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/cv/abc", owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/cv/9999", owner, nil).Code)
}

func TestDeleteCVRemovesExports(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	userID, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada")

	w := srv.do(t, http.MethodDelete, "/api/cv/"+doc.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"msg":"CV deleted successfully"}`, w.Body.String())

	cvID, err := database.ParseID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{fmt.Sprintf("exports/%d/%d/", userID, cvID)}, srv.store.deleted)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/cv/"+doc.ID, token, nil).Code)
}

func TestPublicViewRendersHTML(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada Lovelace")

	w := srv.do(t, http.MethodGet, "/cv/"+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Ada Lovelace")
	assert.Contains(t, w.Body.String(), "Go (90%)")

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/cv/404", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/cv/x", "", nil).Code)
}

// pay 走完下单与回执校验，返回订单号。
func (s *testServer) pay(t *testing.T, token, cvID string, purpose payment.Purpose) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/payment/order", token, payment.OrderRequest{CVID: cvID, Purpose: purpose})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var order payment.Order
	decode(t, w, &order)

	receipt := payment.Receipt{OrderID: order.ID, PaymentID: "pay_1"}
	receipt.Signature = payment.Sign(testPaymentSecret, receipt.OrderID, receipt.PaymentID)
	w = s.do(t, http.MethodPost, "/api/payment/verify", token, receipt)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return order.ID
}

func TestExportRequiresPaymentThenQueues(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	userID, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada")

	w := srv.do(t, http.MethodPost, "/api/cv/"+doc.ID+"/export", token, nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Empty(t, srv.queue.tasks)

	// 分享订单不解锁下载
	srv.pay(t, token, doc.ID, payment.PurposeShare)
	assert.Equal(t, http.StatusPaymentRequired, srv.do(t, http.MethodPost, "/api/cv/"+doc.ID+"/export", token, nil).Code)

	srv.pay(t, token, doc.ID, payment.PurposeDownload)
	w = srv.do(t, http.MethodPost, "/api/cv/"+doc.ID+"/export", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Len(t, srv.queue.tasks, 1)
	task := srv.queue.tasks[0]
	assert.Equal(t, tasks.TypeCVExport, task.Type())
	var payload tasks.CVExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, userID, payload.UserID)
	assert.NotEmpty(t, payload.CorrelationID)

	var record database.CV
	require.NoError(t, srv.db.First(&record, payload.CVID).Error)
	assert.Equal(t, database.ExportStatusQueued, record.ExportStatus)
	assert.NotEmpty(t, payload.JobID)
	assert.Equal(t, payload.JobID, record.ExportJobID)
}

func TestDownloadLink(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	userID, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada Lovelace")
	path := "/api/cv/" + doc.ID + "/download-link"

	assert.Equal(t, http.StatusPaymentRequired, srv.do(t, http.MethodGet, path, token, nil).Code)
	srv.pay(t, token, doc.ID, payment.PurposeDownload)
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodGet, path, token, nil).Code)

	cvID, err := database.ParseID(doc.ID)
	require.NoError(t, err)
	key := fmt.Sprintf("exports/%d/%d/abc.pdf", userID, cvID)
	require.NoError(t, srv.db.Model(&database.CV{}).Where("id = ?", cvID).Updates(map[string]any{
		"export_status":  database.ExportStatusCompleted,
		"pdf_object_key": key,
	}).Error)

	w := srv.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}
	decode(t, w, &body)
	assert.Equal(t, "https://storage.test/"+key, body.URL)
	assert.Equal(t, 900, body.ExpiresIn)
	assert.Equal(t, "Ada Lovelace.pdf", srv.store.lastName)
}

func TestUpdateInvalidatesFinishedExport(t *testing.T) {
	srv := newTestServer(t, CVOptions{})
	_, token := srv.signUp(t, "ada@example.com")
	doc := srv.createCV(t, token, "Ada")
	cvID, err := database.ParseID(doc.ID)
	require.NoError(t, err)
	require.NoError(t, srv.db.Model(&database.CV{}).Where("id = ?", cvID).Updates(map[string]any{
		"export_status":  database.ExportStatusCompleted,
		"pdf_object_key": "exports/1/1/a.pdf",
		"export_job_id":  "job-1",
	}).Error)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/cv/"+doc.ID, token, doc).Code)

	var record database.CV
	require.NoError(t, srv.db.First(&record, cvID).Error)
	assert.Equal(t, database.ExportStatusNone, record.ExportStatus)
	assert.Empty(t, record.PdfObjectKey)
	assert.Empty(t, record.ExportJobID)
}
