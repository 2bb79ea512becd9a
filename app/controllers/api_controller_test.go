package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

func newUploadApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/upload", HandleUpload)
	return app
}

func newMultipartCSVRequest(t *testing.T, fieldName, fileName, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUploadMissingFile(t *testing.T) {
	app := newUploadApp()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "no file uploaded")
}

func TestHandleUploadWrongFieldName(t *testing.T) {
	app := newUploadApp()

	req := newMultipartCSVRequest(t, "document", "products.csv", "sku,name\n")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleUploadRejectsNonCSV(t *testing.T) {
	app := newUploadApp()

	tests := []string{"products.xlsx", "products.txt", "products"}
	for _, fileName := range tests {
		t.Run(fileName, func(t *testing.T) {
			req := newMultipartCSVRequest(t, "file", fileName, "sku,name\n")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			body, readErr := io.ReadAll(resp.Body)
			require.NoError(t, readErr)
			assert.Contains(t, string(body), ".csv")
		})
	}
}

func TestHandleProductCreateInvalidBody(t *testing.T) {
	app := fiber.New()
	app.Post("/api/products", HandleProductCreate)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"missing sku", `{"name":"Widget"}`},
		{"missing name", `{"sku":"A-1"}`},
		{"blank sku", `{"sku":"   ","name":"Widget"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleProductGetInvalidID(t *testing.T) {
	app := fiber.New()
	app.Get("/api/products/:id", HandleProductGet)

	for _, id := range []string{"abc", "0", "-5"} {
		t.Run(id, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleWebhookCreateRejectsUnknownEvent(t *testing.T) {
	app := fiber.New()
	app.Post("/api/webhooks", HandleWebhookCreate)

	payload := `{"url":"https://example.com/hooks","event_type":"product.renamed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error       string   `json:"error"`
		ValidEvents []string `json:"valid_events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unsupported event type", body.Error)
	assert.Equal(t, models.WebhookEventTypes, body.ValidEvents)
}

func TestHandleWebhookTestInvalidID(t *testing.T) {
	app := fiber.New()
	app.Post("/api/webhooks/:id/test", HandleWebhookTest)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/abc/test", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// stubJobRepo serves a fixed import job state so the stream replay logic can
// be exercised without a database.
type stubJobRepo struct {
	job *models.ImportJob
	err error
}

func (r *stubJobRepo) Create(job *models.ImportJob) error { return nil }

func (r *stubJobRepo) GetByID(id string) (*models.ImportJob, error) {
	if r.err != nil {
		return nil, r.err
	}
	copied := *r.job
	return &copied, nil
}

func (r *stubJobRepo) Update(job *models.ImportJob) error { return nil }

func (r *stubJobRepo) DeleteTerminalOlderThan(cutoffDays int) (int64, error) { return 0, nil }

func TestReplayJobPicksUpTerminalTransition(t *testing.T) {
	// The job finished between the handler's first read and the subscription
	// going active. The replay must surface the terminal state so the stream
	// closes instead of idling on keep-alives.
	stale := models.ImportJob{ID: "job-1", Status: models.ImportJobStatusProcessing, ProcessedRows: 500}
	fresh := models.ImportJob{ID: "job-1", Status: models.ImportJobStatusCompleted, ProcessedRows: 1000, TotalRows: 1000}

	got := replayJob(&stubJobRepo{job: &fresh}, "job-1", stale)
	assert.Equal(t, models.ImportJobStatusCompleted, got.Status)
	assert.Equal(t, int64(1000), got.ProcessedRows)
	assert.True(t, got.IsTerminal())
}

func TestReplayJobFallsBackOnReadError(t *testing.T) {
	stale := models.ImportJob{ID: "job-1", Status: models.ImportJobStatusProcessing, ProcessedRows: 500}

	got := replayJob(&stubJobRepo{err: errors.New("connection refused")}, "job-1", stale)
	assert.Equal(t, models.ImportJobStatusProcessing, got.Status)
	assert.Equal(t, int64(500), got.ProcessedRows)
}
