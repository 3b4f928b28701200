package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docextract-backend/internal/bootstrap"
	"docextract-backend/internal/extract/extracttest"
	"docextract-backend/internal/shared/config"
)

type documentBody struct {
	ID                string  `json:"id"`
	Filename          string  `json:"filename"`
	StoredFilename    string  `json:"stored_filename"`
	Title             *string `json:"title"`
	UserID            string  `json:"user_id"`
	ExtractionStatus  string  `json:"extraction_status"`
	ExtractionError   *string `json:"extraction_error"`
	ExtractionSummary *struct {
		TablesFound      int `json:"tables_found"`
		StatisticsFound  int `json:"statistics_found"`
		TotalExtractions int `json:"total_extractions"`
	} `json:"extraction_summary"`
}

func newApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
		AllowGuests:     true,
		UploadMaxBytes:  1 << 20,
		Worker:          config.WorkerConfig{Concurrency: 1, QueueSize: 4, JobTimeout: time.Minute},
	}

	app, err := bootstrap.Build(cfg, bootstrap.RoleAPI)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	if app.Pool != nil {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = app.Pool.Run(ctx)
			close(done)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	return app
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "guest-123")
}

func reportPDF() []byte {
	return extracttest.PDF(extracttest.Page{
		{X: 72, Y: 700, S: "Revenue grew 15% to $1,500"},
		{X: 72, Y: 650, S: "Name"},
		{X: 200, Y: 650, S: "Score"},
		{X: 72, Y: 630, S: "Alice"},
		{X: 200, Y: 630, S: "42"},
	})
}

func uploadRequest(t *testing.T, query, name, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("title", "Quarterly report"); err != nil {
		t.Fatalf("write title: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents"+query, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	return req
}

func do(app *bootstrap.App, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	app.HTTPHandler.ServeHTTP(resp, req)
	return resp
}

func get(app *bootstrap.App, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	addGuestHeader(req)
	return do(app, req)
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDocumentsUploadGetListDelete(t *testing.T) {
	app := newApp(t)

	resp := do(app, uploadRequest(t, "", "report.pdf", "application/pdf", reportPDF()))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created documentBody
	decode(t, resp, &created)
	if created.ID == "" || created.StoredFilename != created.ID+".pdf" || created.Filename != "report.pdf" {
		t.Fatalf("unexpected document %+v", created)
	}
	if created.UserID != "guest:guest-123" || created.ExtractionStatus != "pending" {
		t.Fatalf("unexpected owner or status %+v", created)
	}
	if created.Title == nil || *created.Title != "Quarterly report" {
		t.Fatalf("unexpected title %v", created.Title)
	}

	resp = get(app, "/api/v1/documents/"+created.ID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	resp = get(app, "/api/v1/documents")
	var listed []documentBody
	decode(t, resp, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", listed)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+created.ID, nil)
	addGuestHeader(req)
	if resp := do(app, req); resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if resp := get(app, "/api/v1/documents/"+created.ID); resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", resp.Code)
	}
}

func TestDocumentsUploadRejectsNonPDF(t *testing.T) {
	app := newApp(t)

	tests := []struct {
		name        string
		contentType string
		data        []byte
		want        string
	}{
		{name: "declared text", contentType: "text/plain", data: []byte("hello world"), want: "Only PDF files are allowed"},
		{name: "disguised text", contentType: "application/pdf", data: []byte("hello world"), want: "Only PDF files are allowed"},
		{name: "too large", contentType: "application/pdf", data: append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 3<<19)...), want: "File size exceeds maximum limit"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := do(app, uploadRequest(t, "", "file.pdf", tt.contentType, tt.data))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", resp.Code)
			}
			if !strings.Contains(resp.Body.String(), tt.want) {
				t.Fatalf("expected %q in %s", tt.want, resp.Body.String())
			}
		})
	}
}

func TestDocumentsRequireIdentity(t *testing.T) {
	app := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if resp := do(app, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestUploadStartsBackgroundExtraction(t *testing.T) {
	app := newApp(t)

	resp := do(app, uploadRequest(t, "?start_extracting_after_uploading=true", "report.pdf", "application/pdf", reportPDF()))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created documentBody
	decode(t, resp, &created)
	if created.ExtractionStatus != "processing" {
		t.Fatalf("expected processing, got %s", created.ExtractionStatus)
	}

	deadline := time.Now().Add(10 * time.Second)
	var polled documentBody
	for time.Now().Before(deadline) {
		polled = documentBody{}
		decode(t, get(app, "/api/v1/documents/"+created.ID), &polled)
		if polled.ExtractionStatus != "processing" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if polled.ExtractionStatus != "completed" {
		t.Fatalf("expected completed, got %s (error %v)", polled.ExtractionStatus, polled.ExtractionError)
	}
	sum := polled.ExtractionSummary
	if sum == nil || sum.TablesFound != 1 || sum.StatisticsFound != 2 || sum.TotalExtractions != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestOperationalRoutes(t *testing.T) {
	app := newApp(t)

	resp := do(app, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}

	resp = do(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "extraction_started_total") {
		t.Fatalf("unexpected metrics response %d", resp.Code)
	}
}
