package handlers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"invoice-extractor/internal/api"
	"invoice-extractor/internal/api/handlers"
	"invoice-extractor/internal/service"
	"invoice-extractor/pkg/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, modelReply string) *fiber.App {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": modelReply}},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	log := zap.NewNop()
	cfg := &config.OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Model:     "gpt-4.1-mini",
		MaxTokens: 100,
		Timeout:   5 * time.Second,
	}
	invoiceService := service.NewInvoiceService(
		service.NewFileService(log),
		service.NewLLMService(cfg, log),
		log,
	)
	return api.SetupRouter(handlers.NewInvoiceHandler(invoiceService, log), log)
}

func multipartFileRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract-total", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTotalEndpointSuccess(t *testing.T) {
	app := newTestApp(t, `{"total_amount": "$99.95", "handwriting": false}`)

	resp, err := app.Test(multipartFileRequest(t, "invoice.png", testPNG(t)), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var result struct {
		TotalAmount any   `json:"total_amount"`
		Handwriting *bool `json:"handwriting"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.TotalAmount != 99.95 {
		t.Errorf("total_amount = %v", result.TotalAmount)
	}
	if result.Handwriting == nil || *result.Handwriting {
		t.Errorf("handwriting = %v, want false", result.Handwriting)
	}
}

func TestExtractTotalEndpointNoFile(t *testing.T) {
	app := newTestApp(t, "")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("note", "no file here")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract-total", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	assertErrorBody(t, resp.Body)
}

func TestExtractTotalEndpointEmptyFilename(t *testing.T) {
	app := newTestApp(t, "")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename=""`)
	header.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("data"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract-total", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	assertErrorBody(t, resp.Body)
}

func TestExtractTotalEndpointUnsupportedExtension(t *testing.T) {
	app := newTestApp(t, "")

	resp, err := app.Test(multipartFileRequest(t, "invoice.tiff", []byte("II*")), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	assertErrorBody(t, resp.Body)
}

func TestExtractTotalEndpointUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	log := zap.NewNop()
	cfg := &config.OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Model:     "gpt-4.1-mini",
		MaxTokens: 100,
		Timeout:   5 * time.Second,
	}
	invoiceService := service.NewInvoiceService(
		service.NewFileService(log),
		service.NewLLMService(cfg, log),
		log,
	)
	app := api.SetupRouter(handlers.NewInvoiceHandler(invoiceService, log), log)

	resp, err := app.Test(multipartFileRequest(t, "invoice.png", testPNG(t)), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	assertErrorBody(t, resp.Body)
}

func TestHealthzEndpoint(t *testing.T) {
	app := newTestApp(t, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func assertErrorBody(t *testing.T, r io.Reader) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error == "" {
		t.Error("error body missing message")
	}
}
