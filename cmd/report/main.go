package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"io"
	"log"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"invoice-extractor/internal/service"
	"invoice-extractor/pkg/config"
	"invoice-extractor/pkg/logger"
)

// Batch-tests a running extraction service: posts a random sample of
// invoice files from a directory and writes an HTML report with the
// extracted totals next to image previews.

type reportEntry struct {
	Filename    string
	TotalAmount string
	Handwriting string
	TimeTaken   float64
	Error       string
	Preview     template.URL
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Invoice Extraction Batch Report</title>
	<style>
		body { font-family: Arial, sans-serif; background: #f7f7f9; margin: 0; padding: 0; }
		.container { max-width: 1200px; margin: 40px auto; background: #fff; border-radius: 12px; box-shadow: 0 2px 8px rgba(0,0,0,0.08); padding: 32px; }
		h1 { color: #333; margin-bottom: 24px; }
		.grid { display: flex; flex-wrap: wrap; gap: 32px; }
		.card { flex: 1 1 320px; min-width: 320px; max-width: 350px; background: #fafbfc; border-radius: 10px; box-shadow: 0 1px 4px rgba(0,0,0,0.05); padding: 18px 18px 24px 18px; margin-bottom: 24px; display: flex; flex-direction: column; align-items: center; }
		.filename { color: #555; font-size: 1em; margin-bottom: 8px; word-break: break-all; }
		.value { font-size: 1.5em; font-weight: bold; color: #2b9348; margin-bottom: 18px; }
		.meta { font-size: 1em; color: #555; margin-bottom: 8px; }
		.img-preview { border: 1px solid #eee; border-radius: 8px; max-width: 100%; max-height: 400px; box-shadow: 0 1px 4px rgba(0,0,0,0.05); margin-bottom: 8px; }
		.error { color: #b30000; font-size: 0.95em; margin-bottom: 8px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Invoice Extraction Batch Report</h1>
		<div class="grid">
		{{range .}}
			<div class="card">
				<div class="filename">{{.Filename}}</div>
				<div class="value">{{.TotalAmount}}</div>
				{{if .Handwriting}}<div class="meta">Handwritten: {{.Handwriting}}</div>{{end}}
				<div class="meta">Time: {{printf "%.2f" .TimeTaken}}s</div>
				{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
				{{if .Preview}}<img src="{{.Preview}}" class="img-preview" alt="Invoice Preview" />{{end}}
			</div>
		{{end}}
		</div>
	</div>
</body>
</html>
`

func main() {
	claimsDir := flag.String("claims-dir", "claims", "directory with invoice files")
	num := flag.Int("num", 5, "number of files to test")
	apiURL := flag.String("api-url", "http://localhost:8080/extract-total", "extraction endpoint")
	out := flag.String("out", "report.html", "output report path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	files, err := sampleClaimFiles(*claimsDir, *num)
	if err != nil {
		log.Fatalf("Failed to list claim files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No supported files found in %s", *claimsDir)
	}

	fileService := service.NewFileService(appLogger)
	client := &http.Client{Timeout: 60 * time.Second}

	entries := make([]reportEntry, 0, len(files))
	for i, path := range files {
		fmt.Printf("[%d/%d] Processing %s ... ", i+1, len(files), path)
		entries = append(entries, processFile(client, fileService, *apiURL, path))
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create report: %v", err)
	}
	defer f.Close()

	tmpl := template.Must(template.New("report").Parse(reportTemplate))
	if err := tmpl.Execute(f, entries); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	fmt.Printf("Report generated: %s\n", *out)
}

func sampleClaimFiles(dir string, n int) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range dirEntries {
		if e.IsDir() || !service.ValidateFilename(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	rand.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
	if len(files) > n {
		files = files[:n]
	}
	return files, nil
}

func processFile(client *http.Client, fileService *service.FileService, apiURL, path string) reportEntry {
	entry := reportEntry{Filename: filepath.Base(path)}
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		entry.TotalAmount = "READ ERROR"
		entry.Error = err.Error()
		fmt.Printf("Error: %v\n", err)
		return entry
	}

	body, contentType, err := buildMultipartBody(entry.Filename, data)
	if err != nil {
		entry.TotalAmount = "API ERROR"
		entry.Error = err.Error()
		fmt.Printf("Error: %v\n", err)
		return entry
	}

	resp, err := client.Post(apiURL, contentType, body)
	entry.TimeTaken = time.Since(start).Seconds()
	if err != nil {
		entry.TotalAmount = "API ERROR"
		entry.Error = err.Error()
		fmt.Printf("Error: %v (Time: %.2fs)\n", err, entry.TimeTaken)
		return entry
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		entry.TotalAmount = "API ERROR"
		entry.Error = string(respBody)
		fmt.Printf("API Error: %d (Time: %.2fs)\n", resp.StatusCode, entry.TimeTaken)
		return entry
	}

	var result struct {
		TotalAmount any   `json:"total_amount"`
		Handwriting *bool `json:"handwriting"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		entry.TotalAmount = "DECODE ERROR"
		entry.Error = err.Error()
		fmt.Printf("Error: %v (Time: %.2fs)\n", err, entry.TimeTaken)
		return entry
	}

	entry.TotalAmount = fmt.Sprintf("%v", result.TotalAmount)
	if result.Handwriting != nil {
		entry.Handwriting = fmt.Sprintf("%v", *result.Handwriting)
	}

	// Preview reuses the service normalizer, so the report shows
	// exactly what the model saw.
	if encoded, extErr := fileService.NormalizeToBase64JPEG(entry.Filename, data); extErr == nil {
		entry.Preview = template.URL("data:image/jpeg;base64," + encoded)
	}

	fmt.Printf("OK (Time: %.2fs)\n", entry.TimeTaken)
	return entry
}

func buildMultipartBody(filename string, data []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}
