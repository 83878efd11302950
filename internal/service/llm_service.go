package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoice-extractor/internal/models"
	"invoice-extractor/pkg/config"

	"go.uber.org/zap"
)

// invoiceSystemPrompt instructs the model on what to extract and how to
// classify handwriting. Signatures, stamps and incidental notes must
// not count as handwritten content; only the main content (totals,
// items, vendor details) does.
const invoiceSystemPrompt = `Extract the total amount from this invoice. Determine if the MAIN CONTENT of the invoice (such as totals, items, and vendor details) is handwritten.
DO NOT consider signatures, stamps, or small handwritten notes when deciding if the invoice is handwritten.
If ONLY signatures, stamps, or small notes are handwritten, but the main content is printed or typed, return "handwriting": false.
Only return "handwriting": true if the main content (totals, items, vendor details) is handwritten.
Respond in JSON: {"total_amount": ..., "handwriting": ...}`

const invoiceUserPrompt = "Extract the total amount and tell me if this invoice is handwritten. Respond in JSON."

// LLMService calls an OpenAI-compatible chat completions endpoint with
// the invoice image embedded as a data URI. One attempt per request;
// retry policy is the caller's problem, timeout policy is the HTTP
// client's.
type LLMService struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewLLMService(cfg *config.OpenAIConfig, logger *zap.Logger) *LLMService {
	return &LLMService{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractInvoiceFields sends the normalized invoice image to the model
// and returns the raw text of the first choice. The credential check
// happens before any network I/O.
func (s *LLMService) ExtractInvoiceFields(ctx context.Context, base64Image string) (string, *models.ExtractionError) {
	if s.config.APIKey == "" {
		return "", models.NewExtractionError(models.ErrMissingCredential,
			"OpenAI API key not found in environment variables")
	}

	body := chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: invoiceSystemPrompt},
			{Role: "user", Content: []map[string]any{
				{"type": "text", "text": invoiceUserPrompt},
				{"type": "image_url", "image_url": map[string]string{
					"url": "data:image/jpeg;base64," + base64Image,
				}},
			}},
		},
		MaxTokens: s.config.MaxTokens,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API", err)
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		s.logger.Error("chat completion request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
		)
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API",
			fmt.Errorf("failed to decode response: %w", err))
	}
	if len(completion.Choices) == 0 {
		return "", models.WrapExtractionError(models.ErrUpstream, "error calling OpenAI API",
			fmt.Errorf("no choices in response"))
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)

	s.logger.Debug("model response received",
		zap.String("model", s.config.Model),
		zap.Int("content_length", len(content)),
	)

	return content, nil
}
