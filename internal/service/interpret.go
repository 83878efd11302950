package service

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"invoice-extractor/internal/dto"
	"invoice-extractor/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// answerSchema gates the structured parse path: both keys must be
// present, values may be anything including null.
var answerSchema = jsonschema.MustCompileString("answer.json", `{
	"type": "object",
	"required": ["total_amount", "handwriting"]
}`)

var amountPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// modelAnswer is the discriminated outcome of the parse pipeline:
// either a structured JSON object from the model, or the raw text
// carried as a fallback amount with handwriting unknown.
type modelAnswer struct {
	structured  bool
	totalAmount any
	handwriting any
}

// interpretModelResponse turns the model's free-form reply into an
// ExtractionResponse. Parse attempts run in order, first success wins:
// strict JSON, fenced JSON, then raw-text fallback. The fallback is
// rejected when the text plainly is not an amount (no digits at all).
func interpretModelResponse(raw string) (*dto.ExtractionResponse, *models.ExtractionError) {
	text := strings.TrimSpace(raw)

	answer, ok := parseStructuredAnswer(text)
	if !ok {
		if inner, fenced := stripCodeFence(text); fenced {
			answer, ok = parseStructuredAnswer(inner)
		}
	}
	if !ok {
		if !containsDigit(text) {
			return nil, models.NewExtractionError(models.ErrExtractionFailed,
				"failed to extract a valid total amount or parse JSON")
		}
		answer = modelAnswer{totalAmount: text}
	}

	return &dto.ExtractionResponse{
		TotalAmount: normalizeAmount(answer.totalAmount),
		Handwriting: normalizeHandwriting(answer.handwriting),
	}, nil
}

// parseStructuredAnswer attempts a strict JSON parse. Key absence is a
// parse failure, not an error: the caller falls through to the next
// strategy.
func parseStructuredAnswer(text string) (modelAnswer, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return modelAnswer{}, false
	}
	if err := answerSchema.Validate(v); err != nil {
		return modelAnswer{}, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return modelAnswer{}, false
	}
	return modelAnswer{
		structured:  true,
		totalAmount: obj["total_amount"],
		handwriting: obj["handwriting"],
	}, true
}

// stripCodeFence unwraps a triple-backtick fenced block, dropping the
// opening line (fence plus optional language tag) and the closing
// fence.
func stripCodeFence(text string) (string, bool) {
	if len(text) < 6 || !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") {
		return "", false
	}
	inner := strings.TrimSuffix(text, "```")
	idx := strings.IndexByte(inner, '\n')
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(inner[idx+1:]), true
}

// normalizeAmount coerces a textual amount to a number rounded to two
// decimals when a digit run can be pulled out of it; the original
// value is kept untouched otherwise. Thousands separators are stripped
// before matching so "1,234.50" parses as 1234.50.
func normalizeAmount(v any) any {
	switch t := v.(type) {
	case float64:
		return math.Round(t*100) / 100
	case string:
		cleaned := strings.ReplaceAll(t, ",", "")
		match := amountPattern.FindString(cleaned)
		if match == "" {
			return t
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return t
		}
		return math.Round(f*100) / 100
	default:
		return v
	}
}

// normalizeHandwriting coerces the structured value to a boolean when
// it plainly is one; anything else stays unknown.
func normalizeHandwriting(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t))); err == nil {
			return &b
		}
		return nil
	default:
		return nil
	}
}

func containsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}
