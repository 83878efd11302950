package service

import (
	"context"
	"fmt"
	"time"

	"invoice-extractor/internal/dto"
	"invoice-extractor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService runs the extraction pipeline for one uploaded
// document: normalize -> model call -> response interpretation. It
// holds no per-request state, so concurrent invocations are safe.
type InvoiceService struct {
	fileService *FileService
	llmService  *LLMService
	logger      *zap.Logger
}

func NewInvoiceService(fileService *FileService, llmService *LLMService, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		fileService: fileService,
		llmService:  llmService,
		logger:      logger,
	}
}

// ExtractTotal processes an uploaded invoice and returns the extracted
// total amount and handwriting flag. Stages run strictly in sequence
// and short-circuit on the first failure; anything a stage did not
// classify itself surfaces as ProcessingFailed.
func (s *InvoiceService) ExtractTotal(ctx context.Context, filename string, data []byte) (result *dto.ExtractionResponse, extErr *models.ExtractionError) {
	reqID := uuid.New().String()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extraction pipeline panicked",
				zap.String("req_id", reqID),
				zap.Any("panic", r),
			)
			result = nil
			extErr = models.NewExtractionError(models.ErrProcessingFailed,
				fmt.Sprintf("error processing invoice: %v", r))
		}
	}()

	s.logger.Info("extraction started",
		zap.String("req_id", reqID),
		zap.String("file", filename),
		zap.Int("size_bytes", len(data)),
	)

	encoded, extErr := s.fileService.NormalizeToBase64JPEG(filename, data)
	if extErr != nil {
		s.logger.Warn("normalization failed",
			zap.String("req_id", reqID),
			zap.String("kind", string(extErr.Kind)),
			zap.Error(extErr),
		)
		return nil, extErr
	}

	raw, extErr := s.llmService.ExtractInvoiceFields(ctx, encoded)
	if extErr != nil {
		s.logger.Error("model invocation failed",
			zap.String("req_id", reqID),
			zap.String("kind", string(extErr.Kind)),
			zap.Error(extErr),
		)
		return nil, extErr
	}

	result, extErr = interpretModelResponse(raw)
	if extErr != nil {
		s.logger.Warn("response interpretation failed",
			zap.String("req_id", reqID),
			zap.String("kind", string(extErr.Kind)),
			zap.Error(extErr),
		)
		return nil, extErr
	}

	s.logger.Info("extraction completed",
		zap.String("req_id", reqID),
		zap.Any("total_amount", result.TotalAmount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}
