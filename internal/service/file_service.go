package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"invoice-extractor/internal/models"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileService normalizes an uploaded invoice (image or single-page PDF)
// into a base64-encoded JPEG payload ready for embedding in a data URI.
type FileService struct {
	logger *zap.Logger
}

func NewFileService(logger *zap.Logger) *FileService {
	return &FileService{logger: logger}
}

var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// ValidateFilename checks that the filename carries a supported
// extension. The check is case-insensitive.
func ValidateFilename(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	_, ok := allowedExtensions[ext]
	return ok
}

// NormalizeToBase64JPEG converts the uploaded bytes into a single
// base64-encoded JPEG. PDFs contribute only their first page; images
// are flattened to plain RGB so palette and alpha modes survive JPEG
// encoding. The returned string is the raw base64 payload without a
// data-URI prefix.
func (s *FileService) NormalizeToBase64JPEG(filename string, data []byte) (string, *models.ExtractionError) {
	if !ValidateFilename(filename) {
		return "", models.NewExtractionError(models.ErrInvalidFormat,
			"invalid file format, supported formats: PDF, PNG, JPG, JPEG")
	}

	var (
		img image.Image
		err error
	)
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		img, err = s.renderFirstPDFPage(data)
	} else {
		img, err = decodeToRGB(data)
	}
	if err != nil {
		return "", models.WrapExtractionError(models.ErrConversionFailed,
			"error converting file to base64", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return "", models.WrapExtractionError(models.ErrConversionFailed,
			"error converting file to base64", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	s.logger.Debug("document normalized",
		zap.String("file", filename),
		zap.Int("jpeg_bytes", buf.Len()),
	)

	return encoded, nil
}

// renderFirstPDFPage rasterizes page one of a PDF. Rendering goes
// through a temp file with a per-invocation unique name so concurrent
// requests never touch each other's artifacts; the file is removed on
// every exit path.
func (s *FileService) renderFirstPDFPage(data []byte) (image.Image, error) {
	tmpFile, err := os.CreateTemp("", "invoice-"+uuid.New().String()+"-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	doc, err := fitz.New(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("failed to extract page from PDF")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF page: %w", err)
	}

	return img, nil
}

// decodeToRGB decodes a PNG or JPEG and flattens it onto an opaque
// white canvas. JPEG cannot represent alpha or palette modes, so
// everything becomes plain RGB before encoding.
func decodeToRGB(data []byte) (image.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, src, bounds.Min, draw.Over)

	return rgb, nil
}
