package models

import "fmt"

// ErrorKind tags an ExtractionError with the pipeline stage class that
// produced it.
type ErrorKind string

const (
	// ErrInvalidFormat - unsupported or missing file extension
	ErrInvalidFormat ErrorKind = "invalid_format"
	// ErrConversionFailed - decode/render/encode failure while normalizing
	ErrConversionFailed ErrorKind = "conversion_failed"
	// ErrMissingCredential - no API key configured
	ErrMissingCredential ErrorKind = "missing_credential"
	// ErrUpstream - transport or API failure calling the model
	ErrUpstream ErrorKind = "upstream_error"
	// ErrExtractionFailed - model response had no recoverable amount
	ErrExtractionFailed ErrorKind = "extraction_failed"
	// ErrProcessingFailed - anything otherwise unclassified
	ErrProcessingFailed ErrorKind = "processing_failed"
)

// ExtractionError is the single failure type that crosses the pipeline
// boundary. It never coexists with a partial success.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ClientFault reports whether the failure was caused by the caller's
// input rather than by processing. The boundary maps these to 400.
func (e *ExtractionError) ClientFault() bool {
	return e.Kind == ErrInvalidFormat
}

func NewExtractionError(kind ErrorKind, message string) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message}
}

func WrapExtractionError(kind ErrorKind, message string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Err: err}
}
