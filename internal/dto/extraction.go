package dto

// ExtractionResponse is the wire shape returned by POST /extract-total.
// TotalAmount is a number when the model's answer could be coerced to a
// decimal, otherwise the raw text the model returned. Handwriting is
// nil when the model did not give a usable yes/no.
type ExtractionResponse struct {
	TotalAmount any   `json:"total_amount"`
	Handwriting *bool `json:"handwriting"`
}
