package handlers

import (
	"io"

	"invoice-extractor/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// ExtractTotal godoc
// @Summary Extract the total amount from an invoice
// @Description Upload an invoice (PDF, PNG, JPG, JPEG) and get back the total amount and a handwriting flag
// @Tags invoices
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Invoice document"
// @Success 200 {object} dto.ExtractionResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /extract-total [post]
func (h *InvoiceHandler) ExtractTotal(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	if file.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty file provided",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}

	result, extErr := h.invoiceService.ExtractTotal(c.Context(), file.Filename, data)
	if extErr != nil {
		// Input faults map to 400; processing and upstream failures
		// stay 500.
		status := fiber.StatusInternalServerError
		if extErr.ClientFault() {
			status = fiber.StatusBadRequest
		} else {
			h.logger.Error("Failed to process invoice",
				zap.String("file", file.Filename),
				zap.Error(extErr),
			)
		}
		return c.Status(status).JSON(fiber.Map{
			"error": extErr.Error(),
		})
	}

	return c.JSON(result)
}

// Healthz godoc
// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *InvoiceHandler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
