package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"billsheet/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
	logger        *zap.Logger
}

func NewExportHandler(exportService *service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// ExportBills streams all bills as a downloadable csv or xlsx file,
// selected by the format query parameter (default csv).
func (h *ExportHandler) ExportBills(c *fiber.Ctx) error {
	format := c.Query("format", "csv")
	stamp := time.Now().Format("20060102_150405")

	switch format {
	case "csv":
		data, err := h.exportService.ExportCSV(c.Context())
		if err != nil {
			h.logger.Error("Failed to export csv", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate export",
			})
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="bills_%s.csv"`, stamp))
		return c.Send(data)

	case "xlsx":
		data, err := h.exportService.ExportXLSX(c.Context())
		if err != nil {
			h.logger.Error("Failed to export xlsx", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate export",
			})
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="bills_%s.xlsx"`, stamp))
		return c.Send(data)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported format, use csv or xlsx",
		})
	}
}
