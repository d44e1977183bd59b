package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"billsheet/internal/dto"
	"billsheet/internal/service"
)

type BillHandler struct {
	billService *service.BillService
	logger      *zap.Logger
}

func NewBillHandler(billService *service.BillService, logger *zap.Logger) *BillHandler {
	return &BillHandler{
		billService: billService,
		logger:      logger,
	}
}

// CreateBill stores a manually entered bill, the same shape the scan
// pipeline writes.
func (h *BillHandler) CreateBill(c *fiber.Ctx) error {
	var req dto.BillCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	bill, err := h.billService.CreateBill(c.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create bill", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create bill",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(bill)
}

func (h *BillHandler) ListBills(c *fiber.Ctx) error {
	bills, err := h.billService.ListBills(c.Context())
	if err != nil {
		h.logger.Error("Failed to list bills", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list bills",
		})
	}
	return c.JSON(bills)
}

func (h *BillHandler) GetBill(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid bill ID",
		})
	}

	bill, err := h.billService.GetBill(c.Context(), id)
	if err != nil {
		h.logger.Error("Failed to fetch bill", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch bill",
		})
	}
	if bill == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Bill not found",
		})
	}
	return c.JSON(bill)
}

func (h *BillHandler) SearchBills(c *fiber.Ctx) error {
	pattern := strings.TrimSpace(c.Query("q"))
	if pattern == "" {
		pattern = strings.TrimSpace(c.Query("invoice"))
	}
	if pattern == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Search query parameter 'q' or 'invoice' is required",
		})
	}

	bills, err := h.billService.SearchBills(c.Context(), pattern)
	if err != nil {
		h.logger.Error("Failed to search bills", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search bills",
		})
	}
	return c.JSON(bills)
}

func (h *BillHandler) CountBills(c *fiber.Ctx) error {
	count, err := h.billService.CountBills(c.Context())
	if err != nil {
		h.logger.Error("Failed to count bills", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count bills",
		})
	}
	return c.JSON(dto.CountResponse{Count: count})
}

func (h *BillHandler) UpdateBill(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid bill ID",
		})
	}

	var req dto.BillUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	bill, err := h.billService.UpdateBill(c.Context(), id, &req)
	if err != nil {
		h.logger.Error("Failed to update bill", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update bill",
		})
	}
	if bill == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Bill not found",
		})
	}
	return c.JSON(bill)
}

func (h *BillHandler) DeleteBill(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid bill ID",
		})
	}

	deleted, err := h.billService.DeleteBill(c.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete bill", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete bill",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Bill not found",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Bill deleted",
	})
}
