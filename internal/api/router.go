package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"billsheet/internal/api/handlers"
	"billsheet/pkg/config"
)

func SetupRouter(
	scanHandler *handlers.ScanHandler,
	billHandler *handlers.BillHandler,
	exportHandler *handlers.ExportHandler,
	healthHandler *handlers.HealthHandler,
	server config.ServerConfig,
	upload config.UploadConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout: server.ReadTimeout,
		// Room for a full batch of maximum-size images plus multipart
		// framing; oversized requests get 413 before any processing.
		BodyLimit: upload.MaxImageCount*upload.MaxFileSizeBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(logger.New())

	app.Get("/health", healthHandler.Health)
	app.Get("/health/db", healthHandler.HealthDB)

	api := app.Group("/api")

	// Scan pipeline: multipart in, event stream out.
	api.Post("/ocr/scan", scanHandler.ScanImages)

	bills := api.Group("/bills")
	bills.Post("", billHandler.CreateBill)
	bills.Get("", billHandler.ListBills)
	bills.Get("/count", billHandler.CountBills)
	bills.Get("/search", billHandler.SearchBills)
	bills.Get("/:id", billHandler.GetBill)
	bills.Put("/:id", billHandler.UpdateBill)
	bills.Delete("/:id", billHandler.DeleteBill)

	api.Get("/export", exportHandler.ExportBills)

	appLogger.Info("Router configured")
	return app
}
