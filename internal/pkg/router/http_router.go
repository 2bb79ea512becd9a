package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CatalogFox/internal/pkg/database"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		code := fiber.StatusOK
		if db := database.GetDB(); db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}
		return c.Status(code).JSON(fiber.Map{"status": status})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
