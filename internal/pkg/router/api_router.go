package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/CatalogFox/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// CSV import
	api.Post("/upload", controllers.HandleUpload)
	api.Get("/upload/:id", controllers.HandleUploadStatus)
	api.Get("/upload/:id/stream", controllers.HandleUploadStream)

	// Product catalog
	products := api.Group("/products")
	products.Get("/", controllers.HandleProductList)
	products.Post("/", controllers.HandleProductCreate)
	products.Delete("/bulk/all", controllers.HandleProductDeleteAll)
	products.Get("/:id", controllers.HandleProductGet)
	products.Put("/:id", controllers.HandleProductUpdate)
	products.Delete("/:id", controllers.HandleProductDelete)

	// Webhook subscriptions
	webhooks := api.Group("/webhooks")
	webhooks.Get("/", controllers.HandleWebhookList)
	webhooks.Post("/", controllers.HandleWebhookCreate)
	webhooks.Get("/:id", controllers.HandleWebhookGet)
	webhooks.Put("/:id", controllers.HandleWebhookUpdate)
	webhooks.Delete("/:id", controllers.HandleWebhookDelete)
	webhooks.Post("/:id/test", controllers.HandleWebhookTest)

	// Operational insight into the background queue
	api.Get("/system/queue", controllers.HandleQueueStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
