package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/internal/pkg/jobqueue"
)

// HandleQueueStats exposes job queue depth and lifetime counters for
// operational monitoring.
func HandleQueueStats(c *fiber.Ctx) error {
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	ctx := c.Context()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		fiberlog.Errorf("[System] Failed to read queue stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read queue stats"})
	}
	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		fiberlog.Errorf("[System] Failed to read queue size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read queue stats"})
	}
	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		fiberlog.Errorf("[System] Failed to read processing size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read queue stats"})
	}

	return c.JSON(fiber.Map{
		"running":    manager.IsRunning(),
		"pending":    pending,
		"processing": processing,
		"stats":      stats,
	})
}
