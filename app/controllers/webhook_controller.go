package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/webhook"
)

type webhookRequest struct {
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	Enabled   *bool  `json:"enabled"`
}

// HandleWebhookList returns all registered webhook subscriptions.
func HandleWebhookList(c *fiber.Ctx) error {
	webhooks, err := repository.GetGlobalFactory().GetWebhookRepository().GetAll()
	if err != nil {
		fiberlog.Errorf("[Webhooks] Failed to list webhooks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list webhooks"})
	}
	return c.JSON(fiber.Map{"data": webhooks})
}

// HandleWebhookCreate registers a new subscription for one event type.
func HandleWebhookCreate(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sub := &models.Webhook{
		URL:       strings.TrimSpace(req.URL),
		EventType: req.EventType,
		Enabled:   enabled,
	}
	if !models.IsValidEventType(sub.EventType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        "unsupported event type",
			"valid_events": models.WebhookEventTypes,
		})
	}
	if err := sub.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetWebhookRepository().Create(sub); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to create webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create webhook"})
	}

	fiberlog.Infof("[Webhooks] Registered %s -> %s", sub.EventType, sub.URL)
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// HandleWebhookGet returns a single webhook subscription.
func HandleWebhookGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook id"})
	}

	sub, err := repository.GetGlobalFactory().GetWebhookRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "webhook not found"})
		}
		fiberlog.Errorf("[Webhooks] Failed to load webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load webhook"})
	}
	return c.JSON(sub)
}

// HandleWebhookUpdate updates a subscription's URL, event type or enabled flag.
func HandleWebhookUpdate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook id"})
	}

	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	webhookRepo := repository.GetGlobalFactory().GetWebhookRepository()
	sub, err := webhookRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "webhook not found"})
		}
		fiberlog.Errorf("[Webhooks] Failed to load webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load webhook"})
	}

	if req.URL != "" {
		sub.URL = strings.TrimSpace(req.URL)
	}
	if req.EventType != "" {
		if !models.IsValidEventType(req.EventType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":        "unsupported event type",
				"valid_events": models.WebhookEventTypes,
			})
		}
		sub.EventType = req.EventType
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}
	if err := sub.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := webhookRepo.Update(sub); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to update webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update webhook"})
	}
	return c.JSON(sub)
}

// HandleWebhookDelete removes a subscription.
func HandleWebhookDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook id"})
	}

	webhookRepo := repository.GetGlobalFactory().GetWebhookRepository()
	if _, err := webhookRepo.GetByID(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "webhook not found"})
		}
		fiberlog.Errorf("[Webhooks] Failed to load webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load webhook"})
	}
	if err := webhookRepo.Delete(uint(id)); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to delete webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete webhook"})
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// HandleWebhookTest fires a synchronous test delivery against a subscription's
// URL and reports the endpoint's response.
func HandleWebhookTest(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook id"})
	}

	sub, err := repository.GetGlobalFactory().GetWebhookRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "webhook not found"})
		}
		fiberlog.Errorf("[Webhooks] Failed to load webhook %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load webhook"})
	}

	result := webhook.GetDispatcher().TestDelivery(sub.URL, sub.EventType, map[string]interface{}{
		"webhook_id":   sub.ID,
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	})
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(result)
}
