package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/webhook"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type productRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// HandleProductList returns a paginated product listing with optional
// sku/name/search/active filters.
func HandleProductList(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := repository.ProductFilter{
		SKU:    c.Query("sku"),
		Name:   c.Query("name"),
		Search: c.Query("search"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "active must be true or false"})
		}
		filter.Active = &active
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	total, err := productRepo.Count(filter)
	if err != nil {
		fiberlog.Errorf("[Products] Failed to count products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list products"})
	}

	products, err := productRepo.List(filter, (page-1)*pageSize, pageSize)
	if err != nil {
		fiberlog.Errorf("[Products] Failed to list products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list products"})
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}

	return c.JSON(fiber.Map{
		"data":        products,
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": totalPages,
	})
}

// HandleProductCreate creates a single product. The SKU must be unique under
// case-insensitive comparison with everything already in the catalog.
func HandleProductCreate(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	product := &models.Product{
		SKU:           req.SKU,
		NormalizedSKU: models.NormalizeSKU(req.SKU),
		Name:          req.Name,
		Description:   req.Description,
		Active:        active,
	}
	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if product.NormalizedSKU == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku must not be blank"})
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	if existing, err := productRepo.GetByNormalizedSKU(product.NormalizedSKU); err == nil && existing != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a product with this SKU already exists"})
	}
	if err := productRepo.Create(product); err != nil {
		fiberlog.Errorf("[Products] Failed to create product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
	}

	webhook.GetDispatcher().Notify(models.EventProductCreated, map[string]interface{}{
		"id":  product.ID,
		"sku": product.SKU,
	})

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleProductGet returns a single product by ID.
func HandleProductGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}
	return c.JSON(product)
}

// HandleProductUpdate updates a product. Changing the SKU re-checks
// case-insensitive uniqueness against the rest of the catalog.
func HandleProductUpdate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	product, err := productRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}

	if req.SKU != "" {
		normalized := models.NormalizeSKU(req.SKU)
		if normalized != product.NormalizedSKU {
			if existing, err := productRepo.GetByNormalizedSKU(normalized); err == nil && existing != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a product with this SKU already exists"})
			}
		}
		product.SKU = req.SKU
		product.NormalizedSKU = normalized
	}
	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := productRepo.Update(product); err != nil {
		fiberlog.Errorf("[Products] Failed to update product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
	}

	webhook.GetDispatcher().Notify(models.EventProductUpdated, map[string]interface{}{
		"id":  product.ID,
		"sku": product.SKU,
	})

	return c.JSON(product)
}

// HandleProductDelete removes a single product.
func HandleProductDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	product, err := productRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}

	if err := productRepo.Delete(uint(id)); err != nil {
		fiberlog.Errorf("[Products] Failed to delete product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete product"})
	}

	webhook.GetDispatcher().Notify(models.EventProductDeleted, map[string]interface{}{
		"id":  product.ID,
		"sku": product.SKU,
	})

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// HandleProductDeleteAll wipes the whole catalog. Used between test imports.
func HandleProductDeleteAll(c *fiber.Ctx) error {
	deleted, err := repository.GetGlobalFactory().GetProductRepository().DeleteAll()
	if err != nil {
		fiberlog.Errorf("[Products] Failed to delete all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete products"})
	}

	fiberlog.Infof("[Products] Bulk delete removed %d products", deleted)
	return c.JSON(fiber.Map{"deleted": deleted})
}
