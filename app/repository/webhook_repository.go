package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) Create(webhook *models.Webhook) error {
	return r.db.Create(webhook).Error
}

func (r *webhookRepository) GetByID(id uint) (*models.Webhook, error) {
	var webhook models.Webhook
	err := r.db.First(&webhook, id).Error
	if err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (r *webhookRepository) GetAll() ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Order("created_at DESC").Find(&webhooks).Error
	return webhooks, err
}

func (r *webhookRepository) GetEnabledByEventType(eventType string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Where("event_type = ? AND enabled = ?", eventType, true).Find(&webhooks).Error
	return webhooks, err
}

func (r *webhookRepository) Update(webhook *models.Webhook) error {
	return r.db.Save(webhook).Error
}

func (r *webhookRepository) Delete(id uint) error {
	return r.db.Delete(&models.Webhook{}, id).Error
}
