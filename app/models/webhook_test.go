package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookValidate(t *testing.T) {
	valid := Webhook{URL: "https://example.com/hooks", EventType: EventProductCreated}
	assert.NoError(t, valid.Validate())

	badURL := Webhook{URL: "not-a-url", EventType: EventProductCreated}
	assert.Error(t, badURL.Validate())

	badEvent := Webhook{URL: "https://example.com/hooks", EventType: "product.renamed"}
	assert.Error(t, badEvent.Validate())
}

func TestIsValidEventType(t *testing.T) {
	for _, event := range WebhookEventTypes {
		assert.True(t, IsValidEventType(event), event)
	}

	assert.False(t, IsValidEventType("product.renamed"))
	assert.False(t, IsValidEventType(""))
}
