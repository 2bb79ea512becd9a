package webhook

import (
	"sync"

	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/env"
)

var (
	globalDispatcher *Dispatcher
	dispatcherOnce   sync.Once
)

// GetDispatcher returns the global webhook dispatcher (singleton), starting
// it on first use. The repository factory must be initialized first.
func GetDispatcher() *Dispatcher {
	dispatcherOnce.Do(func() {
		secret := env.GetEnv("WEBHOOK_SIGNING_SECRET", "")
		globalDispatcher = NewDispatcher(
			repository.GetGlobalFactory().GetWebhookRepository(),
			DefaultWorkers,
			secret,
		)
		globalDispatcher.Start()
	})
	return globalDispatcher
}
