package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/app/repository"
	"github.com/ManuelReschke/CatalogFox/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue           *Queue
	retentionTicker *time.Ticker
	stopCh          chan struct{}
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKER_COUNT", "3")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Start retention sweeper - prunes old terminal import jobs once per hour
	m.retentionTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.retentionWorker(m.stopCh)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.retentionTicker != nil {
		m.retentionTicker.Stop()
	}

	// Signal workers to stop. The channel is left closed until the next
	// Start recreates it; workers hold their own reference to it.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// retentionWorker runs periodically to delete terminal import jobs past the retention window
func (m *Manager) retentionWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	retentionDays := 30
	if v, err := strconv.Atoi(env.GetEnv("IMPORT_JOB_RETENTION_DAYS", "30")); err == nil && v > 0 {
		retentionDays = v
	}
	log.Infof("[JobQueue Manager] Started retention worker (retention: %d days)", retentionDays)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Retention worker stopping")
			return
		case <-m.retentionTicker.C:
			log.Debug("[JobQueue Manager] Running import job retention sweep")
			deleted, err := repository.GetGlobalFactory().GetImportJobRepository().DeleteTerminalOlderThan(retentionDays)
			if err != nil {
				log.Errorf("[JobQueue Manager] Error pruning old import jobs: %v", err)
				continue
			}
			if deleted > 0 {
				log.Infof("[JobQueue Manager] Pruned %d old import jobs", deleted)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
