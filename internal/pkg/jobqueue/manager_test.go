package jobqueue

import (
	"testing"
	"time"
)

func TestRetentionWorkerStopsOnSignal(t *testing.T) {
	m := &Manager{retentionTicker: time.NewTicker(time.Hour)}
	defer m.retentionTicker.Stop()

	// The worker holds its own reference to the stop channel, so a later
	// reassignment of the manager field cannot strand it mid-loop.
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	m.wg.Add(1)
	go m.retentionWorker(stopCh)

	m.stopCh = make(chan struct{})
	close(stopCh)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention worker did not stop after the stop channel closed")
	}
}
