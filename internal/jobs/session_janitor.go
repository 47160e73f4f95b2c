// Package jobs holds background jobs that run alongside the HTTP server.
package jobs

import (
	"log"
	"sync"
	"time"

	"github.com/kitamura/hanasu/internal/httpapi"
)

// SessionJanitor evicts idle sessions on a fixed interval. Session state is
// in-memory only, so abandoned browser tabs would otherwise accumulate
// transcripts and cached audio forever.
type SessionJanitor struct {
	registry *httpapi.SessionRegistry
	logger   *log.Logger
	maxIdle  time.Duration
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSessionJanitor creates a janitor evicting sessions idle longer than
// maxIdle, checked every interval.
func NewSessionJanitor(registry *httpapi.SessionRegistry, logger *log.Logger, maxIdle, interval time.Duration) *SessionJanitor {
	if maxIdle == 0 {
		maxIdle = 30 * time.Minute
	}
	if interval == 0 {
		interval = 1 * time.Minute
	}
	return &SessionJanitor{
		registry: registry,
		logger:   logger,
		maxIdle:  maxIdle,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background job.
func (j *SessionJanitor) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("SessionJanitor: started (max_idle=%v interval=%v)", j.maxIdle, j.interval)
}

// Stop gracefully stops the background job.
func (j *SessionJanitor) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("SessionJanitor: stopped")
}

func (j *SessionJanitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *SessionJanitor) sweep() {
	if n := j.registry.Sweep(j.maxIdle); n > 0 {
		j.logger.Printf("SessionJanitor: evicted %d idle sessions (%d remain)", n, j.registry.Len())
	}
}
