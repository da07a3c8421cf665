// Package cleanup periodically prunes stale partial model downloads and old history entries.
package cleanup

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/killallgit/sttclient/pkg/download"
)

// HistoryPruner removes history entries older than an age
type HistoryPruner interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Config holds cleanup settings. Zero values disable the matching pass.
type Config struct {
	ModelsDir       string        // directory holding partial model downloads
	PartialMaxAge   time.Duration // Default: 24h
	HistoryMaxAge   time.Duration // history retention, 0 keeps everything
	CleanupInterval time.Duration // Default: 1h
}

// Service handles periodic cleanup
type Service struct {
	config  Config
	history HistoryPruner
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a new cleanup service. history may be nil.
func NewService(cfg Config, history HistoryPruner) *Service {
	if cfg.PartialMaxAge <= 0 {
		cfg.PartialMaxAge = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Service{
		config:  cfg,
		history: history,
	}
}

// Start runs one pass immediately and then one per interval until Stop or ctx is done
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.RunOnce(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				log.Println("[INFO] Cleanup service stopped")
				return
			}
		}
	}()

	log.Printf("[INFO] Cleanup service started (interval: %v, history max age: %v)", s.config.CleanupInterval, s.config.HistoryMaxAge)
}

// Stop stops the cleanup service and waits for the loop to exit
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce(ctx context.Context) {
	if s.config.ModelsDir != "" {
		if err := download.CleanupPartial(s.config.ModelsDir, s.config.PartialMaxAge); err != nil {
			log.Printf("[WARN] Failed to clean partial downloads in %s: %v", s.config.ModelsDir, err)
		}
	}

	if s.history != nil && s.config.HistoryMaxAge > 0 {
		if _, err := s.history.CleanupOlderThan(ctx, s.config.HistoryMaxAge); err != nil {
			log.Printf("[ERROR] History cleanup failed: %v", err)
		}
	}
}
