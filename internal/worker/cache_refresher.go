package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const (
	// Debounce window - collect events for same product within this duration
	defaultDebounceWindow = 1 * time.Second

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	attemptTimeout = 5 * time.Second
)

// CacheRefresher processes product events and refreshes the cache asynchronously
type CacheRefresher struct {
	refresher      Refresher
	logger         *logger.Logger
	debounceWindow time.Duration

	// Debouncing state
	mu             sync.Mutex
	pendingUpdates map[uuid.UUID]*pendingUpdate
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	productID uuid.UUID
	timestamp time.Time
	timer     *time.Timer
}

// NewCacheRefresher creates a new cache refresher worker
func NewCacheRefresher(refresher Refresher, logger *logger.Logger) *CacheRefresher {
	ctx, cancel := context.WithCancel(context.Background())

	return &CacheRefresher{
		refresher:      refresher,
		logger:         logger,
		debounceWindow: defaultDebounceWindow,
		pendingUpdates: make(map[uuid.UUID]*pendingUpdate),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// HandleEvent processes a product event
func (w *CacheRefresher) HandleEvent(data []byte) error {
	var event domain.ProductEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal product event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.ProductID == uuid.Nil {
		return fmt.Errorf("event %q has no product id", event.EventType)
	}

	w.logger.WithFields(map[string]any{
		"type":       event.EventType,
		"product_id": event.ProductID.String(),
		"timestamp":  event.Timestamp,
	}).Info("Received product event")

	w.scheduleUpdate(event.ProductID, event.Timestamp)

	return nil
}

// scheduleUpdate debounces refreshes: events for one product within the window
// collapse into a single refresh
func (w *CacheRefresher) scheduleUpdate(productID uuid.UUID, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pendingUpdates[productID]

	if found {
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(map[string]any{
				"product_id":  productID.String(),
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}

		// Only reset the timer if it has not fired yet; a fired timer owns its wg slot
		if !existing.timer.Stop() {
			w.wg.Add(1)
		}
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Debug("Debouncing: resetting timer for product")
	} else {
		w.wg.Add(1)
	}

	update := &pendingUpdate{
		productID: productID,
		timestamp: timestamp,
	}
	update.timer = time.AfterFunc(w.debounceWindow, func() {
		w.processUpdate(update)
	})
	w.pendingUpdates[productID] = update
}

// processUpdate refreshes the product with retry logic
func (w *CacheRefresher) processUpdate(update *pendingUpdate) {
	defer w.wg.Done()

	productID := update.productID

	w.mu.Lock()
	if w.pendingUpdates[productID] == update {
		delete(w.pendingUpdates, productID)
	}
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"product_id": productID.String(),
	}).Info("Processing cache refresh")

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying cache refresh")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		err := w.refresher.Refresh(ctx, productID)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
			"attempt":    attempt + 1,
		}).Error("Failed to refresh cache", err)
	}

	w.logger.WithFields(map[string]any{
		"product_id":  productID.String(),
		"max_retries": maxRetries,
	}).Error("Cache refresh failed after all retries", lastErr)
}

// Shutdown gracefully shuts down the worker.
// Cancels pending timers and waits for in-flight refreshes to complete.
func (w *CacheRefresher) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down cache refresher...")

	w.mu.Lock()
	select {
	case <-w.shutdownCh:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.shutdownCh)

	pendingCount := 0
	for _, update := range w.pendingUpdates {
		if update.timer.Stop() {
			pendingCount++
			w.wg.Done()
		}
	}
	w.pendingUpdates = make(map[uuid.UUID]*pendingUpdate)
	w.mu.Unlock()

	// Stop retries of in-flight refreshes
	w.cancel()

	w.logger.WithFields(map[string]any{
		"cancelled_updates": pendingCount,
	}).Info("Cancelled pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight refreshes completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of pending updates (used for monitoring/testing)
func (w *CacheRefresher) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}
