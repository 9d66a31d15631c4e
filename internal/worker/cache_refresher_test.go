package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const testDebounce = 20 * time.Millisecond

// MockRefresher is a mock implementation of Refresher
type MockRefresher struct {
	mock.Mock
	started atomic.Int32
}

func (m *MockRefresher) Refresh(ctx context.Context, productID uuid.UUID) error {
	m.started.Add(1)
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func setupTestWorker(window time.Duration) (*CacheRefresher, *MockRefresher) {
	refresher := new(MockRefresher)
	w := NewCacheRefresher(refresher, logger.New("test"))
	w.debounceWindow = window
	return w, refresher
}

func eventData(t *testing.T, productID uuid.UUID, ts time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(domain.ProductEvent{
		EventType: domain.EventProductUpdated,
		ProductID: productID,
		Timestamp: ts,
	})
	require.NoError(t, err)
	return data
}

func refreshCalls(m *MockRefresher) func() bool {
	return func() bool { return m.started.Load() > 0 }
}

func TestCacheRefresher_HandleEvent_Success(t *testing.T) {
	w, refresher := setupTestWorker(testDebounce)
	productID := uuid.New()

	refresher.On("Refresh", mock.Anything, productID).Return(nil).Once()

	require.NoError(t, w.HandleEvent(eventData(t, productID, time.Now())))
	assert.Equal(t, 1, w.GetPendingCount())

	assert.Eventually(t, func() bool { return w.GetPendingCount() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	refresher.AssertExpectations(t)
}

func TestCacheRefresher_HandleEvent_InvalidJSON(t *testing.T) {
	w, _ := setupTestWorker(testDebounce)

	err := w.HandleEvent([]byte(`{invalid json}`))

	assert.ErrorContains(t, err, "unmarshal")
	assert.Equal(t, 0, w.GetPendingCount())
}

func TestCacheRefresher_HandleEvent_MissingProductID(t *testing.T) {
	w, _ := setupTestWorker(testDebounce)

	err := w.HandleEvent([]byte(`{"event_type":"product.created"}`))

	assert.ErrorContains(t, err, "no product id")
}

func TestCacheRefresher_Debouncing_MultipleEvents(t *testing.T) {
	w, refresher := setupTestWorker(100 * time.Millisecond)
	productID := uuid.New()

	refresher.On("Refresh", mock.Anything, productID).Return(nil).Once()

	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, w.HandleEvent(eventData(t, productID, now.Add(time.Duration(i)*time.Millisecond))))
	}
	assert.Equal(t, 1, w.GetPendingCount())

	require.Eventually(t, refreshCalls(refresher), time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
}

func TestCacheRefresher_IgnoresStaleEvents(t *testing.T) {
	w, refresher := setupTestWorker(time.Hour)
	productID := uuid.New()
	now := time.Now()

	require.NoError(t, w.HandleEvent(eventData(t, productID, now)))
	require.NoError(t, w.HandleEvent(eventData(t, productID, now.Add(-time.Minute))))

	w.mu.Lock()
	pendingTS := w.pendingUpdates[productID].timestamp
	w.mu.Unlock()
	assert.True(t, pendingTS.Equal(now))

	require.NoError(t, w.Shutdown(context.Background()))
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestCacheRefresher_MultipleProducts(t *testing.T) {
	w, refresher := setupTestWorker(testDebounce)
	first, second := uuid.New(), uuid.New()

	refresher.On("Refresh", mock.Anything, first).Return(nil).Once()
	refresher.On("Refresh", mock.Anything, second).Return(nil).Once()

	require.NoError(t, w.HandleEvent(eventData(t, first, time.Now())))
	require.NoError(t, w.HandleEvent(eventData(t, second, time.Now())))
	assert.Equal(t, 2, w.GetPendingCount())

	assert.Eventually(t, func() bool { return w.GetPendingCount() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	refresher.AssertExpectations(t)
}

func TestCacheRefresher_ShutdownCancelsPendingUpdates(t *testing.T) {
	w, refresher := setupTestWorker(time.Hour)

	require.NoError(t, w.HandleEvent(eventData(t, uuid.New(), time.Now())))
	require.NoError(t, w.HandleEvent(eventData(t, uuid.New(), time.Now())))

	require.NoError(t, w.Shutdown(context.Background()))

	assert.Equal(t, 0, w.GetPendingCount())
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)

	// Events after shutdown are dropped
	require.NoError(t, w.HandleEvent(eventData(t, uuid.New(), time.Now())))
	assert.Equal(t, 0, w.GetPendingCount())

	// A second shutdown is a no-op
	assert.NoError(t, w.Shutdown(context.Background()))
}

func TestCacheRefresher_ShutdownTimeout(t *testing.T) {
	w, refresher := setupTestWorker(time.Millisecond)
	productID := uuid.New()

	refresher.On("Refresh", mock.Anything, productID).
		Run(func(mock.Arguments) { time.Sleep(300 * time.Millisecond) }).
		Return(nil)

	require.NoError(t, w.HandleEvent(eventData(t, productID, time.Now())))
	require.Eventually(t, refreshCalls(refresher), time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, w.Shutdown(ctx), context.DeadlineExceeded)
}

func TestCacheRefresher_RetryLogic(t *testing.T) {
	w, refresher := setupTestWorker(testDebounce)
	productID := uuid.New()

	refresher.On("Refresh", mock.Anything, productID).Return(errors.New("redis down")).Twice()
	refresher.On("Refresh", mock.Anything, productID).Return(nil).Once()

	require.NoError(t, w.HandleEvent(eventData(t, productID, time.Now())))

	assert.Eventually(t, func() bool { return refresher.started.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	refresher.AssertExpectations(t)
}

func TestCacheRefresher_GivesUpAfterMaxRetries(t *testing.T) {
	w, refresher := setupTestWorker(testDebounce)
	productID := uuid.New()

	refresher.On("Refresh", mock.Anything, productID).Return(errors.New("store down"))

	require.NoError(t, w.HandleEvent(eventData(t, productID, time.Now())))

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
	}
	refresher.AssertNumberOfCalls(t, "Refresh", maxRetries)
}
