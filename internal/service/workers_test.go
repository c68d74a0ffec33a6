package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func runInBackground(start func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		start()
	}()
	return done
}

func TestSyncWorker(t *testing.T) {
	t.Run("syncs immediately and on every tick until stopped", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		var runs atomic.Int32
		syncer := new(MockAutoSyncer)
		syncer.On("AutoSync", mock.Anything, sourceURL).
			Run(func(mock.Arguments) { runs.Add(1) }).
			Return(service.Outcome{}, service.ErrNothingToApply)
		worker := service.NewSyncWorker(syncer, sourceURL, 10*time.Millisecond)

		// when
		done := runInBackground(func() { worker.Start(context.Background()) })
		require.Eventually(t, func() bool {
			return runs.Load() >= 2
		}, time.Second, 5*time.Millisecond)
		worker.Stop()
		<-done

		// then
		syncer.AssertCalled(t, "AutoSync", mock.Anything, sourceURL)
	})

	t.Run("stops with the context and survives failures", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		syncer := new(MockAutoSyncer)
		syncer.On("AutoSync", mock.Anything, sourceURL).Return(service.Outcome{}, errors.New("source down"))
		worker := service.NewSyncWorker(syncer, sourceURL, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())

		// when
		done := runInBackground(func() { worker.Start(ctx) })
		cancel()
		<-done

		// then
		syncer.AssertNumberOfCalls(t, "AutoSync", 1)
	})
}

func TestNotificationWorker(t *testing.T) {
	first := model.InventoryMessage{Action: model.InventoryActionSynced, Source: "one", TotalChanges: 1}
	second := model.InventoryMessage{Action: model.InventoryActionEdited, Source: "two", TotalChanges: 1}

	t.Run("retries failed messages in order", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		var published atomic.Int32
		count := func(mock.Arguments) { published.Add(1) }
		publisher := new(MockPublisher)
		publisher.On("PublishInventoryMessage", mock.Anything, first).Run(count).Return(errors.New("throttled")).Once()
		publisher.On("PublishInventoryMessage", mock.Anything, first).Run(count).Return(nil)
		publisher.On("PublishInventoryMessage", mock.Anything, second).Run(count).Return(nil)
		worker := service.NewNotificationWorker(publisher, 10*time.Millisecond)
		worker.Enqueue(first)
		worker.Enqueue(second)

		// when
		done := runInBackground(func() { worker.Start(context.Background()) })
		require.Eventually(t, func() bool {
			return published.Load() == 3 && worker.Pending() == 0
		}, time.Second, 5*time.Millisecond)
		worker.Stop()
		<-done

		// then
		var sources []string
		for _, call := range publisher.Calls {
			sources = append(sources, call.Arguments.Get(1).(model.InventoryMessage).Source)
		}
		assert.Equal(t, []string{"one", "one", "two"}, sources)
	})

	t.Run("flushes pending messages on stop", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		publisher := new(MockPublisher)
		publisher.On("PublishInventoryMessage", mock.Anything, mock.Anything).Return(nil)
		worker := service.NewNotificationWorker(publisher, time.Hour)
		worker.Enqueue(first)

		// when
		done := runInBackground(func() { worker.Start(context.Background()) })
		worker.Stop()
		<-done

		// then
		publisher.AssertNumberOfCalls(t, "PublishInventoryMessage", 1)
		assert.Equal(t, 0, worker.Pending())
	})

	t.Run("keeps undelivered messages when the final flush fails", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		publisher := new(MockPublisher)
		publisher.On("PublishInventoryMessage", mock.Anything, mock.Anything).Return(errors.New("queue gone"))
		worker := service.NewNotificationWorker(publisher, time.Hour)
		worker.Enqueue(first)
		worker.Enqueue(second)
		ctx, cancel := context.WithCancel(context.Background())

		// when
		done := runInBackground(func() { worker.Start(ctx) })
		cancel()
		<-done

		// then
		publisher.AssertNumberOfCalls(t, "PublishInventoryMessage", 1)
		assert.Equal(t, 2, worker.Pending())
	})
}

func TestBackupSweeper(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		// when
		_, err := service.NewBackupSweeper(new(MockSweeper), "every tuesday")

		// then
		assert.ErrorContains(t, err, "invalid backup sweep schedule")
	})

	t.Run("runs sweeps on schedule", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		// given
		var sweeps atomic.Int32
		sweeper := new(MockSweeper)
		sweeper.On("SweepBackups", mock.Anything).
			Run(func(mock.Arguments) { sweeps.Add(1) }).
			Return(repository.SweepReport{}, nil)
		s, err := service.NewBackupSweeper(sweeper, "@every 1s")
		require.NoError(t, err)

		// when
		s.Start()
		require.Eventually(t, func() bool {
			return sweeps.Load() >= 1
		}, 3*time.Second, 50*time.Millisecond)
		s.Stop()

		// then
		sweeper.AssertCalled(t, "SweepBackups", mock.Anything)
	})

	t.Run("accepts a seconds field", func(t *testing.T) {
		// when
		_, err := service.NewBackupSweeper(new(MockSweeper), "0 30 3 * * *")

		// then
		assert.NoError(t, err)
	})
}
