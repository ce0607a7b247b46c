package worker

import (
	"context"
	"time"

	"github.com/bloodlink/backend/internal/service"

	"github.com/sirupsen/logrus"
)

// RequestReminderWorker periodically re-notifies donors about urgent requests
// that have been sitting without a single accepted response.
type RequestReminderWorker struct {
	dispatchService service.DispatchService
	interval        time.Duration
	staleAfter      time.Duration
}

func NewRequestReminderWorker(dispatchService service.DispatchService, interval, staleAfter time.Duration) *RequestReminderWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &RequestReminderWorker{
		dispatchService: dispatchService,
		interval:        interval,
		staleAfter:      staleAfter,
	}
}

func (w *RequestReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Request reminder worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Request reminder worker stopped")
			return
		case <-ticker.C:
			w.remindStaleRequests(ctx)
		}
	}
}

func (w *RequestReminderWorker) remindStaleRequests(ctx context.Context) {
	logrus.Info("Starting stale request reminder sweep")

	reminded, err := w.dispatchService.RemindStaleRequests(ctx, w.staleAfter)
	if err != nil {
		logrus.Errorf("Failed to remind stale requests: %v", err)
		return
	}

	if reminded == 0 {
		logrus.Info("No stale requests found for reminding")
		return
	}

	logrus.Infof("Stale request reminder sweep completed: %d requests reminded", reminded)
}

func (w *RequestReminderWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "request_reminder",
		"interval":    w.interval.String(),
		"stale_after": w.staleAfter.String(),
		"status":      "running",
	}
}
