package application

import (
	"context"
	"time"

	"github.com/custodix/custodiad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// TimeoutWatcher periodically reports unanswered requests whose answer
// timeout elapsed. It is observational only: the state machine moves
// exclusively through calls, the watcher just surfaces requests that became
// escalation-eligible.
type TimeoutWatcher struct {
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	interval    time.Duration
}

func NewTimeoutWatcher(
	repoManager ports.RepoManager, scheduler ports.SchedulerService, interval time.Duration,
) *TimeoutWatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TimeoutWatcher{
		repoManager: repoManager,
		scheduler:   scheduler,
		interval:    interval,
	}
}

func (w *TimeoutWatcher) Start() error {
	w.scheduler.Start()
	return w.scheduler.ScheduleTaskRepeated(w.interval, w.scan)
}

func (w *TimeoutWatcher) Stop() {
	w.scheduler.Stop()
}

func (w *TimeoutWatcher) scan() {
	ctx := context.Background()
	expired, err := w.repoManager.Requests().GetExpiredInitial(ctx, time.Now().Unix())
	if err != nil {
		log.WithError(err).Warn("timeout watcher failed to list expired requests")
		return
	}
	for _, request := range expired {
		log.WithFields(log.Fields{
			"token":     request.SubjectTokenId,
			"request":   request.Id,
			"type":      request.Type.String(),
			"timeoutAt": request.TimeoutAt,
		}).Info("request answer timeout elapsed, escalation now possible")
	}
}
