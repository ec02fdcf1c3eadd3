package apiserver

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/service"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

// DiscoveryScheduler starts a discovery sync on a jittered interval so
// freshly created webinars show up without manual triggering. Jitter keeps
// multiple replicas from hammering the platform at the same instant.
type DiscoveryScheduler struct {
	syncs    *service.SyncService
	interval time.Duration
}

func NewDiscoveryScheduler(syncs *service.SyncService, interval time.Duration) *DiscoveryScheduler {
	return &DiscoveryScheduler{syncs: syncs, interval: interval}
}

func (d *DiscoveryScheduler) Run(ctx context.Context) {
	log := zap.S().Named("scheduler")
	ticker := jitterbug.New(d.interval, &jitterbug.Norm{Stdev: 30 * time.Second})
	defer ticker.Stop()

	log.Infof("periodic discovery enabled, interval %s", d.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("discovery scheduler stopped")
			return
		case <-ticker.C:
			// Skip the tick when a sync is already in flight.
			running, err := d.syncs.ListJobs(ctx, model.JobStatusRunning, "", 1)
			if err != nil {
				log.Errorf("checking for running jobs: %s", err)
				continue
			}
			if len(running) > 0 {
				log.Debug("skipping scheduled discovery, a sync is already running")
				continue
			}

			job, err := d.syncs.StartSync(ctx, model.JobTypeDiscovery, nil)
			if err != nil {
				log.Errorf("starting scheduled discovery: %s", err)
				continue
			}
			log.Infof("scheduled discovery job %s", job.ID)
		}
	}
}
