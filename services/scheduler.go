package services

import (
	"context"
	"log"

	"github.com/go-co-op/gocron/v2"
)

// StartAutoSyncScheduler runs a nightly incremental Concept2 sync for every
// member who opted in. Individual failures are logged, never fatal.
func (s *SyncService) StartAutoSyncScheduler(ctx context.Context) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[SCHEDULER] failed to create scheduler: %v", err)
		return
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			log.Println("[SCHEDULER] nightly Concept2 auto-sync starting")
			s.SyncLinkedProfiles(ctx)
		}),
	)
	if err != nil {
		log.Printf("[SCHEDULER] failed to register auto-sync job: %v", err)
		return
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
