package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/store"
)

// Janitor periodically prunes expired drafts from the store.
type Janitor struct {
	scheduler *gocron.Scheduler
	store     *store.MemoryStore
	interval  time.Duration
}

// New creates a new Janitor.
func New(drafts *store.MemoryStore, interval time.Duration) *Janitor {
	s := gocron.NewScheduler(time.UTC)
	return &Janitor{
		scheduler: s,
		store:     drafts,
		interval:  interval,
	}
}

// Start schedules the periodic prune job and starts the underlying
// scheduler.
func (j *Janitor) Start() error {
	minutes := int(j.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := j.scheduler.Every(minutes).Minutes().Do(func() {
		if dropped := j.store.PruneExpired(time.Now()); dropped > 0 {
			log.Printf("janitor: pruned %d expired drafts", dropped)
		}
	})
	if err != nil {
		return err
	}

	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
