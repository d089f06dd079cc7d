package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSettlementSweeps runs the two background passes that keep the
// lifecycle moving without anyone calling in: expiring abandoned pending
// matches and advancing stale bracket matchups. The returned scheduler is
// already started; the caller shuts it down on exit.
func StartSettlementSweeps(matches *MatchService, tournaments *TournamentService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			n, err := matches.ExpireStale(time.Now())
			if err != nil {
				log.Printf("[sweep] match expiry failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[sweep] expired %d stale matches", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			n, err := tournaments.AutoAdvanceStale(time.Now())
			if err != nil {
				log.Printf("[sweep] bracket auto-advance failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[sweep] auto-advanced %d bracket matchups", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
