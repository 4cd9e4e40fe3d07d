package tracker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"warroom/db"
	"warroom/youtube"
)

// Scheduler re-syncs stale YouTube accounts on a cron schedule so stats
// stay fresh without anyone pressing the sync button.
type Scheduler struct {
	DB     *db.CompatDB
	Syncer *Syncer

	// Accounts synced less recently than this are due.
	StaleAfter time.Duration

	cron *cron.Cron
}

// Start registers the job and begins the cron loop. spec is a standard
// five-field cron expression or a descriptor like "@every 6h".
func (s *Scheduler) Start(spec string) error {
	if s.StaleAfter <= 0 {
		s.StaleAfter = 6 * time.Hour
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := db.FormatTime(time.Now().Add(-s.StaleAfter))
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id FROM tracked_accounts
		 WHERE platform = 'youtube' AND (last_synced_at IS NULL OR last_synced_at < ?)
		 ORDER BY last_synced_at LIMIT 20`, cutoff)
	if err != nil {
		log.Printf("scheduler: list stale accounts: %v", err)
		return
	}
	defer rows.Close()

	type due struct{ id, userID string }
	var batch []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.id, &d.userID); err == nil {
			batch = append(batch, d)
		}
	}

	for _, d := range batch {
		n, err := s.Syncer.SyncAccount(ctx, d.userID, d.id)
		if err != nil {
			if errors.Is(err, youtube.ErrNotConfigured) {
				continue
			}
			log.Printf("scheduler: sync account %s: %v", d.id, err)
			continue
		}
		log.Printf("scheduler: synced account %s (%d videos)", d.id, n)
	}
}
