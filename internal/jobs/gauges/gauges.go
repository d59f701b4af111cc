package gauges

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/observability"
)

const refreshTimeout = 10 * time.Second

type StatsSource interface {
	GetStats(ctx context.Context) (*db.Stats, error)
}

// Job periodically publishes ledger sizes as gauges.
type Job struct {
	source   StatsSource
	schedule string
	publish  func(table string, n int)

	mu   sync.Mutex
	cron *cron.Cron
}

func New(source StatsSource, schedule string) *Job {
	return &Job{
		source:   source,
		schedule: schedule,
		publish:  observability.SetLedgerRecords,
	}
}

func (j *Job) Start(ctx context.Context) error {
	if j.schedule == "" {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.schedule, func() {
		if err := j.Refresh(context.Background()); err != nil {
			log.WithError(err).Warn("cant refresh ledger gauges")
		}
	}); err != nil {
		return err
	}
	if err := j.Refresh(ctx); err != nil {
		log.WithError(err).Warn("cant refresh ledger gauges")
	}
	c.Start()
	j.cron = c
	return nil
}

func (j *Job) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	stats, err := j.source.GetStats(ctx)
	if err != nil {
		return err
	}
	j.publish("scammers", stats.Scammers)
	j.publish("roles", stats.Staff)
	j.publish("bans", stats.Bans)
	j.publish("warns", stats.Warns)
	j.publish("mutes", stats.Mutes)
	return nil
}
