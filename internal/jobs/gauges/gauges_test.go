package gauges

import (
	"context"
	"errors"
	"testing"

	"github.com/iamwavecut/scamguard/internal/db"
)

type stubSource struct {
	stats *db.Stats
	err   error
}

func (s stubSource) GetStats(ctx context.Context) (*db.Stats, error) {
	return s.stats, s.err
}

func TestRefreshPublishesEveryTable(t *testing.T) {
	t.Parallel()

	job := New(stubSource{stats: &db.Stats{Scammers: 4, Staff: 2, Bans: 3, Warns: 1, Mutes: 5}}, "")
	got := map[string]int{}
	job.publish = func(table string, n int) { got[table] = n }

	if err := job.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	want := map[string]int{"scammers": 4, "roles": 2, "bans": 3, "warns": 1, "mutes": 5}
	for table, n := range want {
		if got[table] != n {
			t.Fatalf("unexpected %s gauge: got %d want %d", table, got[table], n)
		}
	}
}

func TestRefreshPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	job := New(stubSource{err: boom}, "")
	if err := job.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	job := New(stubSource{stats: &db.Stats{}}, "@every 1h")
	job.publish = func(string, int) {}
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := job.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	bad := New(stubSource{stats: &db.Stats{}}, "not a schedule")
	if err := bad.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}
