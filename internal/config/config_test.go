package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestProcessDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"SG_TOKEN":    "123:abc",
		"SG_OWNER_ID": "42",
		"SG_DOT_PATH": t.TempDir(),
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Owner.ID != 42 || cfg.Owner.Username != "owner" {
		t.Fatalf("unexpected owner: %+v", cfg.Owner)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.MaxRetries != 3 {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Storage.RetryMin != 200*time.Millisecond || cfg.Storage.RetryMax != 5*time.Second {
		t.Fatalf("unexpected retry window: %+v", cfg.Storage)
	}
	if cfg.Moderation.BanlistLimit != 20 {
		t.Fatalf("unexpected banlist limit: %d", cfg.Moderation.BanlistLimit)
	}
	if cfg.Observability.GaugesSchedule != "@every 1m" {
		t.Fatalf("unexpected gauges schedule: %q", cfg.Observability.GaugesSchedule)
	}
}

func TestProcessExpandsHome(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"SG_TOKEN":    "123:abc",
		"SG_OWNER_ID": "42",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if strings.HasPrefix(cfg.DotPath, "~") {
		t.Fatalf("dot path was not expanded: %s", cfg.DotPath)
	}
}

func TestProcessValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token", env: map[string]string{"SG_OWNER_ID": "1"}},
		{name: "missing owner", env: map[string]string{"SG_TOKEN": "x"}},
		{name: "postgres without url", env: map[string]string{"SG_TOKEN": "x", "SG_OWNER_ID": "1", "SG_DB_DRIVER": "postgres"}},
		{name: "unknown driver", env: map[string]string{"SG_TOKEN": "x", "SG_OWNER_ID": "1", "SG_DB_DRIVER": "mysql"}},
		{name: "zero banlist", env: map[string]string{"SG_TOKEN": "x", "SG_OWNER_ID": "1", "SG_BANLIST_LIMIT": "0"}},
		{name: "unsupported language", env: map[string]string{"SG_TOKEN": "x", "SG_OWNER_ID": "1", "SG_LANG": "de"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.env["SG_DOT_PATH"] = "/tmp/scamguard-test"
			if _, err := Process(context.Background(), envconfig.MapLookuper(tt.env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
