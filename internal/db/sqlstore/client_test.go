package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

func TestRoles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.SeedRole(ctx, &db.RoleRecord{UserID: 1, Username: "boss", Role: db.RoleOwner}); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	if err := client.SeedRole(ctx, &db.RoleRecord{UserID: 1, Username: "other", Role: db.RoleOwner}); err != nil {
		t.Fatalf("reseed owner: %v", err)
	}
	rec, err := client.GetRole(ctx, 1)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if rec == nil || rec.Username != "boss" || rec.Role != db.RoleOwner {
		t.Fatalf("seed must not overwrite, got %+v", rec)
	}

	if err := client.InsertRole(ctx, &db.RoleRecord{UserID: 2, Username: "mod", Role: db.RoleAdmin}); err != nil {
		t.Fatalf("insert admin: %v", err)
	}
	t.Run("duplicate id", func(t *testing.T) {
		err := client.InsertRole(ctx, &db.RoleRecord{UserID: 2, Username: "fresh", Role: db.RoleAdmin})
		if !errors.Is(err, apperrors.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})
	t.Run("duplicate username", func(t *testing.T) {
		err := client.InsertRole(ctx, &db.RoleRecord{UserID: 3, Username: "mod", Role: db.RoleOwner})
		if !errors.Is(err, apperrors.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	missing, err := client.GetRole(ctx, 42)
	if err != nil || missing != nil {
		t.Fatalf("expected no record, got %+v, %v", missing, err)
	}

	byName, err := client.GetRoleByUsername(ctx, "@MOD")
	if err != nil {
		t.Fatalf("get role by username: %v", err)
	}
	if byName == nil || byName.UserID != 2 || byName.Role != db.RoleAdmin {
		t.Fatalf("unexpected record by username: %+v", byName)
	}

	if err := client.RefreshRoleUsername(ctx, 2, "moderator"); err != nil {
		t.Fatalf("refresh username: %v", err)
	}
	if rec, _ := client.GetRoleByUsername(ctx, "mod"); rec != nil {
		t.Fatalf("old username still resolves: %+v", rec)
	}

	if err := client.UpsertRole(ctx, &db.RoleRecord{UserID: 2, Username: "moderator", Role: db.RoleOwner}); err != nil {
		t.Fatalf("upsert role: %v", err)
	}
	roles, err := client.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	for _, r := range roles {
		if r.Role != db.RoleOwner {
			t.Fatalf("expected owners only, got %+v", r)
		}
	}
}

func TestUserRoleIsNotPersistable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	err := client.InsertRole(context.Background(), &db.RoleRecord{UserID: 5, Username: "someone", Role: db.RoleUser})
	if err == nil {
		t.Fatalf("expected an error for a user role")
	}
}

func TestScammers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	scammer := &db.Scammer{
		UserID:   100,
		Username: "crook",
		Proof:    "https://t.me/proof/1",
		AddedBy:  1,
		Category: "Fake seller",
		AddedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := client.InsertScammer(ctx, scammer); err != nil {
		t.Fatalf("insert scammer: %v", err)
	}
	if scammer.ID == 0 {
		t.Fatalf("expected an id to be assigned")
	}

	tests := []struct {
		name    string
		scammer *db.Scammer
	}{
		{"same id", &db.Scammer{UserID: 100, Username: "other", Proof: "p", AddedBy: 1, AddedAt: time.Now()}},
		{"same username", &db.Scammer{UserID: 101, Username: "crook", Proof: "p", AddedBy: 1, AddedAt: time.Now()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.InsertScammer(ctx, tt.scammer)
			if !errors.Is(err, apperrors.ErrDuplicateKey) {
				t.Fatalf("expected ErrDuplicateKey, got %v", err)
			}
		})
	}

	byID, err := client.FindScammerByID(ctx, 100)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID == nil || byID.Username != "crook" || byID.Category != "Fake seller" {
		t.Fatalf("unexpected scammer: %+v", byID)
	}

	byName, err := client.FindScammerByUsername(ctx, "@Crook")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byName == nil || byName.UserID != 100 {
		t.Fatalf("unexpected scammer: %+v", byName)
	}

	none, err := client.FindScammerByUsername(ctx, "nobody")
	if err != nil || none != nil {
		t.Fatalf("expected no scammer, got %+v, %v", none, err)
	}
}

func TestSanctionsLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)
	now := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		ban := &db.Ban{Username: "spammer", Reason: fmt.Sprintf("reason %d", i), BannedBy: 2, ChatID: -100, BannedAt: now}
		if err := client.InsertBan(ctx, ban); err != nil {
			t.Fatalf("insert ban: %v", err)
		}
	}
	bans, err := client.ListBans(ctx, 2)
	if err != nil {
		t.Fatalf("list bans: %v", err)
	}
	if len(bans) != 2 || bans[0].Reason != "reason 3" || bans[1].Reason != "reason 2" {
		t.Fatalf("expected the two newest bans first, got %+v", bans)
	}

	for _, reason := range []string{"first", "second"} {
		if err := client.InsertWarn(ctx, &db.Warn{Username: "spammer", Reason: reason, WarnedBy: 2, ChatID: -100, WarnedAt: now}); err != nil {
			t.Fatalf("insert warn: %v", err)
		}
	}
	count, err := client.CountWarns(ctx, "spammer")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 warns, got %d, %v", count, err)
	}
	warns, err := client.ListWarns(ctx, "spammer")
	if err != nil || len(warns) != 2 || warns[0].Reason != "second" {
		t.Fatalf("unexpected warns: %+v, %v", warns, err)
	}

	until := now.Add(time.Hour)
	if err := client.InsertMute(ctx, &db.Mute{Username: "spammer", Reason: "flood", MutedBy: 2, ChatID: -100, MutedAt: now, UnmuteAt: &until}); err != nil {
		t.Fatalf("insert mute: %v", err)
	}

	stats, err := client.GetStats(ctx)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Bans != 3 || stats.Warns != 2 || stats.Mutes != 1 || stats.Scammers != 0 || stats.Staff != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	removed, err := client.DeleteMutesByUsername(ctx, "spammer")
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 mute removed, got %d, %v", removed, err)
	}
	removed, err = client.DeleteBansByUsername(ctx, "spammer")
	if err != nil || removed != 3 {
		t.Fatalf("expected 3 bans removed, got %d, %v", removed, err)
	}
	removed, err = client.DeleteWarnsByUsername(ctx, "spammer")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 warns removed, got %d, %v", removed, err)
	}
	removed, err = client.DeleteBansByUsername(ctx, "spammer")
	if err != nil || removed != 0 {
		t.Fatalf("expected nothing removed, got %d, %v", removed, err)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)
	boom := errors.New("boom")

	err := client.WithinTx(ctx, "spammer", func(ctx context.Context, ledger db.Ledger) error {
		if err := ledger.InsertWarn(ctx, &db.Warn{Username: "spammer", Reason: "r", WarnedBy: 2, ChatID: -1, WarnedAt: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	count, err := client.CountWarns(ctx, "spammer")
	if err != nil {
		t.Fatalf("count warns: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, got %d warns", count)
	}

	err = client.WithinTx(ctx, "spammer", func(ctx context.Context, ledger db.Ledger) error {
		return ledger.InsertWarn(ctx, &db.Warn{Username: "spammer", Reason: "r", WarnedBy: 2, ChatID: -1, WarnedAt: time.Now()})
	})
	if err != nil {
		t.Fatalf("commit tx: %v", err)
	}
	if count, _ := client.CountWarns(ctx, "spammer"); count != 1 {
		t.Fatalf("expected 1 committed warn, got %d", count)
	}
}

func TestWithinTxLedgerResolvesRoles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)
	if err := client.InsertRole(ctx, &db.RoleRecord{UserID: 1, Username: "boss", Role: db.RoleOwner}); err != nil {
		t.Fatalf("insert owner: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- client.WithinTx(ctx, "boss", func(ctx context.Context, ledger db.Ledger) error {
			rec, err := ledger.GetRoleByUsername(ctx, "@BOSS")
			if err != nil {
				return err
			}
			if rec == nil || rec.UserID != 1 || rec.Role != db.RoleOwner {
				return fmt.Errorf("unexpected role: %+v", rec)
			}
			if rec, err := ledger.GetRoleByUsername(ctx, ""); err != nil || rec != nil {
				return fmt.Errorf("empty username resolved to %+v, %v", rec, err)
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("within tx: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("role lookup inside the transaction blocked")
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxRetries: 2, Min: time.Millisecond, Max: 2 * time.Millisecond}
	transient := errors.New("database is locked")

	tests := []struct {
		name         string
		err          error
		wantAttempts int
		wantStorage  bool
		wantDomain   error
	}{
		{name: "transient exhausts retries", err: transient, wantAttempts: 3, wantStorage: true},
		{name: "permanent fails once", err: errors.New("syntax error"), wantAttempts: 1, wantStorage: true},
		{name: "domain passes through", err: fmt.Errorf("x: %w", apperrors.ErrDuplicateKey), wantAttempts: 1, wantDomain: apperrors.ErrDuplicateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &sqlClient{retry: policy}
			attempts := 0
			err := c.do(context.Background(), "test", func(ctx context.Context) error {
				attempts++
				return tt.err
			})
			if attempts != tt.wantAttempts {
				t.Fatalf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
			if tt.wantStorage && !errors.Is(err, apperrors.ErrStorage) {
				t.Fatalf("expected ErrStorage, got %v", err)
			}
			if tt.wantDomain != nil {
				if !errors.Is(err, tt.wantDomain) || errors.Is(err, apperrors.ErrStorage) {
					t.Fatalf("expected bare domain error, got %v", err)
				}
			}
		})
	}
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	c := &sqlClient{retry: RetryPolicy{MaxRetries: 3, Min: time.Millisecond, Max: time.Millisecond}}
	attempts := 0
	err := c.do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoInsertRetriesOnlyUnsentStatements(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxRetries: 2, Min: time.Millisecond, Max: 2 * time.Millisecond}
	tests := []struct {
		name         string
		err          error
		wantAttempts int
	}{
		{name: "bad conn retried", err: fmt.Errorf("exec: %w", driver.ErrBadConn), wantAttempts: 3},
		{name: "sqlite busy retried", err: errors.New("SQLITE_BUSY: database is locked"), wantAttempts: 3},
		{name: "connection reset fails once", err: errors.New("read: connection reset by peer"), wantAttempts: 1},
		{name: "unexpected eof fails once", err: errors.New("unexpected EOF"), wantAttempts: 1},
		{name: "net error fails once", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}, wantAttempts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &sqlClient{retry: policy}
			attempts := 0
			err := c.doInsert(context.Background(), "insert ban", func(ctx context.Context) error {
				attempts++
				return tt.err
			})
			if attempts != tt.wantAttempts {
				t.Fatalf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
			if !errors.Is(err, apperrors.ErrStorage) {
				t.Fatalf("expected ErrStorage, got %v", err)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
		safe      bool
		unique    bool
	}{
		{name: "nil", err: nil},
		{name: "sqlite busy", err: errors.New("SQLITE_BUSY: database is locked"), transient: true, safe: true},
		{name: "bad conn", err: driver.ErrBadConn, transient: true, safe: true},
		{name: "connection reset", err: errors.New("connection reset by peer"), transient: true},
		{name: "pg connection failure", err: &pgconn.PgError{Code: "08006"}, transient: true},
		{name: "pg serialization", err: &pgconn.PgError{Code: "40001"}, transient: true},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505"}, unique: true},
		{name: "sqlite unique", err: errors.New("constraint failed: UNIQUE constraint failed: scammers.user_id (2067)"), unique: true},
		{name: "plain", err: errors.New("no such table: bans")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isTransient(tt.err); got != tt.transient {
				t.Fatalf("isTransient = %v, want %v", got, tt.transient)
			}
			if got := isSafeToRetry(tt.err); got != tt.safe {
				t.Fatalf("isSafeToRetry = %v, want %v", got, tt.safe)
			}
			if got := isUniqueViolation(tt.err); got != tt.unique {
				t.Fatalf("isUniqueViolation = %v, want %v", got, tt.unique)
			}
		})
	}
}
