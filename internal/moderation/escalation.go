package moderation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/observability"
)

// WarnThreshold is the number of warns that trips an automatic ban. Tripping
// it clears the target's warn history completely.
const WarnThreshold = 3

type Escalation struct {
	Count      int
	Threshold  int
	AutoBanned bool
	Ban        *db.Ban
}

func AutoBanReason(lastReason string) string {
	return fmt.Sprintf("Auto-ban for %d warns (last: %s)", WarnThreshold, lastReason)
}

// Escalate re-evaluates the ledger after warn has been stored. The decision is
// derived from the current warn count only, so calling it again without a new
// warn changes nothing.
func Escalate(ctx context.Context, ledger db.Ledger, warn *db.Warn, now time.Time) (*Escalation, error) {
	ctx, span := otel.Tracer("scamguard/moderation").Start(ctx, "escalate")
	defer span.End()
	span.SetAttributes(attribute.String("target", warn.Username))

	count, err := ledger.CountWarns(ctx, warn.Username)
	if err != nil {
		return nil, fmt.Errorf("count warns: %w", err)
	}
	span.SetAttributes(attribute.Int("warns", count))

	result := &Escalation{Count: count, Threshold: WarnThreshold}
	if count < WarnThreshold {
		return result, nil
	}

	ban := &db.Ban{
		Username: warn.Username,
		Reason:   AutoBanReason(warn.Reason),
		BannedBy: warn.WarnedBy,
		ChatID:   warn.ChatID,
		BannedAt: now,
	}
	if err := ledger.InsertBan(ctx, ban); err != nil {
		return nil, fmt.Errorf("insert auto-ban: %w", err)
	}
	if _, err := ledger.DeleteWarnsByUsername(ctx, warn.Username); err != nil {
		return nil, fmt.Errorf("reset warns: %w", err)
	}

	observability.RecordAutoBan()
	span.SetAttributes(attribute.Bool("auto_banned", true))
	result.AutoBanned = true
	result.Ban = ban
	return result, nil
}
