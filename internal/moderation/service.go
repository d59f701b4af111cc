package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
	"github.com/iamwavecut/scamguard/internal/observability"
	"github.com/iamwavecut/scamguard/internal/policy/permissions"
)

const defaultBanlistLimit = 20

type store interface {
	WithinTx(ctx context.Context, username string, fn func(ctx context.Context, ledger db.Ledger) error) error
	InsertBan(ctx context.Context, ban *db.Ban) error
	InsertMute(ctx context.Context, mute *db.Mute) error
	DeleteBansByUsername(ctx context.Context, username string) (int64, error)
	DeleteMutesByUsername(ctx context.Context, username string) (int64, error)
	ListBans(ctx context.Context, limit int) ([]*db.Ban, error)
	ListWarns(ctx context.Context, username string) ([]*db.Warn, error)
}

type (
	// Action is a sanction request issued by ActorID in ChatID.
	Action struct {
		ActorID int64
		ChatID  int64
		Target  string
		Reason  string
	}

	MuteAction struct {
		Action
		Duration string
	}
)

type Service struct {
	store        store
	gate         *permissions.Gate
	now          func() time.Time
	banlistLimit int
	logger       *log.Entry
}

func NewService(store store, gate *permissions.Gate, banlistLimit int) *Service {
	if banlistLimit <= 0 {
		banlistLimit = defaultBanlistLimit
	}
	return &Service{
		store:        store,
		gate:         gate,
		now:          func() time.Time { return time.Now().UTC() },
		banlistLimit: banlistLimit,
		logger:       log.WithField("service", "moderation"),
	}
}

func (s *Service) Ban(ctx context.Context, a Action) (*db.Ban, error) {
	target, err := s.prepare(ctx, a)
	if err != nil {
		return nil, err
	}

	ban := &db.Ban{
		Username: target,
		Reason:   a.Reason,
		BannedBy: a.ActorID,
		ChatID:   a.ChatID,
		BannedAt: s.now(),
	}
	if err := s.store.InsertBan(ctx, ban); err != nil {
		return nil, fmt.Errorf("ban @%s: %w", target, err)
	}

	observability.RecordModerationAction("ban")
	s.logger.WithFields(log.Fields{"target": target, "actor": a.ActorID, "chat": a.ChatID}).Info("user banned")
	return ban, nil
}

func (s *Service) Unban(ctx context.Context, actorID int64, username string) error {
	target, err := s.prepareTarget(ctx, actorID, username)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteBansByUsername(ctx, target)
	if err != nil {
		return fmt.Errorf("unban @%s: %w", target, err)
	}
	if removed == 0 {
		return fmt.Errorf("ban of @%s: %w", target, apperrors.ErrNotFound)
	}

	observability.RecordModerationAction("unban")
	s.logger.WithFields(log.Fields{"target": target, "actor": actorID, "removed": removed}).Info("user unbanned")
	return nil
}

// Warn records a warn and evaluates the auto-ban in the same transaction, so
// concurrent warns on one target cannot both escalate.
func (s *Service) Warn(ctx context.Context, a Action) (*Escalation, error) {
	target, err := s.validate(ctx, a)
	if err != nil {
		return nil, err
	}

	warn := &db.Warn{
		Username: target,
		Reason:   a.Reason,
		WarnedBy: a.ActorID,
		ChatID:   a.ChatID,
		WarnedAt: s.now(),
	}

	var result *Escalation
	err = s.store.WithinTx(ctx, target, func(ctx context.Context, ledger db.Ledger) error {
		if err := permissions.GuardTargetWith(ctx, ledger, target); err != nil {
			return err
		}
		if err := ledger.InsertWarn(ctx, warn); err != nil {
			return fmt.Errorf("insert warn: %w", err)
		}
		var err error
		result, err = Escalate(ctx, ledger, warn, warn.WarnedAt)
		return err
	})
	if apperrors.IsDomain(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("warn @%s: %w", target, err)
	}

	observability.RecordModerationAction("warn")
	entry := s.logger.WithFields(log.Fields{"target": target, "actor": a.ActorID, "chat": a.ChatID, "warns": result.Count})
	if result.AutoBanned {
		entry.Info("warn threshold reached, user auto-banned")
	} else {
		entry.Info("user warned")
	}
	return result, nil
}

// Mute records a mute with its expiry; nothing lifts it automatically.
func (s *Service) Mute(ctx context.Context, a MuteAction) (*db.Mute, error) {
	if _, err := s.gate.Authorize(ctx, a.ActorID, db.RoleAdmin); err != nil {
		return nil, err
	}
	target, err := requireTarget(a.Target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Reason) == "" {
		return nil, fmt.Errorf("mute reason: %w", apperrors.ErrMalformedArguments)
	}
	now := s.now()
	unmuteAt, err := MuteExpiry(a.Duration, now)
	if err != nil {
		return nil, err
	}
	if err := s.gate.GuardTarget(ctx, target); err != nil {
		return nil, err
	}

	mute := &db.Mute{
		Username: target,
		Reason:   a.Reason,
		MutedBy:  a.ActorID,
		ChatID:   a.ChatID,
		MutedAt:  now,
		UnmuteAt: &unmuteAt,
	}
	if err := s.store.InsertMute(ctx, mute); err != nil {
		return nil, fmt.Errorf("mute @%s: %w", target, err)
	}

	observability.RecordModerationAction("mute")
	s.logger.WithFields(log.Fields{"target": target, "actor": a.ActorID, "until": unmuteAt}).Info("user muted")
	return mute, nil
}

func (s *Service) Unmute(ctx context.Context, actorID int64, username string) error {
	target, err := s.prepareTarget(ctx, actorID, username)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteMutesByUsername(ctx, target)
	if err != nil {
		return fmt.Errorf("unmute @%s: %w", target, err)
	}
	if removed == 0 {
		return fmt.Errorf("mute of @%s: %w", target, apperrors.ErrNotFound)
	}

	observability.RecordModerationAction("unmute")
	s.logger.WithFields(log.Fields{"target": target, "actor": actorID, "removed": removed}).Info("user unmuted")
	return nil
}

// Warns lists the target's warns, newest first.
func (s *Service) Warns(ctx context.Context, actorID int64, username string) ([]*db.Warn, error) {
	target, err := s.prepareTarget(ctx, actorID, username)
	if err != nil {
		return nil, err
	}
	warns, err := s.store.ListWarns(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("list warns of @%s: %w", target, err)
	}
	if len(warns) == 0 {
		return nil, fmt.Errorf("warns of @%s: %w", target, apperrors.ErrNotFound)
	}
	return warns, nil
}

func (s *Service) Banlist(ctx context.Context, actorID int64) ([]*db.Ban, error) {
	if _, err := s.gate.Authorize(ctx, actorID, db.RoleAdmin); err != nil {
		return nil, err
	}
	bans, err := s.store.ListBans(ctx, s.banlistLimit)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return bans, nil
}

func (s *Service) BanlistLimit() int {
	return s.banlistLimit
}

// prepare runs every check a ledger insert needs, in order: actor role,
// argument shape, protected target.
func (s *Service) prepare(ctx context.Context, a Action) (string, error) {
	target, err := s.validate(ctx, a)
	if err != nil {
		return "", err
	}
	if err := s.gate.GuardTarget(ctx, target); err != nil {
		return "", err
	}
	return target, nil
}

// validate checks the actor, target and reason but not target protection.
func (s *Service) validate(ctx context.Context, a Action) (string, error) {
	target, err := s.prepareTarget(ctx, a.ActorID, a.Target)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Reason) == "" {
		return "", fmt.Errorf("reason: %w", apperrors.ErrMalformedArguments)
	}
	return target, nil
}

func (s *Service) prepareTarget(ctx context.Context, actorID int64, username string) (string, error) {
	if _, err := s.gate.Authorize(ctx, actorID, db.RoleAdmin); err != nil {
		return "", err
	}
	return requireTarget(username)
}

func requireTarget(username string) (string, error) {
	target := db.NormalizeUsername(username)
	if target == "" || strings.ContainsAny(target, " \t\n") {
		return "", fmt.Errorf("target %q: %w", username, apperrors.ErrMalformedArguments)
	}
	return target, nil
}
