package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iamwavecut/tool"

	apperrors "github.com/iamwavecut/scamguard/internal/errors"
	"github.com/iamwavecut/scamguard/internal/i18n"
	"github.com/iamwavecut/scamguard/internal/moderation"
)

const timeLayout = "2006-01-02 15:04"

func (c *Commands) action(r *request, target, reason string) moderation.Action {
	return moderation.Action{
		ActorID: r.user.ID,
		ChatID:  r.chat.ID,
		Target:  target,
		Reason:  reason,
	}
}

func (c *Commands) ban(ctx context.Context, r *request) error {
	target, reason, err := splitTarget(r.args)
	if err != nil || reason == "" {
		c.reply(r, usageText(r))
		return nil
	}
	ban, err := c.moderation.Ban(ctx, c.action(r, target, reason))
	if err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(i18n.Get("✅ User @%s has been banned!\nReason: %s", r.lang), ban.Username, ban.Reason))
	return nil
}

func (c *Commands) unban(ctx context.Context, r *request) error {
	target, rest, err := splitTarget(r.args)
	if err != nil || rest != "" {
		c.reply(r, usageText(r))
		return nil
	}
	err = c.moderation.Unban(ctx, r.user.ID, target)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.reply(r, fmt.Sprintf(i18n.Get("❌ User @%s was not found in the ban list.", r.lang), target))
		return nil
	case err != nil:
		return err
	}
	c.reply(r, fmt.Sprintf(i18n.Get("✅ User @%s has been unbanned!", r.lang), target))
	return nil
}

func (c *Commands) warn(ctx context.Context, r *request) error {
	target, reason, err := splitTarget(r.args)
	if err != nil || reason == "" {
		c.reply(r, usageText(r))
		return nil
	}
	result, err := c.moderation.Warn(ctx, c.action(r, target, reason))
	if err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(
		i18n.Get("⚠️ User @%s received a warn!\nReason: %s\nTotal warns: %d/%d", r.lang),
		target, reason, result.Count, result.Threshold,
	))
	if result.AutoBanned {
		c.reply(r, fmt.Sprintf(
			i18n.Get("🚨 AUTOMATIC BAN!\nUser @%s was banned for %d warns.\nLast warn reason: %s", r.lang),
			target, result.Threshold, reason,
		))
	}
	return nil
}

func (c *Commands) mute(ctx context.Context, r *request) error {
	target, rest, err := splitTarget(r.args)
	if err != nil {
		c.reply(r, usageText(r))
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		c.reply(r, usageText(r))
		return nil
	}
	duration := fields[0]
	reason := strings.TrimSpace(strings.TrimPrefix(rest, duration))

	mute, err := c.moderation.Mute(ctx, moderation.MuteAction{
		Action:   c.action(r, target, reason),
		Duration: duration,
	})
	if err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(
		i18n.Get("🔇 User @%s has been muted for %s!\nReason: %s", r.lang),
		mute.Username, duration, mute.Reason,
	))
	return nil
}

func (c *Commands) unmute(ctx context.Context, r *request) error {
	target, rest, err := splitTarget(r.args)
	if err != nil || rest != "" {
		c.reply(r, usageText(r))
		return nil
	}
	err = c.moderation.Unmute(ctx, r.user.ID, target)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.reply(r, fmt.Sprintf(i18n.Get("❌ User @%s is not muted.", r.lang), target))
		return nil
	case err != nil:
		return err
	}
	c.reply(r, fmt.Sprintf(i18n.Get("🔊 User @%s has been unmuted!", r.lang), target))
	return nil
}

func (c *Commands) warns(ctx context.Context, r *request) error {
	target, rest, err := splitTarget(r.args)
	if err != nil || rest != "" {
		c.reply(r, usageText(r))
		return nil
	}
	warns, err := c.moderation.Warns(ctx, r.user.ID, target)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.reply(r, fmt.Sprintf(i18n.Get("✅ User @%s has no warns.", r.lang), target))
		return nil
	case err != nil:
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(i18n.Get("⚠️ Warns of @%s (%d/%d):", r.lang), target, len(warns), moderation.WarnThreshold))
	for _, w := range warns {
		sb.WriteString("\n")
		sb.WriteString(formatEntry(w.WarnedAt.Format(timeLayout), w.Reason))
	}
	c.reply(r, sb.String())
	return nil
}

func (c *Commands) banlist(ctx context.Context, r *request) error {
	bans, err := c.moderation.Banlist(ctx, r.user.ID)
	if err != nil {
		return err
	}
	if len(bans) == 0 {
		c.reply(r, i18n.Get("📋 The ban list is empty", r.lang))
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(i18n.Get("🔨 BAN LIST (latest %d):", r.lang), c.moderation.BanlistLimit()))
	for _, b := range bans {
		sb.WriteString("\n")
		sb.WriteString(formatEntry("@"+b.Username, b.Reason, b.BannedAt.Format(timeLayout)))
	}
	c.reply(r, sb.String())
	return nil
}

func formatEntry(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if !tool.In(p, "", "@") {
			kept = append(kept, p)
		}
	}
	return "• " + strings.Join(kept, " | ")
}

