package handlers

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/scamguard/internal/badge"
	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/i18n"
	"github.com/iamwavecut/scamguard/internal/registry"
)

const maxCaptionLength = 1024

func (c *Commands) start(ctx context.Context, r *request) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		i18n.Get("🛡️ Scammer database is active in chat \"%s\"!\n\n👤 Your status: %s\n\n", r.lang),
		r.chat.Title,
		roleTitle(r.role, r.lang),
	))
	sb.WriteString(i18n.Get("📝 Main commands:\n• /check @username - Check a user\n• /check 123456789 - Check by ID\n• /stats - Database statistics\n• /list_admins - List the staff\n• /help - Command reference\n", r.lang))
	if r.role.AtLeast(db.RoleAdmin) {
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("👮 Moderation commands:\n• /ban @username reason - Ban a user\n• /unban @username - Unban a user\n• /warn @username reason - Give a warn\n• /mute @username duration reason - Mute a user\n• /unmute @username - Unmute a user\n• /warns @username - Show warns\n• /banlist - Ban list\n• /add_scammer user_id @username|proof|category - Add a scammer\n", r.lang))
	}
	if r.role.AtLeast(db.RoleOwner) {
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("👑 Owner commands:\n• /add_admin user_id @username - Add an administrator\n• /add_owner user_id @username - Add an owner\n", r.lang))
	}
	c.reply(r, sb.String())
	return nil
}

func (c *Commands) help(ctx context.Context, r *request) error {
	var sb strings.Builder
	sb.WriteString(i18n.Get("📖 Scammer database command reference:\n\n", r.lang))
	sb.WriteString(i18n.Get("👤 Basic commands:\n• /start - Start the bot\n• /check @username - Check a user\n• /check 123456789 - Check by ID\n• /stats - Database statistics\n• /list_admins - List the staff\n• /help - This reference\n", r.lang))
	if r.role.AtLeast(db.RoleAdmin) {
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("👮 Moderation commands:\n• /ban @username reason - Ban a user\n• /unban @username - Unban a user\n• /warn @username reason - Give a warn\n• /mute @username duration reason - Mute a user\n• /unmute @username - Unmute a user\n• /warns @username - Show warns\n• /banlist - Ban list\n• /add_scammer user_id @username|proof|category - Add a scammer\n", r.lang))
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("⚠️ Sanctions cannot be applied to the owner!\n\nExamples:\n/ban @username Spam\n/warn @username Insults\n/mute @username 1h Flood\n/mute @username 30m Ads\n", r.lang))
	}
	if r.role.AtLeast(db.RoleOwner) {
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("👑 Owner commands:\n• /add_admin user_id @username - Add an administrator\n• /add_owner user_id @username - Add an owner\n", r.lang))
	}
	c.reply(r, sb.String())
	return nil
}

func (c *Commands) check(ctx context.Context, r *request) error {
	fields := strings.Fields(r.args)
	if len(fields) == 0 {
		c.reply(r, usageText(r))
		return nil
	}
	res, q, err := c.registry.Classify(ctx, fields[0])
	if err != nil {
		return err
	}
	r.entry.WithField("query", q.String()).WithField("status", res.Status).Debug("lookup")

	var lines []string
	switch res.Status {
	case registry.StatusScammer:
		s := res.Scammer
		lines = append(lines,
			i18n.Get("🚨 FOUND IN THE SCAMMER DATABASE!", r.lang),
			"",
			fmt.Sprintf(i18n.Get("👤 ID: %d", r.lang), s.UserID),
		)
		if s.Username != "" {
			lines = append(lines, fmt.Sprintf(i18n.Get("📱 Username: @%s", r.lang), s.Username))
		}
		if s.Category != "" {
			lines = append(lines, fmt.Sprintf(i18n.Get("🎯 Scam type: %s", r.lang), s.Category))
		}
		lines = append(lines, fmt.Sprintf(i18n.Get("📝 Proof: %s", r.lang), s.Proof))
	case registry.StatusOwner, registry.StatusAdmin:
		rec := res.Role
		header := i18n.Get("👮 ADMINISTRATOR", r.lang)
		if res.Status == registry.StatusOwner {
			header = i18n.Get("👑 OWNER", r.lang)
		}
		lines = append(lines, header, "", fmt.Sprintf(i18n.Get("👤 ID: %d", r.lang), rec.UserID))
		if rec.Username != "" {
			lines = append(lines, fmt.Sprintf(i18n.Get("📱 Username: @%s", r.lang), rec.Username))
		}
		lines = append(lines, fmt.Sprintf(i18n.Get("💼 Role: %s", r.lang), rec.Role.String()))
	default:
		lines = append(lines, i18n.Get("✅ REGULAR USER\n\nNot found in the scammer database and not a staff member.", r.lang))
	}

	c.replyBadge(r, string(res.Status), q.String(), strings.Join(lines, "\n"))
	return nil
}

// replyBadge sends the status card with text as its caption, falling back to
// a plain reply when the card cannot be rendered or sent.
func (c *Commands) replyBadge(r *request, status string, subtitle string, text string) {
	data, err := badge.Render(status, subtitle)
	if err != nil {
		r.entry.WithError(err).Warn("cant render badge")
		c.reply(r, text)
		return
	}

	photo := api.NewPhoto(r.msg.Chat.ID, api.FileBytes{Name: "status.png", Bytes: data})
	photo.ReplyParameters.MessageID = r.msg.MessageID
	photo.ReplyParameters.ChatID = r.msg.Chat.ID
	photo.ReplyParameters.AllowSendingWithoutReply = true
	photo.MessageThreadID = r.msg.MessageThreadID
	captioned := len([]rune(text)) <= maxCaptionLength
	if captioned {
		photo.Caption = text
	}
	if _, err := c.sender.Send(photo); err != nil {
		r.entry.WithError(err).Warn("cant send badge")
		c.reply(r, text)
		return
	}
	if !captioned {
		c.reply(r, text)
	}
}

func (c *Commands) stats(ctx context.Context, r *request) error {
	stats, err := c.registry.Stats(ctx)
	if err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(
		i18n.Get("📊 DATABASE STATISTICS:\n\n🚨 Scammers in the database: %d\n👮 Staff members: %d\n🔨 Active bans: %d\n⚠️ Total warns: %d\n🔇 Mutes: %d", r.lang),
		stats.Scammers,
		stats.Staff,
		stats.Bans,
		stats.Warns,
		stats.Mutes,
	))
	return nil
}

func roleTitle(role db.Role, lang string) string {
	switch role {
	case db.RoleOwner:
		return i18n.Get("👑 Owner", lang)
	case db.RoleAdmin:
		return i18n.Get("👮 Administrator", lang)
	default:
		return i18n.Get("👤 User", lang)
	}
}
