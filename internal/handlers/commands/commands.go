package handlers

import (
	"context"
	"errors"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/scamguard/internal/bot"
	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
	"github.com/iamwavecut/scamguard/internal/i18n"
	"github.com/iamwavecut/scamguard/internal/moderation"
	"github.com/iamwavecut/scamguard/internal/observability"
	"github.com/iamwavecut/scamguard/internal/policy/permissions"
	"github.com/iamwavecut/scamguard/internal/registry"
)

type (
	// request carries everything a command handler needs about one message.
	request struct {
		msg     *api.Message
		chat    *api.Chat
		user    *api.User
		command string
		args    string
		role    db.Role
		lang    string
		entry   *log.Entry
	}

	route struct {
		handle   func(ctx context.Context, r *request) error
		required db.Role
	}

	Commands struct {
		sender     bot.Sender
		moderation *moderation.Service
		registry   *registry.Service
		botName    string
		language   string
		routes     map[string]route
	}
)

// NewCommands builds the router; botName is the bot's own username, used to
// skip commands addressed to other bots as /cmd@otherbot.
func NewCommands(sender bot.Sender, moderation *moderation.Service, registry *registry.Service, botName string, language string) *Commands {
	c := &Commands{
		sender:     sender,
		moderation: moderation,
		registry:   registry,
		botName:    db.NormalizeUsername(botName),
		language:   language,
	}
	c.routes = map[string]route{
		"start":       {handle: c.start, required: db.RoleUser},
		"help":        {handle: c.help, required: db.RoleUser},
		"check":       {handle: c.check, required: db.RoleUser},
		"stats":       {handle: c.stats, required: db.RoleUser},
		"ban":         {handle: c.ban, required: db.RoleAdmin},
		"unban":       {handle: c.unban, required: db.RoleAdmin},
		"warn":        {handle: c.warn, required: db.RoleAdmin},
		"mute":        {handle: c.mute, required: db.RoleAdmin},
		"unmute":      {handle: c.unmute, required: db.RoleAdmin},
		"warns":       {handle: c.warns, required: db.RoleAdmin},
		"banlist":     {handle: c.banlist, required: db.RoleAdmin},
		"add_scammer": {handle: c.addScammer, required: db.RoleAdmin},
		"add_admin":   {handle: c.addAdmin, required: db.RoleOwner},
		"add_owner":   {handle: c.addOwner, required: db.RoleOwner},
		"list_admins": {handle: c.listAdmins, required: db.RoleUser},
	}
	return c
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u == nil || u.Message == nil || !u.Message.IsCommand() {
		return true, nil
	}
	msg := u.Message
	if !c.addressedToMe(msg) {
		return true, nil
	}
	command := msg.Command()
	rt, ok := c.routes[command]
	if !ok {
		return true, nil
	}
	if user == nil || chat == nil {
		return false, nil
	}

	entry := log.WithFields(log.Fields{
		"handler":     "commands",
		"command":     command,
		"chat_id":     chat.ID,
		"user_id":     user.ID,
		"correlation": uuid.New(),
	})
	r := &request{
		msg:     msg,
		chat:    chat,
		user:    user,
		command: command,
		args:    msg.CommandArguments(),
		lang:    c.languageFor(user),
		entry:   entry,
	}

	if !permissions.RequireGroupChat(chat) {
		c.reply(r, i18n.Get("❌ This bot works only in chats and groups!\n\nAdd the bot to your chat and use the commands there.", r.lang))
		return false, nil
	}

	ctx, span := otel.Tracer("scamguard/commands").Start(ctx, "command/"+command)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat_id", chat.ID),
		attribute.Int64("user_id", user.ID),
	)
	finish := observability.StartCommand(command)

	if err := c.registry.Touch(ctx, user.ID, user.UserName); err != nil {
		entry.WithError(err).Warn("cant refresh staff username")
	}

	role, err := c.registry.RoleOf(ctx, user.ID)
	if err != nil {
		finish("failed")
		c.replyError(r, err)
		return false, nil
	}
	r.role = role

	if rt.required > db.RoleUser && !permissions.Allows(role, rt.required) {
		finish("rejected")
		c.replyError(r, apperrors.ErrUnauthorized)
		return false, nil
	}

	if err := rt.handle(ctx, r); err != nil {
		if apperrors.IsDomain(err) {
			finish("rejected")
			entry.WithError(err).Debug("command rejected")
		} else {
			finish("failed")
			span.RecordError(err)
		}
		c.replyError(r, err)
		return false, nil
	}
	finish("ok")
	return false, nil
}

// replyError answers with the message matching the error kind.
func (c *Commands) replyError(r *request, err error) {
	var text string
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		text = deniedText(r)
	case errors.Is(err, apperrors.ErrProtectedTarget):
		text = i18n.Get("❌ Sanctions cannot be applied to the owner!", r.lang)
	case errors.Is(err, apperrors.ErrInvalidDuration):
		text = i18n.Get("❌ Invalid duration. Use a number followed by m, h or d, for example 30m, 1h or 2d.", r.lang)
	case errors.Is(err, apperrors.ErrDuplicateKey):
		text = duplicateText(r)
	case errors.Is(err, apperrors.ErrMalformedArguments):
		text = usageText(r)
	case errors.Is(err, apperrors.ErrNotFound):
		text = i18n.Get("❌ Nothing found.", r.lang)
	default:
		r.entry.WithError(err).Error("command failed")
		text = i18n.Get("❌ Something went wrong, please try again later.", r.lang)
	}
	c.reply(r, text)
}

func (c *Commands) addressedToMe(msg *api.Message) bool {
	_, mention, found := strings.Cut(msg.CommandWithAt(), "@")
	return !found || db.NormalizeUsername(mention) == c.botName
}

func (c *Commands) languageFor(user *api.User) string {
	if user != nil && tool.In(user.LanguageCode, i18n.GetLanguagesList()...) {
		return user.LanguageCode
	}
	return c.language
}

func (c *Commands) reply(r *request, text string) {
	if err := tool.Err(c.sender.Send(bot.NewReply(r.msg, text))); err != nil {
		r.entry.WithError(err).Error("cant send reply")
	}
}

func deniedText(r *request) string {
	switch r.command {
	case "add_admin", "add_owner":
		return i18n.Get("❌ Only the bot owner can use this command!", r.lang)
	case "add_scammer":
		return i18n.Get("❌ Only administrators can add scammers!", r.lang)
	default:
		return i18n.Get("❌ Only administrators can use this command!", r.lang)
	}
}

func duplicateText(r *request) string {
	if r.command == "add_scammer" {
		return i18n.Get("❌ This user is already in the scammer database!", r.lang)
	}
	return i18n.Get("❌ This user is already on the staff list!", r.lang)
}

func usageText(r *request) string {
	switch r.command {
	case "check":
		return i18n.Get("❌ Usage: /check @username or /check 123456789", r.lang)
	case "ban":
		return i18n.Get("❌ Usage: /ban @username reason", r.lang)
	case "unban":
		return i18n.Get("❌ Usage: /unban @username", r.lang)
	case "warn":
		return i18n.Get("❌ Usage: /warn @username reason", r.lang)
	case "mute":
		return i18n.Get("❌ Usage: /mute @username duration reason\n\nExamples:\n/mute @username 1h Flood\n/mute @username 30m Spam", r.lang)
	case "unmute":
		return i18n.Get("❌ Usage: /unmute @username", r.lang)
	case "warns":
		return i18n.Get("❌ Usage: /warns @username", r.lang)
	case "add_scammer":
		return i18n.Get("❌ Usage: /add_scammer user_id @username|proof|category\n\nExample:\n/add_scammer 123456789 @username|https://t.me/proof|Fake seller", r.lang)
	case "add_admin":
		return i18n.Get("❌ Usage: /add_admin user_id @username\n\nExample:\n/add_admin 123456789 @username", r.lang)
	case "add_owner":
		return i18n.Get("❌ Usage: /add_owner user_id @username\n\nExample:\n/add_owner 123456789 @username", r.lang)
	default:
		return i18n.Get("❌ Invalid command arguments.", r.lang)
	}
}
