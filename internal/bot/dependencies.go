package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/scamguard/internal/db"
)

// Sender delivers outgoing messages; *api.BotAPI satisfies it.
type Sender interface {
	Send(c api.Chattable) (api.Message, error)
}

// UpdateSource long-polls Telegram; *api.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}

type Store interface {
	Ping(ctx context.Context) error
	SeedRole(ctx context.Context, rec *db.RoleRecord) error
}
