package bot

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
)

const updatesBuffer = 100

// GetUpdatesChans polls source until ctx is done or a poll fails; the error
// channel receives exactly one value before both channels close.
func GetUpdatesChans(ctx context.Context, source UpdateSource, config api.UpdateConfig) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, updatesBuffer)
	chErr := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			select {
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			default:
			}

			updates, err := source.GetUpdates(config)
			if err != nil {
				chErr <- err
				return
			}

			for _, update := range updates {
				if update.UpdateID < config.Offset {
					continue
				}
				config.Offset = update.UpdateID + 1
				select {
				case ch <- update:
				case <-ctx.Done():
					chErr <- ctx.Err()
					return
				}
			}
		}
	}()

	return ch, chErr
}

// GetUN returns the @-less username, or the full name when there is none.
func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}

// NewReply builds a plain-text reply threaded to msg.
func NewReply(msg *api.Message, text string) api.MessageConfig {
	reply := api.NewMessage(msg.Chat.ID, text)
	reply.ReplyParameters.MessageID = msg.MessageID
	reply.ReplyParameters.ChatID = msg.Chat.ID
	reply.ReplyParameters.AllowSendingWithoutReply = true
	reply.MessageThreadID = msg.MessageThreadID
	reply.LinkPreviewOptions.IsDisabled = true
	return reply
}
