package chat

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram adapts the Telegram Bot API to the Sender interface and turns
// long-poll updates into chat.Updates.
type Telegram struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewTelegram authenticates against the Telegram Bot API.
func NewTelegram(token string, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authenticated with telegram")
	return &Telegram{api: api, log: log}, nil
}

func (t *Telegram) Send(ctx context.Context, out Outgoing) (int, error) {
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	if len(out.Keyboard) > 0 {
		msg.ReplyMarkup = toInlineKeyboard(out.Keyboard)
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) Delete(ctx context.Context, chatID int64, messageID int) error {
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Updates long-polls Telegram and delivers inbound events on the returned
// channel until ctx is cancelled.
func (t *Telegram) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	raw := t.api.GetUpdatesChan(cfg)
	out := make(chan Update)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				t.api.StopReceivingUpdates()
				return
			case u, ok := <-raw:
				if !ok {
					return
				}
				mapped, ok := t.mapUpdate(u)
				if !ok {
					continue
				}
				select {
				case out <- mapped:
				case <-ctx.Done():
					t.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()

	return out
}

// mapUpdate converts a raw Telegram update into a chat.Update. Updates
// that are neither messages nor callback presses are dropped.
func (t *Telegram) mapUpdate(u tgbotapi.Update) (Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		// Acknowledge the press so the client stops its spinner.
		if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			t.log.Warn().Err(err).Msg("answer callback query")
		}
		if q.Message == nil {
			return Update{}, false
		}
		return Update{
			UserID:   q.From.ID,
			UserName: q.From.FirstName,
			ChatID:   q.Message.Chat.ID,
			Callback: q.Data,
		}, true

	case u.Message != nil:
		m := u.Message
		mapped := Update{
			UserID:   m.From.ID,
			UserName: m.From.FirstName,
			ChatID:   m.Chat.ID,
		}
		if m.IsCommand() {
			mapped.Command = m.Command()
		} else {
			mapped.Text = m.Text
		}
		return mapped, true
	}
	return Update{}, false
}

func toInlineKeyboard(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
