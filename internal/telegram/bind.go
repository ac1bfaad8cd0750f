package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Bind registers the handler on the bot's update stream. Callback data
// arrives with telebot's "\f" unique-prefix convention stripped so the
// state machine only ever sees "{request_id}:{action}".
func Bind(bot *tele.Bot, h *Handler) {
	bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || cb.Message == nil {
			return nil
		}
		h.HandleCallback(Callback{
			ID:        cb.ID,
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.ID,
			Data:      strings.TrimPrefix(cb.Data, "\f"),
		})
		return nil
	})

	bot.Handle(tele.OnText, func(c tele.Context) error {
		msg := c.Message()
		if msg == nil {
			return nil
		}
		h.HandleMessage(msg.Chat.ID, msg.Text)
		return nil
	})
}
