// Package telegram implements the bot-side chat surface: message
// fan-out and final-state edits, the inline-keyboard callback state
// machine, and the reply sub-flow.
package telegram

import (
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard layout.
type Keyboard struct {
	Rows [][]Button
}

// SendOptions carries the per-message options the core needs.
type SendOptions struct {
	Keyboard   *Keyboard
	ForceReply bool
}

// Messenger is the subset of Telegram operations the dispatcher and
// handler depend on. The telebot client satisfies it via Client; tests
// substitute a fake.
type Messenger interface {
	// Send delivers a message and returns its message id.
	Send(chatID int64, text string, opts *SendOptions) (int, error)
	// Edit replaces a message's text and drops its inline keyboard.
	Edit(chatID int64, messageID int, text string) error
	// Delete removes a message.
	Delete(chatID int64, messageID int) error
	// Respond answers a callback query, optionally as an alert.
	Respond(callbackID, text string, showAlert bool) error
}

// Client adapts a telebot bot to the Messenger interface.
type Client struct {
	bot *tele.Bot
}

// NewClient wraps a telebot bot.
func NewClient(bot *tele.Bot) *Client {
	return &Client{bot: bot}
}

// Send delivers an HTML-formatted message to the chat.
func (c *Client) Send(chatID int64, text string, opts *SendOptions) (int, error) {
	sendOpts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if opts != nil {
		switch {
		case opts.Keyboard != nil:
			sendOpts.ReplyMarkup = inlineMarkup(opts.Keyboard)
		case opts.ForceReply:
			sendOpts.ReplyMarkup = &tele.ReplyMarkup{ForceReply: true}
		}
	}

	msg, err := c.bot.Send(tele.ChatID(chatID), text, sendOpts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Edit replaces the message text. Omitting the markup removes any
// inline keyboard the message carried.
func (c *Client) Edit(chatID int64, messageID int, text string) error {
	_, err := c.bot.Edit(storedMessage(chatID, messageID), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

// Delete removes the message.
func (c *Client) Delete(chatID int64, messageID int) error {
	return c.bot.Delete(storedMessage(chatID, messageID))
}

// Respond answers the callback query.
func (c *Client) Respond(callbackID, text string, showAlert bool) error {
	return c.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{
		Text:      text,
		ShowAlert: showAlert,
	})
}

func storedMessage(chatID int64, messageID int) *tele.StoredMessage {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

func inlineMarkup(kb *Keyboard) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		btns := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		rows = append(rows, btns)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}
