package bot

import (
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"qreward/lib/sl"
)

const maxMessageLen = 4000

func (t *TgBot) SendMessage(msg string) {
	t.SendMessageWithLevel(msg, t.minLevel)
}

// SendMessageWithLevel delivers a message to every configured alert chat.
// Messages below the bot's minimum level are dropped.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if msg == "" || level < t.minLevel {
		return
	}
	for _, part := range splitMessage(msg, maxMessageLen) {
		for _, chatId := range t.chatIds {
			t.send(chatId, part)
		}
	}
}

func (t *TgBot) send(chatId int64, text string) {
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		// retry without markdown in case formatting broke the payload
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}
