// Package bot implements the operator alert channel over Telegram.
//
// Unlike a full notification bot there is no command surface and no user
// registry here: alert recipients are the chat ids from the configuration
// file, and the only inbound data flow is the slog mirror in lib/logger,
// which forwards WARN+ records (data-integrity errors such as a missing
// business profile) to every configured chat.
package bot

import (
	"fmt"
	"log/slog"
	"qreward/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

type TgBot struct {
	log      *slog.Logger
	api      *tgbotapi.Bot
	chatIds  []int64
	minLevel slog.Level
}

func NewTgBot(apiKey string, chatIds []int64, log *slog.Logger) (*TgBot, error) {
	if len(chatIds) == 0 {
		return nil, fmt.Errorf("no alert chat ids configured")
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}

	return &TgBot{
		log:      log.With(sl.Module("tgbot")),
		api:      api,
		chatIds:  chatIds,
		minLevel: slog.LevelWarn,
	}, nil
}
