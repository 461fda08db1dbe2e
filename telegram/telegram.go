package telegram

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

func adminChatID() int64 {
	raw := os.Getenv("TG_ADMIN_CHAT_ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Println("Invalid TG_ADMIN_CHAT_ID:", raw)
		return 0
	}
	return id
}

// NotifyAdmin posts an operational event to the admin channel. Failures are
// logged and swallowed, alerts never break the calling request.
func NotifyAdmin(message string) {
	chatID := adminChatID()
	if chatID == 0 {
		return
	}
	bot, err := tgbotapi.NewBotAPI(os.Getenv("TG_TOKEN"))
	if err != nil {
		fmt.Println("Error initializing telegram BOT!", err)
		return
	}
	msg := tgbotapi.NewMessage(chatID, message)
	if _, err := bot.Send(msg); err != nil {
		fmt.Println(err)
	}
}
