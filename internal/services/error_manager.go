package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const maxAdminMessageLength = 4000

type ErrorManager struct {
	sender  Sender
	adminID int64
}

func NewErrorManager(sender Sender, adminID int64) *ErrorManager {
	return &ErrorManager{
		sender:  sender,
		adminID: adminID,
	}
}

func (e *ErrorManager) NotifyAdmin(ctx context.Context, panicValue interface{}, update *models.Update) {
	userInfo := "unknown"
	command := "unknown"

	if update != nil && update.Message != nil {
		command = update.Message.Text
		if update.Message.From != nil {
			userInfo = fmt.Sprintf("[%d]", update.Message.From.ID)
			if update.Message.From.FirstName != "" {
				userInfo = update.Message.From.FirstName + " " + userInfo
			}
			if update.Message.From.Username != "" {
				userInfo = userInfo + " @" + update.Message.From.Username
			}
		}
	}

	msg := fmt.Sprintf("🚨 Panic in handler\nUser: %s\nCommand: %s\nError: %v\n\nStack trace:\n%s",
		userInfo, command, panicValue, string(debug.Stack()))

	e.send(ctx, msg)
}

func (e *ErrorManager) NotifyAdminWithCurl(ctx context.Context, chatID int64, request interface{}, err error) {
	curl := e.buildCurlCommand(request)

	msg := fmt.Sprintf("❌ Failed to send message\nChat: [%d]\nError: %v\n\nCurl:\n%s",
		chatID, err, curl)

	e.send(ctx, msg)
}

func (e *ErrorManager) send(ctx context.Context, msg string) {
	msg = truncateUTF8(msg, maxAdminMessageLength)
	log.Printf("[BOT] %s", msg)

	if e.sender == nil {
		return
	}
	_, _ = e.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: e.adminID,
		Text:   msg,
	})
}

// truncateUTF8 cuts msg to at most limit bytes without splitting a rune.
func truncateUTF8(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "\n... (truncated)"
}

func (e *ErrorManager) buildCurlCommand(request interface{}) string {
	jsonData, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Sprintf("# Failed to serialize request: %v", err)
	}

	return fmt.Sprintf("curl -X POST 'https://api.telegram.org/bot[BOT_TOKEN]/sendMessage' \\\n  -H 'Content-Type: application/json' \\\n  -d '%s'",
		string(jsonData))
}
