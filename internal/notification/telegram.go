// Package notification delivers operational messages to the back office
// Telegram chat: completed purchases, broadcast fanout, stale cleanups.
package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/internal/entity"
)

// Notifier sends messages to participants and staff.
type Notifier interface {
	NotifyPurchaseCompleted(ctx context.Context, event *entity.Event, purchase *entity.Purchase)
	SendBroadcast(ctx context.Context, recipient, message string) error
}

// TelegramNotifier sends everything to a single staff chat. With an empty
// token it degrades to a disabled notifier that only logs.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		logrus.Warn("telegram bot token is empty, notifications disabled")
		return &TelegramNotifier{bot: nil, chatID: chatID}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) NotifyPurchaseCompleted(ctx context.Context, event *entity.Event, purchase *entity.Purchase) {
	text := fmt.Sprintf(
		"*Acquisto completato*\n\nEvento: %s\nData: %s\nBiglietti: %d\nTotale: %.2f EUR",
		event.Title, event.Date.String(), purchase.Quantity, float64(purchase.Amount)/100,
	)
	n.send(ctx, text)
}

// SendBroadcast delivers one broadcast message for a recipient. The staff
// chat is the delivery channel, each message tagged with the recipient
// address it is meant for.
func (n *TelegramNotifier) SendBroadcast(ctx context.Context, recipient, message string) error {
	if n.bot == nil {
		logrus.Debugf("broadcast to %s skipped (bot disabled)", recipient)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("[%s]\n%s", recipient, message))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send broadcast to %s: %w", recipient, err)
	}
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	if n.bot == nil {
		logrus.Debug("notification skipped (bot disabled)")
		return
	}
	if err := ctx.Err(); err != nil {
		logrus.Debug("notification skipped (context cancelled)")
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.bot.Send(msg); err != nil {
		logrus.Errorf("failed to send telegram notification: %v", err)
	}
}
