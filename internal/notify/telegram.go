package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender はTelegram Bot APIの送信操作を抽象化する。
// テストではモックに差し替える。
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier はTelegram Botを通じて通知を配信する。
type TelegramNotifier struct {
	bot    MessageSender
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier はトークンからBotクライアントを初期化して
// TelegramNotifierを生成する。
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("Telegram Botの初期化に失敗しました: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// NewTelegramNotifierWithSender は送信実装を注入してTelegramNotifierを生成する。
func NewTelegramNotifierWithSender(sender MessageSender, chatID int64, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: sender, chatID: chatID, logger: logger}
}

// Notify はイベントをTelegramメッセージとして送信する。
func (n *TelegramNotifier) Notify(_ context.Context, event Event) error {
	msg := tgbotapi.NewMessage(n.chatID, formatMessage(event))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("Telegramメッセージの送信に失敗しました: %w", err)
	}

	n.logger.Info("Telegram通知を送信しました",
		slog.String("item_id", event.Item.ID),
		slog.String("type", string(event.Type)),
	)
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
