// Package notify は価格変動とスクレイプ失敗の通知配信を提供する。
// Webhook（JSON POST）とTelegramの2経路をサポートし、
// どちらも設定されていないデプロイではログ出力のみにフォールバックする。
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/pricewatch/internal/model"
)

// Event は1件の通知内容を表す。
type Event struct {
	User         *model.User
	Item         *model.TrackedItem
	Type         model.NotificationType
	OldPrice     *model.Money
	NewPrice     *model.Money
	PctChange    *model.Percent
	ErrorMessage string
}

// Notifier は通知の配信インターフェース。
type Notifier interface {
	// Notify はイベントを1件配信する。配信失敗は呼び出し側で
	// ログに記録されるのみで、チェック処理自体は失敗させない。
	Notify(ctx context.Context, event Event) error
}

// Multi は複数のNotifierへ順番に配信する。
// 一部の経路が失敗しても残りの経路への配信は継続する。
type Multi struct {
	notifiers []Notifier
}

// NewMulti はMultiを生成する。
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Notify は全経路へ配信し、失敗をまとめて返す。
func (m *Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier は配信経路が未設定の場合のフォールバック。
// 通知内容を構造化ログに出力するのみ。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify は通知内容をログに出力する。
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("item_id", event.Item.ID),
		slog.String("item_name", event.Item.Name),
		slog.String("type", string(event.Type)),
	}
	if event.OldPrice != nil && event.NewPrice != nil {
		attrs = append(attrs,
			slog.String("old_price", event.OldPrice.String()),
			slog.String("new_price", event.NewPrice.String()),
		)
	}
	if event.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error_message", event.ErrorMessage))
	}
	n.logger.Info("通知イベント", attrs...)
	return nil
}

// formatMessage は通知本文を生成する。Webhook/Telegramで共通。
func formatMessage(event Event) string {
	switch event.Type {
	case model.NotificationPriceChange:
		msg := fmt.Sprintf("📊 価格が変動しました\n\n商品: %s\n", event.Item.Name)
		if event.OldPrice != nil && event.NewPrice != nil {
			msg += fmt.Sprintf("%s%s → %s%s\n",
				event.Item.Currency, event.OldPrice.String(),
				event.Item.Currency, event.NewPrice.String(),
			)
		}
		if event.PctChange != nil {
			msg += fmt.Sprintf("変化率: %s%%\n", event.PctChange.String())
		}
		msg += fmt.Sprintf("\nリンク: %s", event.Item.URL)
		return msg

	case model.NotificationScrapeError:
		return fmt.Sprintf("⚠️ 価格チェックに失敗しました\n\n商品: %s\n原因: %s\n\nリンク: %s",
			event.Item.Name, event.ErrorMessage, event.Item.URL)

	default:
		return fmt.Sprintf("商品: %s\nリンク: %s", event.Item.Name, event.Item.URL)
	}
}

var _ Notifier = (*Multi)(nil)
var _ Notifier = (*LogNotifier)(nil)
