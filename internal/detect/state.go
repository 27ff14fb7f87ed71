package detect

import (
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
)

// ApplySuccess はスクレイプ成功時の状態遷移を監視対象に適用する。
// 現在価格と通貨を更新し、エラー状態だった場合はactiveに復帰させて
// エラーメッセージをクリアする。
func ApplySuccess(item *model.TrackedItem, price model.Money, currency string, now time.Time) {
	item.CurrentPrice = &price
	if currency != "" {
		item.Currency = currency
	}
	item.Status = model.ItemStatusActive
	item.ErrorMessage = ""
	item.LastCheckedAt = &now
	item.UpdatedAt = now
}

// ApplyError はスクレイプ失敗時の状態遷移を監視対象に適用する。
// statusをerrorに設定し、メッセージを記録する。現在価格は変更しない。
func ApplyError(item *model.TrackedItem, message string, now time.Time) {
	item.Status = model.ItemStatusError
	item.ErrorMessage = message
	item.LastCheckedAt = &now
	item.UpdatedAt = now
}
