// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationType は通知イベントの種別を表す。
type NotificationType string

const (
	// NotificationPriceChange は価格変動の通知。
	NotificationPriceChange NotificationType = "price_change"
	// NotificationScrapeError はスクレイプ失敗の通知。
	NotificationScrapeError NotificationType = "scrape_error"
)

// NotificationEvent は送信した通知の監査レコードを表す。
// 追記専用で、同一ラン内の重複送信防止の判定にも使用する。
type NotificationEvent struct {
	ID           string
	ItemID       string
	UserID       string
	Type         NotificationType
	OldPrice     *Money
	NewPrice     *Money
	PctChange    *Percent
	ErrorMessage string
	CreatedAt    time.Time
}
