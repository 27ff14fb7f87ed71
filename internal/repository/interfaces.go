// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションの発行は認証サービス側の責務であり、本システムは照合と破棄のみ行う。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SettingsRepository はユーザーごとのチェック時刻設定の永続化インターフェース。
type SettingsRepository interface {
	// FindScheduleByUserID は指定ユーザーの設定を取得する。
	// 未登録の場合はデフォルト値（09:00 UTC）を持つ設定を返す。
	FindScheduleByUserID(ctx context.Context, userID string) (*model.SchedulePreference, error)

	// UpsertSchedule はチェック時刻設定を冪等に保存する。
	UpsertSchedule(ctx context.Context, pref *model.SchedulePreference) error

	// ListSchedulePreferences は検証済みユーザー全員の設定を返す。
	// 設定未登録のユーザーにはデフォルト値を補完する。
	ListSchedulePreferences(ctx context.Context) ([]*model.SchedulePreference, error)
}

// TrackedItemRepository は監視対象データの永続化インターフェース。
// 自動チェックと手動チェックの排他制御（クレーム）もここで提供する。
type TrackedItemRepository interface {
	// FindByID は指定IDの監視対象を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.TrackedItem, error)

	// ListByUserID はユーザーの監視対象一覧を返す。
	// statusが空文字列の場合は全状態、categoryIDが空文字列の場合は全分類を対象とする。
	ListByUserID(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error)

	// CountByUserID はユーザーの監視対象数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// Create は監視対象を作成する。
	Create(ctx context.Context, item *model.TrackedItem) error

	// Update は監視対象の編集可能フィールド（名前・URL・セレクタ・
	// 取得モード・分類・状態）を更新する。
	Update(ctx context.Context, item *model.TrackedItem) error

	// Delete は指定IDの監視対象を削除する。
	// 価格履歴と通知イベントはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// UpdateCheckState はチェック結果の状態（現在価格・通貨・status・
	// error_message・last_checked_at）を更新する。
	UpdateCheckState(ctx context.Context, item *model.TrackedItem) error

	// UpdateCheckStateWithReading はチェック結果の状態更新と価格履歴の追記を
	// 同一トランザクションで行う。現在価格と最新履歴が食い違う中間状態を
	// 外部に見せないために、成功したチェックの永続化はこちらを使う。
	UpdateCheckStateWithReading(ctx context.Context, item *model.TrackedItem, reading *model.PriceReading) error

	// ClaimForCheck はチェック実行権を条件付きUPDATEで取得する。
	// 既に実行中（check_started_atがstaleAfterより新しい）の場合はfalseを返す。
	// 古いクレームはクラッシュ残骸とみなして奪取する。
	ClaimForCheck(ctx context.Context, id string, staleAfter time.Duration) (bool, error)

	// ReleaseCheck はチェック実行権を解放する。
	ReleaseCheck(ctx context.Context, id string) error

	// ListDueForCheck は指定ユーザー群のチェック対象を返す。
	// status = 'active' かつ last_checked_at が checkedBefore より古い
	// （またはNULL）の監視対象のみを対象とする。
	ListDueForCheck(ctx context.Context, userIDs []string, checkedBefore time.Time) ([]*model.TrackedItem, error)
}

// ReadingRepository は価格履歴の永続化インターフェース。履歴は追記専用。
type ReadingRepository interface {
	// Append は価格履歴を1件追記する。
	Append(ctx context.Context, reading *model.PriceReading) error

	// ListByItemID は監視対象の価格履歴をcreated_at降順で返す。
	// cursorがゼロ値の場合は先頭から取得する。
	ListByItemID(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error)
}

// NotificationRepository は通知イベントの永続化インターフェース。
type NotificationRepository interface {
	// Append は通知イベントを1件追記する。
	Append(ctx context.Context, event *model.NotificationEvent) error

	// LatestByItemAndType は監視対象・種別ごとの最新イベントを返す。
	// 重複送信防止の判定に使用する。見つからない場合はnilを返す。
	LatestByItemAndType(ctx context.Context, itemID string, eventType model.NotificationType) (*model.NotificationEvent, error)

	// ListByUserID はユーザーの通知履歴をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string, cursor time.Time, limit int) ([]*model.NotificationEvent, error)
}

// CategoryRepository は監視対象分類の永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDの分類を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// ListByUserID はユーザーの分類一覧を名前順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Category, error)

	// Create は分類を作成する。
	Create(ctx context.Context, category *model.Category) error

	// Delete は指定IDの分類を削除する。
	// 所属していた監視対象もCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
