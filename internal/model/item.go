// Package model はドメインモデルを定義する。
package model

import "time"

// TrackedItem はユーザーが監視対象として登録した価格要素を表す。
// 対象URLとCSSセレクタの組で1つの監視対象を構成する。
type TrackedItem struct {
	ID            string
	UserID        string
	CategoryID    string // 任意。未分類の場合は空文字列
	Name          string
	URL           string
	Selector      string
	FetchMode     FetchMode
	Status        ItemStatus
	CurrentPrice  *Money // 初回スクレイプ成功まではnil
	Currency      string // 通貨記号（£ $ € ¥）。未検出の場合は空文字列
	ErrorMessage  string
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemStatus は監視対象の状態を表す。
type ItemStatus string

const (
	// ItemStatusActive は自動チェック対象の状態。
	ItemStatusActive ItemStatus = "active"
	// ItemStatusError は直近のスクレイプが失敗した状態。
	// 自動チェックからは除外され、手動再チェックのみ可能。
	ItemStatusError ItemStatus = "error"
	// ItemStatusPaused はユーザーが監視を一時停止した状態。
	ItemStatusPaused ItemStatus = "paused"
)

// FetchMode はページ取得戦略を表す。
type FetchMode string

const (
	// FetchModeStatic は静的HTML取得＋パースの軽量パス。
	FetchModeStatic FetchMode = "static"
	// FetchModeRendered はヘッドレスブラウザによるレンダリングパス。
	// JavaScriptで価格を描画するページに使用する。
	FetchModeRendered FetchMode = "rendered"
)

// PriceReading は1回のスクレイプで観測した価格の履歴レコードを表す。
// 追記専用で、作成後に変更されることはない。
type PriceReading struct {
	ID        string
	ItemID    string
	Price     Money
	Currency  string
	RawText   string // サニタイズ済みの抽出テキスト
	CreatedAt time.Time
}

// Category は監視対象のユーザー定義分類を表す。
type Category struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}
