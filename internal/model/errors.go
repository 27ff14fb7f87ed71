// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tracking, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeItemNotFound     = "ITEM_NOT_FOUND"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeInvalidSelector  = "INVALID_SELECTOR"
	ErrCodeItemLimit        = "ITEM_LIMIT"
	ErrCodeCheckInProgress  = "CHECK_IN_PROGRESS"
	ErrCodeInvalidTimezone  = "INVALID_TIMEZONE"
	ErrCodeInvalidCheckTime = "INVALID_CHECK_TIME"
	ErrCodeItemNotPaused    = "ITEM_NOT_PAUSED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewItemNotFoundError は監視対象未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された監視対象が見つかりません: %s", itemID),
		Category: "tracking",
		Action:   "監視対象IDを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: "tracking",
		Action:   "カテゴリIDを確認してください。",
	}
}

// NewInvalidSelectorError は無効なセレクタエラーを生成する。
func NewInvalidSelectorError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSelector,
		Message:  fmt.Sprintf("無効なCSSセレクタです: %s", reason),
		Category: "validation",
		Action:   "セレクタ検証エンドポイントで抽出結果を確認してください。",
	}
}

// NewItemLimitError は監視対象の登録上限エラーを生成する。
func NewItemLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeItemLimit,
		Message:  "監視対象の登録数が上限（100件）に達しています。",
		Category: "tracking",
		Action:   "不要な監視対象を削除してから、新しい対象を登録してください。",
	}
}

// NewCheckInProgressError は同一対象へのチェック多重実行エラーを生成する。
func NewCheckInProgressError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeCheckInProgress,
		Message:  fmt.Sprintf("この監視対象は現在チェック実行中です: %s", itemID),
		Category: "tracking",
		Action:   "実行中のチェックが完了してから再度お試しください。",
	}
}

// NewInvalidTimezoneError は無効なタイムゾーンエラーを生成する。
func NewInvalidTimezoneError(tz string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimezone,
		Message:  fmt.Sprintf("無効なタイムゾーンです: %s", tz),
		Category: "validation",
		Action:   "IANA形式のタイムゾーン名（例: Asia/Tokyo, Europe/London）を指定してください。",
	}
}

// NewInvalidCheckTimeError は無効なチェック時刻エラーを生成する。
func NewInvalidCheckTimeError(checkTime string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCheckTime,
		Message:  fmt.Sprintf("無効なチェック時刻です: %s", checkTime),
		Category: "validation",
		Action:   "チェック時刻は24時間表記の\"HH:MM\"形式で指定してください。",
	}
}

// NewItemNotPausedError は停止中でない対象の再開要求エラーを生成する。
func NewItemNotPausedError() *APIError {
	return &APIError{
		Code:     ErrCodeItemNotPaused,
		Message:  "監視対象は一時停止中ではありません。",
		Category: "tracking",
		Action:   "再開は一時停止中の監視対象に対してのみ実行できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
