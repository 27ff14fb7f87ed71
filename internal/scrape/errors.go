// Package scrape は監視対象ページの取得とセレクタによるテキスト抽出を提供する。
// 軽量な静的HTMLパスとヘッドレスブラウザによるレンダリングパスの
// 2つの取得戦略を含む。リトライはこのパッケージでは行わない。
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind はフェッチ失敗の分類を表す。
// リトライ判定（timeout/networkのみリトライ対象）と
// エラーメッセージの永続化に使用する。
type FailureKind string

const (
	// FailureTimeout はタイムアウトによる失敗。
	FailureTimeout FailureKind = "timeout"
	// FailureSelectorNotFound はページ取得には成功したが
	// セレクタに一致する要素が存在しなかった失敗。
	FailureSelectorNotFound FailureKind = "selector_not_found"
	// FailureNetwork は接続エラー・異常ステータスなどのネットワーク起因の失敗。
	FailureNetwork FailureKind = "network"
)

// FetchError はフェッチ失敗の分類付きエラー。
type FetchError struct {
	Kind FailureKind
	URL  string
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): %s", e.Kind, e.URL)
}

// Unwrap は内包するエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable は一時的な失敗としてリトライしてよいかを返す。
// セレクタ未検出はページ構造の問題でありリトライしても解消しない。
func (e *FetchError) Retryable() bool {
	return e.Kind == FailureTimeout || e.Kind == FailureNetwork
}

// classifyTransportError はHTTP/ブラウザ実行時のエラーを分類する。
// コンテキスト期限切れとnet.Errorのタイムアウトはtimeout、
// それ以外はnetworkに分類する。
func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}

// KindOf はエラーからFailureKindを取り出す。
// FetchErrorでない場合はnetworkとみなす。
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FailureNetwork
}
