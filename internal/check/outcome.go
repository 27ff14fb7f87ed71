// Package check は1つの監視対象に対するフェッチ＋パースの
// オーケストレーションを提供する。リトライ・タイムアウト・
// エラー分類をここで束ね、保存層には依存しない。
package check

import (
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/scrape"
)

// OutcomeKind はスクレイプサイクル1回の結果分類を表す。
type OutcomeKind string

const (
	// OutcomeSuccess は価格抽出まで成功した結果。
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeExtractionFailed はページ取得には成功したが、
	// テキストから使用可能な数値を抽出できなかった結果。
	// データの問題でありリトライ対象ではない。
	OutcomeExtractionFailed OutcomeKind = "extraction_failed"
	// OutcomeFetchFailed はリトライを使い切ってもページ取得に
	// 失敗した結果。
	OutcomeFetchFailed OutcomeKind = "fetch_failed"
)

// Outcome はスクレイプサイクル1回の結果を表す。
type Outcome struct {
	Kind     OutcomeKind
	Price    model.Money        // Kind==OutcomeSuccessのとき有効
	Currency string             // 検出した通貨記号。未検出の場合は空文字列
	RawText  string             // 抽出した生テキスト（未サニタイズ）
	Reason   scrape.FailureKind // Kind==OutcomeFetchFailedのとき、最後の失敗の分類
	Err      error              // 失敗時の詳細
}
