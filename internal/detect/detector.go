// Package detect はスクレイプ結果と保存済み状態を比較し、
// 通知に値する変化かどうかを判定する。純粋な計算のみで、
// ネットワークや保存層には依存しない。
package detect

import (
	"fmt"

	"github.com/hitoshi/pricewatch/internal/check"
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/scrape"
)

// DecisionKind は変化判定の結果分類を表す。
type DecisionKind string

const (
	// DecisionNoChange は価格に変化がない、または初回観測（基準値の確立）。
	DecisionNoChange DecisionKind = "no_change"
	// DecisionPriceChanged は保存済み価格と異なる価格を観測した。
	DecisionPriceChanged DecisionKind = "price_changed"
	// DecisionErrorOccurred はスクレイプサイクルが失敗した。
	DecisionErrorOccurred DecisionKind = "error_occurred"
)

// Decision は1回のスクレイプサイクルに対する変化判定を表す。
type Decision struct {
	Kind         DecisionKind
	Old          *model.Money   // Kind==DecisionPriceChangedのとき有効
	New          *model.Money   // Kind==DecisionPriceChangedのとき有効
	Pct          *model.Percent // 変化率。旧価格が0の場合は未定義（nil）
	ErrorMessage string         // Kind==DecisionErrorOccurredのとき有効
}

// Evaluate はスクレイプ結果を保存済みの現在価格と比較して判定を返す。
//
//   - 失敗した結果はすべてDecisionErrorOccurredになる。
//   - 初回の成功（保存済み価格なし）は基準値の確立であり、
//     通知対象の変化とはみなさない。
//   - 価格の比較は固定小数点の厳密な等値比較で行い、
//     1セント未満の変動も変化として扱う。
func Evaluate(item *model.TrackedItem, outcome check.Outcome) Decision {
	switch outcome.Kind {
	case check.OutcomeSuccess:
		// 初回観測: 基準値を確立するのみで変化とはしない。
		if item.CurrentPrice == nil {
			return Decision{Kind: DecisionNoChange}
		}

		old := *item.CurrentPrice
		if old == outcome.Price {
			return Decision{Kind: DecisionNoChange}
		}

		newPrice := outcome.Price
		return Decision{
			Kind: DecisionPriceChanged,
			Old:  &old,
			New:  &newPrice,
			Pct:  model.PercentChange(old, newPrice),
		}

	case check.OutcomeExtractionFailed:
		return Decision{
			Kind:         DecisionErrorOccurred,
			ErrorMessage: extractionFailedMessage(outcome.RawText),
		}

	default:
		return Decision{
			Kind:         DecisionErrorOccurred,
			ErrorMessage: fetchFailedMessage(outcome),
		}
	}
}

// extractionFailedMessage はパース不能時の保存用メッセージを生成する。
func extractionFailedMessage(rawText string) string {
	if rawText == "" {
		return "抽出したテキストから価格を解釈できませんでした"
	}
	return fmt.Sprintf("抽出したテキストから価格を解釈できませんでした: %q", rawText)
}

// fetchFailedMessage はフェッチ失敗時の保存用メッセージを生成する。
func fetchFailedMessage(outcome check.Outcome) string {
	var msg string
	switch outcome.Reason {
	case scrape.FailureTimeout:
		msg = "ページ取得がタイムアウトしました"
	case scrape.FailureSelectorNotFound:
		msg = "セレクタに一致する要素が見つかりませんでした"
	default:
		msg = "ネットワークエラーによりページを取得できませんでした"
	}
	if outcome.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, outcome.Err.Error())
	}
	return msg
}
