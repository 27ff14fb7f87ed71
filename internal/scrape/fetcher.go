package scrape

import (
	"context"
	"fmt"

	"github.com/hitoshi/pricewatch/internal/model"
)

// Fetcher はページ取得戦略のインターフェース。
// URLを取得し、セレクタに一致した要素のテキストを返す。
// リトライは行わない（リトライ方針はオーケストレータの責務）。
type Fetcher interface {
	// Fetch はURLのページを取得し、selectorに一致した最初の要素の
	// テキストを返す。失敗時は分類付きの*FetchErrorを返す。
	Fetch(ctx context.Context, url, selector string) (string, error)
}

// Selector は取得戦略の選択を行う。
// 戦略の決定は呼び出し側（監視対象のFetchMode）に委ね、
// 各Fetcherは指示された戦略を実行するのみ。
type Selector struct {
	static   Fetcher
	rendered Fetcher
}

// NewSelector はSelectorを生成する。
// renderedがnilの場合（レンダリング無効構成）、renderedモードの
// 対象には静的パスをフォールバックとして使用する。
func NewSelector(static, rendered Fetcher) *Selector {
	return &Selector{static: static, rendered: rendered}
}

// ForMode は指定モードのFetcherを返す。
func (s *Selector) ForMode(mode model.FetchMode) (Fetcher, error) {
	switch mode {
	case model.FetchModeStatic:
		return s.static, nil
	case model.FetchModeRendered:
		if s.rendered != nil {
			return s.rendered, nil
		}
		return s.static, nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %q", mode)
	}
}
