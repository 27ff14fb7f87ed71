package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/price"
	"github.com/hitoshi/pricewatch/internal/scrape"
)

// FetcherSelector は取得戦略の選択インターフェース。
type FetcherSelector interface {
	ForMode(mode model.FetchMode) (scrape.Fetcher, error)
}

// SelectorPreview はセレクタ検証ドライランの結果。
// 何も永続化されず、抽出とパースの結果のみを返す。
type SelectorPreview struct {
	Matched  bool
	RawText  string
	Price    *model.Money
	Currency string
}

// Validator はセレクタ検証のドライランを実行する。
// 監視対象の登録前に、URLとセレクタの組が価格を抽出できるかを確認する。
type Validator struct {
	fetchers  FetcherSelector
	ssrfGuard URLValidator
	sanitizer TextSanitizer
}

// TextSanitizer は抽出テキストのサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// NewValidator はValidatorを生成する。
func NewValidator(fetchers FetcherSelector, ssrfGuard URLValidator, sanitizer TextSanitizer) *Validator {
	return &Validator{
		fetchers:  fetchers,
		ssrfGuard: ssrfGuard,
		sanitizer: sanitizer,
	}
}

// ValidateSelector はURLとセレクタの組でドライランを実行する。
// セレクタ未検出はエラーではなくMatched=falseとして返し、
// パース不能はMatched=trueかつPrice=nilとして返す。
func (v *Validator) ValidateSelector(ctx context.Context, rawURL, selector, fetchMode string) (*SelectorPreview, error) {
	if err := v.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	mode, err := parseFetchMode(fetchMode)
	if err != nil {
		return nil, err
	}

	fetcher, err := v.fetchers.ForMode(mode)
	if err != nil {
		return nil, fmt.Errorf("取得戦略の選択に失敗しました: %w", err)
	}

	text, err := fetcher.Fetch(ctx, rawURL, selector)
	if err != nil {
		var fe *scrape.FetchError
		if errors.As(err, &fe) && fe.Kind == scrape.FailureSelectorNotFound {
			return &SelectorPreview{Matched: false}, nil
		}
		return nil, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}

	parsed := price.Parse(text)
	return &SelectorPreview{
		Matched:  true,
		RawText:  v.sanitizer.SanitizeText(parsed.Raw),
		Price:    parsed.Price,
		Currency: parsed.Currency,
	}, nil
}
