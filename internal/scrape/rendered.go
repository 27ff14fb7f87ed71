package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderedFetcher はヘッドレスブラウザでページをレンダリングしてから
// セレクタ抽出を行うパス。JavaScriptで価格を描画するページに使用する。
// ブラウザインスタンスは呼び出しごとに生成し、成功・失敗どちらの
// 経路でも確実に解放する。
type RenderedFetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
}

// NewRenderedFetcher はRenderedFetcherを生成する。
func NewRenderedFetcher(ssrfGuard SSRFValidator, timeout time.Duration) *RenderedFetcher {
	return &RenderedFetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
	}
}

// Fetch はURLをレンダリングし、selectorに一致した最初の要素の
// テキストを返す。
func (f *RenderedFetcher) Fetch(ctx context.Context, url, selector string) (string, error) {
	if err := f.ssrfGuard.ValidateURL(url); err != nil {
		return "", &FetchError{Kind: FailureNetwork, URL: url, Err: err}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(nextUserAgent()),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	scrapeCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var exists bool
	var text string

	err := chromedp.Run(scrapeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(existsExpr(selector), &exists),
		chromedp.Evaluate(innerTextExpr(selector), &text),
	)
	if err != nil {
		return "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}

	if !exists {
		return "", &FetchError{
			Kind: FailureSelectorNotFound,
			URL:  url,
			Err:  fmt.Errorf("selector %q matched no elements", selector),
		}
	}

	return strings.TrimSpace(text), nil
}

// existsExpr はセレクタに一致する要素の存在を判定するJS式を返す。
func existsExpr(selector string) string {
	return fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
}

// innerTextExpr はセレクタに一致した最初の要素のテキストを返すJS式を返す。
// 要素が存在しない場合は空文字列に評価される。
func innerTextExpr(selector string) string {
	return fmt.Sprintf(`document.querySelector(%q)?.innerText || ""`, selector)
}

// compile-time interface check
var _ Fetcher = (*RenderedFetcher)(nil)
