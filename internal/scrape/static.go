package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// StaticFetcher は静的HTML取得＋goqueryによるセレクタ抽出の軽量パス。
// JavaScriptを実行しないため、サーバーサイドレンダリングされた
// ページにのみ有効。
type StaticFetcher struct {
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewStaticFetcher はStaticFetcherを生成する。
func NewStaticFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxBodySize int64) *StaticFetcher {
	return &StaticFetcher{
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch はURLのHTMLを取得し、selectorに一致した最初の要素のテキストを返す。
func (f *StaticFetcher) Fetch(ctx context.Context, url, selector string) (string, error) {
	if err := f.ssrfGuard.ValidateURL(url); err != nil {
		return "", &FetchError{Kind: FailureNetwork, URL: url, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{
			Kind: FailureNetwork,
			URL:  url,
			Err:  fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	body := io.LimitReader(resp.Body, f.maxBodySize)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", &FetchError{Kind: FailureNetwork, URL: url, Err: fmt.Errorf("HTML parse: %w", err)}
	}

	text, err := selectText(doc, selector)
	if err != nil {
		return "", &FetchError{Kind: FailureSelectorNotFound, URL: url, Err: err}
	}

	return text, nil
}

// selectText はselectorに一致した最初の要素のテキストを返す。
// goqueryは不正なセレクタでpanicするため、ここで回復して
// セレクタ未検出と同じ分類のエラーに変換する。
func selectText(doc *goquery.Document, selector string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("invalid selector %q: %v", selector, rec)
		}
	}()

	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("selector %q matched no elements", selector)
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// compile-time interface check
var _ Fetcher = (*StaticFetcher)(nil)
