package check

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/price"
	"github.com/hitoshi/pricewatch/internal/scrape"
)

const (
	// defaultRetryCount は1サイクルあたりのフェッチ試行回数の上限。
	defaultRetryCount = 3
	// defaultRetryBackoff はリトライ間の待機時間（固定）。
	defaultRetryBackoff = 2 * time.Second
)

// FetcherSelector は取得戦略の選択インターフェース。
type FetcherSelector interface {
	ForMode(mode model.FetchMode) (scrape.Fetcher, error)
}

// Orchestrator は1つの監視対象に対するフェッチ＋パースを
// リトライ付きで実行する。ストレージへの副作用は持たず、
// 結果はOutcomeとして呼び出し側に返す。
type Orchestrator struct {
	fetchers   FetcherSelector
	logger     *slog.Logger
	retryCount int
	backoff    time.Duration
}

// NewOrchestrator はOrchestratorを生成する。
// retryCountが0以下の場合は3、backoffが負の場合は2秒を使用する。
func NewOrchestrator(fetchers FetcherSelector, logger *slog.Logger, retryCount int, backoff time.Duration) *Orchestrator {
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	if backoff < 0 {
		backoff = defaultRetryBackoff
	}
	return &Orchestrator{
		fetchers:   fetchers,
		logger:     logger,
		retryCount: retryCount,
		backoff:    backoff,
	}
}

// Check は監視対象を1回チェックする。
// フェッチの一時的失敗（timeout/network）のみリトライし、
// セレクタ未検出は即座にFetchFailed、パース不能は即座に
// ExtractionFailedとして返す。
func (o *Orchestrator) Check(ctx context.Context, item *model.TrackedItem) Outcome {
	fetcher, err := o.fetchers.ForMode(item.FetchMode)
	if err != nil {
		return Outcome{Kind: OutcomeFetchFailed, Reason: scrape.FailureNetwork, Err: err}
	}

	var lastErr error

	for attempt := 1; attempt <= o.retryCount; attempt++ {
		text, err := fetcher.Fetch(ctx, item.URL, item.Selector)
		if err == nil {
			parsed := price.Parse(text)
			if parsed.Price == nil {
				o.logger.Warn("抽出テキストから価格を解釈できませんでした",
					slog.String("item_id", item.ID),
					slog.String("url", item.URL),
					slog.String("raw_text", parsed.Raw),
				)
				return Outcome{Kind: OutcomeExtractionFailed, RawText: parsed.Raw}
			}

			return Outcome{
				Kind:     OutcomeSuccess,
				Price:    *parsed.Price,
				Currency: parsed.Currency,
				RawText:  parsed.Raw,
			}
		}

		lastErr = err

		var fe *scrape.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() {
			// セレクタ未検出などの非一時的な失敗はリトライしない。
			break
		}

		o.logger.Warn("フェッチに失敗しました（リトライします）",
			slog.String("item_id", item.ID),
			slog.String("url", item.URL),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", o.retryCount),
			slog.String("error", err.Error()),
		)

		if attempt < o.retryCount {
			select {
			case <-ctx.Done():
				return Outcome{
					Kind:   OutcomeFetchFailed,
					Reason: scrape.FailureTimeout,
					Err:    ctx.Err(),
				}
			case <-time.After(o.backoff):
			}
		}
	}

	return Outcome{
		Kind:   OutcomeFetchFailed,
		Reason: scrape.KindOf(lastErr),
		Err:    lastErr,
	}
}
