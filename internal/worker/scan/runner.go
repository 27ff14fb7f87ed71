// Package scan は監視対象価格のバックグラウンドチェック処理を提供する。
// スケジューラ、1件単位のチェック実行、通知の配信を含む。
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pricewatch/internal/check"
	"github.com/hitoshi/pricewatch/internal/detect"
	"github.com/hitoshi/pricewatch/internal/metrics"
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/notify"
	"github.com/hitoshi/pricewatch/internal/repository"
)

// ErrCheckInProgress は対象のチェックが既に実行中であることを示す。
var ErrCheckInProgress = errors.New("この監視対象は既にチェック実行中です")

// CheckService は1件のチェック実行インターフェース。
// check.Orchestratorが実装する。
type CheckService interface {
	Check(ctx context.Context, item *model.TrackedItem) check.Outcome
}

// TextSanitizer は抽出テキストのサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// Runner は1つの監視対象に対するチェックサイクル全体を実行する。
// クレーム取得、フェッチ＋パース、変化判定、状態と履歴の永続化、
// 通知の配信までを1回の呼び出しで行う。
// 自動チェック（スケジューラ）と手動チェック（API）の両方から使用される。
type Runner struct {
	itemRepo  repository.TrackedItemRepository
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	checker   CheckService
	notifier  notify.Notifier
	sanitizer TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger

	// claimStale はクレームをクラッシュ残骸とみなして奪取するまでの時間。
	claimStale time.Duration
	// dedupWindow は同一監視対象・同一種別の通知を抑制する期間。
	dedupWindow time.Duration
}

// NewRunner はRunnerを生成する。
func NewRunner(
	itemRepo repository.TrackedItemRepository,
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	checker CheckService,
	notifier notify.Notifier,
	sanitizer TextSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	claimStale time.Duration,
	dedupWindow time.Duration,
) *Runner {
	if claimStale <= 0 {
		claimStale = 5 * time.Minute
	}
	return &Runner{
		itemRepo:    itemRepo,
		notifRepo:   notifRepo,
		userRepo:    userRepo,
		checker:     checker,
		notifier:    notifier,
		sanitizer:   sanitizer,
		metrics:     collector,
		logger:      logger,
		claimStale:  claimStale,
		dedupWindow: dedupWindow,
	}
}

// RunItem は監視対象を1件チェックする。
// 同一対象のチェックが既に実行中の場合はErrCheckInProgressを返す。
func (r *Runner) RunItem(ctx context.Context, item *model.TrackedItem) error {
	claimed, err := r.itemRepo.ClaimForCheck(ctx, item.ID, r.claimStale)
	if err != nil {
		return fmt.Errorf("チェック実行権の取得に失敗: %w", err)
	}
	if !claimed {
		return ErrCheckInProgress
	}
	defer func() {
		if releaseErr := r.itemRepo.ReleaseCheck(context.WithoutCancel(ctx), item.ID); releaseErr != nil {
			r.logger.Error("チェック実行権の解放に失敗しました",
				slog.String("item_id", item.ID),
				slog.String("error", releaseErr.Error()),
			)
		}
	}()

	start := time.Now()
	outcome := r.checker.Check(ctx, item)
	r.metrics.RecordCheckLatency(time.Since(start))

	// 判定は状態遷移の適用前に行う（旧価格との比較のため）。
	decision := detect.Evaluate(item, outcome)
	wasActive := item.Status == model.ItemStatusActive
	now := time.Now()

	switch decision.Kind {
	case detect.DecisionNoChange, detect.DecisionPriceChanged:
		detect.ApplySuccess(item, outcome.Price, outcome.Currency, now)
		r.metrics.RecordCheckSuccess(item.ID)

		// 状態更新と履歴追記は同一トランザクションで行い、
		// current_priceと最新履歴の不整合を残さない。
		if err := r.itemRepo.UpdateCheckStateWithReading(ctx, item, r.newReading(item, outcome, now)); err != nil {
			return fmt.Errorf("チェック結果の永続化に失敗: %w", err)
		}

		if decision.Kind == detect.DecisionPriceChanged {
			r.metrics.RecordPriceChange(item.ID)
			r.notifyPriceChange(ctx, item, decision, now)
		}

	case detect.DecisionErrorOccurred:
		detect.ApplyError(item, decision.ErrorMessage, now)
		r.recordFailureMetrics(item, outcome)

		if err := r.itemRepo.UpdateCheckState(ctx, item); err != nil {
			return fmt.Errorf("チェック状態の更新に失敗: %w", err)
		}

		// エラー通知はactive→errorの遷移時のみ。既にerror状態の対象が
		// 失敗し続けても繰り返し通知しない。
		if wasActive {
			r.notifyError(ctx, item, decision, now)
		}
	}

	r.logger.Info("価格チェックが完了しました",
		slog.String("item_id", item.ID),
		slog.String("url", item.URL),
		slog.String("decision", string(decision.Kind)),
		slog.String("status", string(item.Status)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// newReading は成功したチェックの価格履歴レコードを構築する。
func (r *Runner) newReading(item *model.TrackedItem, outcome check.Outcome, now time.Time) *model.PriceReading {
	return &model.PriceReading{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		Price:     outcome.Price,
		Currency:  outcome.Currency,
		RawText:   r.sanitizer.SanitizeText(outcome.RawText),
		CreatedAt: now,
	}
}

// recordFailureMetrics は失敗分類に応じたメトリクスを記録する。
func (r *Runner) recordFailureMetrics(item *model.TrackedItem, outcome check.Outcome) {
	if outcome.Kind == check.OutcomeExtractionFailed {
		r.metrics.RecordParseFailure(item.ID)
		r.metrics.RecordCheckFailure(item.ID, "extraction_failed")
		return
	}
	r.metrics.RecordCheckFailure(item.ID, string(outcome.Reason))
}

// notifyPriceChange は価格変動の通知イベントを記録して配信する。
// dedupWindow内に同種の通知を送信済みの場合は抑制する。
func (r *Runner) notifyPriceChange(ctx context.Context, item *model.TrackedItem, decision detect.Decision, now time.Time) {
	if r.isDuplicate(ctx, item.ID, model.NotificationPriceChange, now) {
		return
	}

	event := &model.NotificationEvent{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		UserID:    item.UserID,
		Type:      model.NotificationPriceChange,
		OldPrice:  decision.Old,
		NewPrice:  decision.New,
		PctChange: decision.Pct,
		CreatedAt: now,
	}
	r.deliver(ctx, item, event)
}

// notifyError はスクレイプ失敗の通知イベントを記録して配信する。
func (r *Runner) notifyError(ctx context.Context, item *model.TrackedItem, decision detect.Decision, now time.Time) {
	if r.isDuplicate(ctx, item.ID, model.NotificationScrapeError, now) {
		return
	}

	event := &model.NotificationEvent{
		ID:           uuid.NewString(),
		ItemID:       item.ID,
		UserID:       item.UserID,
		Type:         model.NotificationScrapeError,
		ErrorMessage: decision.ErrorMessage,
		CreatedAt:    now,
	}
	r.deliver(ctx, item, event)
}

// isDuplicate はdedupWindow内に同種の通知を送信済みかを判定する。
// 判定に失敗した場合は通知を優先し、重複とみなさない。
func (r *Runner) isDuplicate(ctx context.Context, itemID string, eventType model.NotificationType, now time.Time) bool {
	if r.dedupWindow <= 0 {
		return false
	}

	latest, err := r.notifRepo.LatestByItemAndType(ctx, itemID, eventType)
	if err != nil {
		r.logger.Error("通知重複判定に失敗しました",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if latest == nil {
		return false
	}

	return now.Sub(latest.CreatedAt) < r.dedupWindow
}

// deliver はイベントを監査ログに追記してから配信する。
// 配信失敗はログに記録するのみで、チェック処理自体は失敗させない。
func (r *Runner) deliver(ctx context.Context, item *model.TrackedItem, event *model.NotificationEvent) {
	if err := r.notifRepo.Append(ctx, event); err != nil {
		r.logger.Error("通知イベントの追記に失敗しました",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	user, err := r.userRepo.FindByID(ctx, item.UserID)
	if err != nil || user == nil {
		r.logger.Error("通知先ユーザーの取得に失敗しました",
			slog.String("item_id", item.ID),
			slog.String("user_id", item.UserID),
		)
		return
	}

	notifyEvent := notify.Event{
		User:         user,
		Item:         item,
		Type:         event.Type,
		OldPrice:     event.OldPrice,
		NewPrice:     event.NewPrice,
		PctChange:    event.PctChange,
		ErrorMessage: event.ErrorMessage,
	}
	if err := r.notifier.Notify(ctx, notifyEvent); err != nil {
		r.logger.Error("通知の配信に失敗しました",
			slog.String("item_id", item.ID),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
		return
	}

	r.metrics.RecordNotificationSent(string(event.Type))
}
