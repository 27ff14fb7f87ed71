package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/repository"
	"github.com/hitoshi/pricewatch/internal/schedule"
)

// ItemRunner は1件のチェック実行インターフェース。Runnerが実装する。
type ItemRunner interface {
	RunItem(ctx context.Context, item *model.TrackedItem) error
}

// Scheduler は価格チェックのスケジューリングと並列制御を行う。
// 定期スキャンでユーザーごとの希望時刻と照合し、許容ウィンドウ内の
// ユーザーの監視対象をsemaphoreパターンで並列チェックする。
type Scheduler struct {
	settingsRepo   repository.SettingsRepository
	itemRepo       repository.TrackedItemRepository
	runner         ItemRunner
	logger         *slog.Logger
	tolerance      time.Duration
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	settingsRepo repository.SettingsRepository,
	itemRepo repository.TrackedItemRepository,
	runner ItemRunner,
	logger *slog.Logger,
	tolerance time.Duration,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	if tolerance <= 0 {
		tolerance = schedule.DefaultTolerance
	}
	return &Scheduler{
		settingsRepo:   settingsRepo,
		itemRepo:       itemRepo,
		runner:         runner,
		logger:         logger,
		tolerance:      tolerance,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("チェックスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("tolerance", s.tolerance),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("チェックサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("チェックスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("チェックサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はチェックサイクルを1回実行する。
// 希望時刻が許容ウィンドウ内のユーザーを選び出し、その監視対象を
// semaphoreパターンで並列チェックする。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	prefs, err := s.settingsRepo.ListSchedulePreferences(ctx)
	if err != nil {
		return err
	}

	dueUserIDs := s.selectDueUsers(prefs, start)
	if len(dueUserIDs) == 0 {
		s.logger.Info("チェック対象時刻のユーザーはいません")
		return nil
	}

	// ウィンドウ内で既にチェック済みの対象を除外する。
	// ウィンドウの全幅は±toleranceの2倍。
	checkedBefore := start.Add(-2 * s.tolerance)
	items, err := s.itemRepo.ListDueForCheck(ctx, dueUserIDs, checkedBefore)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		s.logger.Info("チェック対象の監視対象はありません",
			slog.Int("due_users", len(dueUserIDs)),
		)
		return nil
	}

	s.logger.Info("チェックサイクルを開始します",
		slog.Int("due_users", len(dueUserIDs)),
		slog.Int("item_count", len(items)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(it *model.TrackedItem) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放
			defer func() {
				// 1件の失敗がサイクル全体を巻き込まないよう隔離する
				if rec := recover(); rec != nil {
					s.logger.Error("チェック処理でpanicが発生しました",
						slog.String("item_id", it.ID),
						slog.Any("panic", rec),
					)
				}
			}()

			if err := s.runner.RunItem(ctx, it); err != nil {
				if errors.Is(err, ErrCheckInProgress) {
					s.logger.Info("チェック実行中のためスキップしました",
						slog.String("item_id", it.ID),
					)
					return
				}
				s.logger.Error("監視対象のチェックに失敗しました",
					slog.String("item_id", it.ID),
					slog.String("url", it.URL),
					slog.String("error", err.Error()),
				)
			}
		}(item)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("チェックサイクルが完了しました",
		slog.Int("item_count", len(items)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// selectDueUsers は現在時刻が希望チェック時刻の許容ウィンドウ内にある
// ユーザーのIDを返す。設定が不正なユーザーはログに記録してスキップする。
func (s *Scheduler) selectDueUsers(prefs []*model.SchedulePreference, now time.Time) []string {
	var dueUserIDs []string
	for _, pref := range prefs {
		due, err := schedule.IsDue(*pref, now, s.tolerance)
		if err != nil {
			s.logger.Warn("チェック時刻設定が不正なためスキップします",
				slog.String("user_id", pref.UserID),
				slog.String("check_time", pref.CheckTime),
				slog.String("timezone", pref.Timezone),
				slog.String("error", err.Error()),
			)
			continue
		}
		if due {
			dueUserIDs = append(dueUserIDs, pref.UserID)
		}
	}
	return dueUserIDs
}
