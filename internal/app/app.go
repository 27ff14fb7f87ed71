package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/pricewatch/internal/check"
	"github.com/hitoshi/pricewatch/internal/config"
	"github.com/hitoshi/pricewatch/internal/database"
	"github.com/hitoshi/pricewatch/internal/handler"
	"github.com/hitoshi/pricewatch/internal/logger"
	"github.com/hitoshi/pricewatch/internal/metrics"
	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/notify"
	"github.com/hitoshi/pricewatch/internal/repository"
	"github.com/hitoshi/pricewatch/internal/scrape"
	"github.com/hitoshi/pricewatch/internal/security"
	"github.com/hitoshi/pricewatch/internal/tracking"
	"github.com/hitoshi/pricewatch/internal/worker/cleanup"
	"github.com/hitoshi/pricewatch/internal/worker/scan"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newFetcherSelector はconfigに応じた取得戦略セレクタを構築する。
// レンダリングが無効な構成ではrenderedモードの対象も静的パスで処理される。
func newFetcherSelector(cfg *config.Config, ssrfGuard security.SSRFGuardService) *scrape.Selector {
	static := scrape.NewStaticFetcher(ssrfGuard, cfg.FetchTimeout, cfg.FetchMaxSize)
	var rendered scrape.Fetcher
	if cfg.RenderEnabled {
		rendered = scrape.NewRenderedFetcher(ssrfGuard, cfg.FetchTimeout)
	}
	return scrape.NewSelector(static, rendered)
}

// newNotifier は構成された通知チャネルを束ねたNotifierを返す。
// Webhook/Telegramが未設定の場合はログ通知のみとなる。
func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}

	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, 10*time.Second, log))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("Telegram通知の初期化に失敗しました", slog.String("error", err.Error()))
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	return notify.NewMulti(notifiers...)
}

// newCheckRunner はチェック実行パイプライン一式を構築する。
// APIサーバー（手動チェック）とワーカー（自動チェック）で共用する。
func newCheckRunner(cfg *config.Config, repos *repositories, collector metrics.MetricsCollector) *scan.Runner {
	ssrfGuard := security.NewSSRFGuard()
	fetchers := newFetcherSelector(cfg, ssrfGuard)
	orchestrator := check.NewOrchestrator(fetchers, slog.Default(), cfg.CheckRetryCount, cfg.CheckRetryBackoff)
	notifier := newNotifier(cfg, slog.Default())
	sanitizer := security.NewTextSanitizer()

	return scan.NewRunner(
		repos.items, repos.notifications, repos.users,
		orchestrator, notifier, sanitizer, collector, slog.Default(),
		cfg.ClaimStaleAfter, cfg.NotifyDedupWindow,
	)
}

// repositories は全リポジトリをまとめた構造体。
type repositories struct {
	users         *repository.PostgresUserRepo
	sessions      *repository.PostgresSessionRepo
	settings      *repository.PostgresSettingsRepo
	items         *repository.PostgresTrackedItemRepo
	readings      *repository.PostgresReadingRepo
	notifications *repository.PostgresNotificationRepo
	categories    *repository.PostgresCategoryRepo
}

// newRepositories は全リポジトリを1つのDB接続から構築する。
func newRepositories(db *sql.DB) *repositories {
	return &repositories{
		users:         repository.NewPostgresUserRepo(db),
		sessions:      repository.NewPostgresSessionRepo(db),
		settings:      repository.NewPostgresSettingsRepo(db),
		items:         repository.NewPostgresTrackedItemRepo(db),
		readings:      repository.NewPostgresReadingRepo(db),
		notifications: repository.NewPostgresNotificationRepo(db),
		categories:    repository.NewPostgresCategoryRepo(db),
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	repos := newRepositories(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. ドメインサービスの初期化
	trackingService := tracking.NewService(repos.items, repos.categories, ssrfGuard)
	settingsService := tracking.NewSettingsService(repos.settings)
	fetchers := newFetcherSelector(cfg, ssrfGuard)
	validator := tracking.NewValidator(fetchers, ssrfGuard, sanitizer)

	// 5. 手動チェック用のランナー（メトリクスはAPI側でも収集する）
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	runner := newCheckRunner(cfg, repos, collector)

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     repos.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		TrackingService:   trackingService,
		CheckRunner:       runner,
		ReadingLister:     repos.readings,
		SelectorValidator: validator,
		CategoryService:   trackingService,
		SettingsService:   settingsService,

		NotificationLister: repos.notifications,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 手動チェックはスクレイプ完了まで応答を返さない
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、スキャンスケジューラとクリーンアップジョブを起動する。
// メトリクスは:9090の/metricsで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	repos := newRepositories(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. チェックパイプラインの構築
	runner := newCheckRunner(cfg, repos, collector)

	// 5. スケジューラの構築
	scheduler := scan.NewScheduler(
		repos.settings, repos.items, runner,
		slog.Default(), cfg.ScheduleTolerance, cfg.ScanMaxConcurrent,
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.RetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("scan_interval", cfg.ScanInterval),
		slog.Duration("schedule_tolerance", cfg.ScheduleTolerance),
		slog.Int("max_concurrent", cfg.ScanMaxConcurrent),
	)

	// メトリクスサーバーをバックグラウンドで起動
	metricsServer := &http.Server{
		Addr:    ":9090",
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// スキャンスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ScanInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
