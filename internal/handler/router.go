package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pricewatch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 監視対象
	TrackingService TrackingServiceInterface
	CheckRunner     CheckRunnerInterface
	ReadingLister   ReadingListerInterface

	// セレクタ検証
	SelectorValidator SelectorValidatorInterface

	// 分類
	CategoryService CategoryServiceInterface

	// 設定
	SettingsService SettingsServiceInterface

	// 通知履歴
	NotificationLister NotificationListerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(General)
//
// ヘルスチェックとCSRFトークン取得はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	itemHandler := NewItemHandler(deps.TrackingService, deps.CheckRunner, deps.ReadingLister)
	validateHandler := NewValidateHandler(deps.SelectorValidator)
	categoryHandler := NewCategoryHandler(deps.CategoryService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)
	notifHandler := NewNotificationHandler(deps.NotificationLister)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 監視対象管理
		r.Route("/api/items", func(r chi.Router) {
			// POST /api/items - 監視対象登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.ItemRegistrationMiddleware()).Post("/", itemHandler.CreateItem)
			r.Get("/", itemHandler.ListItems)

			// POST /api/items/validate - セレクタ検証ドライラン
			r.Post("/validate", validateHandler.ValidateSelector)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.GetItem)
				r.Patch("/", itemHandler.UpdateItem)
				r.Delete("/", itemHandler.DeleteItem)

				r.Post("/pause", itemHandler.PauseItem)
				r.Post("/resume", itemHandler.ResumeItem)
				r.Post("/check", itemHandler.CheckNow)

				// GET /api/items/{id}/readings - 価格履歴
				r.Get("/readings", itemHandler.ListReadings)
			})
		})

		// 分類管理
		r.Route("/api/categories", func(r chi.Router) {
			r.Post("/", categoryHandler.CreateCategory)
			r.Get("/", categoryHandler.ListCategories)
			r.Delete("/{id}", categoryHandler.DeleteCategory)
		})

		// チェック時刻設定
		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/schedule", settingsHandler.GetSchedule)
			r.Put("/schedule", settingsHandler.UpdateSchedule)
		})

		// 通知履歴
		r.Get("/api/notifications", notifHandler.ListNotifications)
	})

	return r
}
