package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/tracking"
	"github.com/hitoshi/pricewatch/internal/worker/scan"
)

// defaultReadingsPerPage は価格履歴一覧の1回の取得件数（デフォルト）。
const defaultReadingsPerPage = 50

// TrackingServiceInterface は監視対象ハンドラーが必要とするサービスインターフェース。
type TrackingServiceInterface interface {
	// CreateItem は監視対象を新規登録する。
	CreateItem(ctx context.Context, userID string, input tracking.CreateItemInput) (*model.TrackedItem, error)
	// GetItem は所有権を検証して監視対象を取得する。
	GetItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
	// ListItems は監視対象一覧をフィルタ付きで返す。
	ListItems(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error)
	// UpdateItem は監視対象を部分更新する。
	UpdateItem(ctx context.Context, userID, itemID string, input tracking.UpdateItemInput) (*model.TrackedItem, error)
	// DeleteItem は監視対象を削除する。
	DeleteItem(ctx context.Context, userID, itemID string) error
	// PauseItem は監視を一時停止する。
	PauseItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
	// ResumeItem は一時停止中の監視を再開する。
	ResumeItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
}

// CheckRunnerInterface は手動チェックの実行インターフェース。
type CheckRunnerInterface interface {
	// RunItem は1つの監視対象のチェックを実行する。
	// 同一対象のチェックが実行中の場合はscan.ErrCheckInProgressを返す。
	RunItem(ctx context.Context, item *model.TrackedItem) error
}

// ReadingListerInterface は価格履歴の取得インターフェース。
type ReadingListerInterface interface {
	// ListByItemID は監視対象の価格履歴をcreated_at降順で返す。
	ListByItemID(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error)
}

// ItemHandler は監視対象管理のHTTPハンドラー。
type ItemHandler struct {
	service  TrackingServiceInterface
	runner   CheckRunnerInterface
	readings ReadingListerInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service TrackingServiceInterface, runner CheckRunnerInterface, readings ReadingListerInterface) *ItemHandler {
	return &ItemHandler{
		service:  service,
		runner:   runner,
		readings: readings,
	}
}

// --- リクエスト/レスポンス型 ---

// createItemRequest は監視対象登録リクエストのボディ。
type createItemRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Selector   string `json:"selector"`
	FetchMode  string `json:"fetch_mode"`
	CategoryID string `json:"category_id"`
}

// updateItemRequest は監視対象編集リクエストのボディ。
// 省略したフィールドは変更されない。
type updateItemRequest struct {
	Name       *string `json:"name,omitempty"`
	URL        *string `json:"url,omitempty"`
	Selector   *string `json:"selector,omitempty"`
	FetchMode  *string `json:"fetch_mode,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
}

// itemResponse は監視対象のAPIレスポンス。
type itemResponse struct {
	ID            string     `json:"id"`
	CategoryID    string     `json:"category_id,omitempty"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Selector      string     `json:"selector"`
	FetchMode     string     `json:"fetch_mode"`
	Status        string     `json:"status"`
	CurrentPrice  *string    `json:"current_price"`
	Currency      string     `json:"currency,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// itemListResponse は監視対象一覧のレスポンス。
type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

// readingResponse は価格履歴1件のレスポンス。
type readingResponse struct {
	ID        string    `json:"id"`
	Price     string    `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	RawText   string    `json:"raw_text"`
	CreatedAt time.Time `json:"created_at"`
}

// readingListResponse は価格履歴一覧のレスポンス。
type readingListResponse struct {
	Readings   []readingResponse `json:"readings"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// CreateItem は監視対象の登録を処理する。
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	item, err := h.service.CreateItem(r.Context(), userID, tracking.CreateItemInput{
		Name:       req.Name,
		URL:        req.URL,
		Selector:   req.Selector,
		FetchMode:  req.FetchMode,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// ListItems は監視対象一覧を取得する。
// GET /api/items?status=active|error|paused&category_id=xxx
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	status := model.ItemStatus(r.URL.Query().Get("status"))
	categoryID := r.URL.Query().Get("category_id")

	items, err := h.service.ListItems(r.Context(), userID, status, categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := itemListResponse{Items: make([]itemResponse, len(items))}
	for i, item := range items {
		resp.Items[i] = toItemResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetItem は監視対象の詳細を取得する。
// GET /api/items/:id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	item, err := h.service.GetItem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// UpdateItem は監視対象を部分更新する。
// PATCH /api/items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), userID, chi.URLParam(r, "id"), tracking.UpdateItemInput{
		Name:       req.Name,
		URL:        req.URL,
		Selector:   req.Selector,
		FetchMode:  req.FetchMode,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem は監視対象を削除する。
// DELETE /api/items/:id
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteItem(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PauseItem は監視を一時停止する。
// POST /api/items/:id/pause
func (h *ItemHandler) PauseItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	item, err := h.service.PauseItem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// ResumeItem は一時停止中の監視を再開する。
// POST /api/items/:id/resume
func (h *ItemHandler) ResumeItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	item, err := h.service.ResumeItem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// CheckNow は監視対象の手動チェックを同期実行する。
// 自動チェックと同じ経路（スクレイプ→差分判定→履歴追記→通知）を通り、
// 完了後の最新状態を返す。error状態からの復帰にも使用する。
// POST /api/items/:id/check
func (h *ItemHandler) CheckNow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemID := chi.URLParam(r, "id")
	item, err := h.service.GetItem(r.Context(), userID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.runner.RunItem(r.Context(), item); err != nil {
		if errors.Is(err, scan.ErrCheckInProgress) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewCheckInProgressError(itemID))
			return
		}
		handleServiceError(w, err)
		return
	}

	// チェック後の最新状態を返す
	updated, err := h.service.GetItem(r.Context(), userID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(updated))
}

// ListReadings は監視対象の価格履歴を取得する。
// GET /api/items/:id/readings?cursor=RFC3339&limit=50
func (h *ItemHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	itemID := chi.URLParam(r, "id")
	// 所有権の検証
	if _, err := h.service.GetItem(r.Context(), userID, itemID); err != nil {
		handleServiceError(w, err)
		return
	}

	var cursor time.Time
	if c := r.URL.Query().Get("cursor"); c != "" {
		parsed, err := time.Parse(time.RFC3339Nano, c)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "cursorの形式が不正です。",
				Category: "validation",
				Action:   "RFC3339形式のタイムスタンプを指定してください。",
			})
			return
		}
		cursor = parsed
	}

	readings, err := h.readings.ListByItemID(r.Context(), itemID, cursor, defaultReadingsPerPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := readingListResponse{Readings: make([]readingResponse, len(readings))}
	for i, reading := range readings {
		resp.Readings[i] = readingResponse{
			ID:        reading.ID,
			Price:     reading.Price.String(),
			Currency:  reading.Currency,
			RawText:   reading.RawText,
			CreatedAt: reading.CreatedAt,
		}
	}
	if len(readings) == defaultReadingsPerPage {
		resp.NextCursor = readings[len(readings)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	writeJSON(w, http.StatusOK, resp)
}

// toItemResponse はmodel.TrackedItemからAPIレスポンスに変換する。
func toItemResponse(item *model.TrackedItem) itemResponse {
	resp := itemResponse{
		ID:            item.ID,
		CategoryID:    item.CategoryID,
		Name:          item.Name,
		URL:           item.URL,
		Selector:      item.Selector,
		FetchMode:     string(item.FetchMode),
		Status:        string(item.Status),
		Currency:      item.Currency,
		ErrorMessage:  item.ErrorMessage,
		LastCheckedAt: item.LastCheckedAt,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	if item.CurrentPrice != nil {
		price := item.CurrentPrice.String()
		resp.CurrentPrice = &price
	}
	return resp
}
