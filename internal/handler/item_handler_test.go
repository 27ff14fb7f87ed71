package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/tracking"
	"github.com/hitoshi/pricewatch/internal/worker/scan"
)

// mockTrackingService はTrackingServiceInterfaceのテストダブル。
type mockTrackingService struct {
	createItemFn func(ctx context.Context, userID string, input tracking.CreateItemInput) (*model.TrackedItem, error)
	getItemFn    func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
	listItemsFn  func(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error)
	updateItemFn func(ctx context.Context, userID, itemID string, input tracking.UpdateItemInput) (*model.TrackedItem, error)
	deleteItemFn func(ctx context.Context, userID, itemID string) error
	pauseItemFn  func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
	resumeItemFn func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error)
}

func (m *mockTrackingService) CreateItem(ctx context.Context, userID string, input tracking.CreateItemInput) (*model.TrackedItem, error) {
	return m.createItemFn(ctx, userID, input)
}

func (m *mockTrackingService) GetItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	return m.getItemFn(ctx, userID, itemID)
}

func (m *mockTrackingService) ListItems(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error) {
	return m.listItemsFn(ctx, userID, status, categoryID)
}

func (m *mockTrackingService) UpdateItem(ctx context.Context, userID, itemID string, input tracking.UpdateItemInput) (*model.TrackedItem, error) {
	return m.updateItemFn(ctx, userID, itemID, input)
}

func (m *mockTrackingService) DeleteItem(ctx context.Context, userID, itemID string) error {
	return m.deleteItemFn(ctx, userID, itemID)
}

func (m *mockTrackingService) PauseItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	return m.pauseItemFn(ctx, userID, itemID)
}

func (m *mockTrackingService) ResumeItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	return m.resumeItemFn(ctx, userID, itemID)
}

var _ TrackingServiceInterface = (*mockTrackingService)(nil)

// mockCheckRunner はCheckRunnerInterfaceのテストダブル。
type mockCheckRunner struct {
	runItemFn func(ctx context.Context, item *model.TrackedItem) error
	calls     int
}

func (m *mockCheckRunner) RunItem(ctx context.Context, item *model.TrackedItem) error {
	m.calls++
	return m.runItemFn(ctx, item)
}

var _ CheckRunnerInterface = (*mockCheckRunner)(nil)

// mockReadingLister はReadingListerInterfaceのテストダブル。
type mockReadingLister struct {
	listFn func(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error)
}

func (m *mockReadingLister) ListByItemID(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error) {
	return m.listFn(ctx, itemID, cursor, limit)
}

var _ ReadingListerInterface = (*mockReadingLister)(nil)

func sampleItem() *model.TrackedItem {
	price := model.Money(198000)
	checkedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &model.TrackedItem{
		ID:            "item-1",
		UserID:        "user-1",
		Name:          "ワイヤレスイヤホン",
		URL:           "https://example.com/product",
		Selector:      ".price",
		FetchMode:     model.FetchModeStatic,
		Status:        model.ItemStatusActive,
		CurrentPrice:  &price,
		Currency:      "¥",
		LastCheckedAt: &checkedAt,
	}
}

// authedRequest は認証済みユーザーIDをコンテキストに注入したリクエストを生成する。
func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.ContextWithUserID(req.Context(), "user-1")
	return req.WithContext(ctx)
}

// newItemRouter はItemHandlerのルートのみを構成したテスト用ルーターを返す。
func newItemRouter(h *ItemHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/items", h.CreateItem)
	r.Get("/api/items", h.ListItems)
	r.Route("/api/items/{id}", func(r chi.Router) {
		r.Get("/", h.GetItem)
		r.Patch("/", h.UpdateItem)
		r.Delete("/", h.DeleteItem)
		r.Post("/pause", h.PauseItem)
		r.Post("/resume", h.ResumeItem)
		r.Post("/check", h.CheckNow)
		r.Get("/readings", h.ListReadings)
	})
	return r
}

func TestCreateItem_Returns201(t *testing.T) {
	svc := &mockTrackingService{
		createItemFn: func(ctx context.Context, userID string, input tracking.CreateItemInput) (*model.TrackedItem, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			if input.URL != "https://example.com/product" {
				t.Errorf("input.URL = %q", input.URL)
			}
			item := sampleItem()
			item.CurrentPrice = nil
			item.LastCheckedAt = nil
			return item, nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items",
		`{"name":"ワイヤレスイヤホン","url":"https://example.com/product","selector":".price"}`)
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp itemResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "item-1" {
		t.Errorf("id = %q, want item-1", resp.ID)
	}
	if resp.CurrentPrice != nil {
		t.Error("登録直後のcurrent_priceはnullであるべき")
	}
}

func TestCreateItem_EmptyURL_Returns400(t *testing.T) {
	h := NewItemHandler(&mockTrackingService{}, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items", `{"selector":".price"}`)
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp apiErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != model.ErrCodeInvalidURL {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidURL)
	}
}

func TestCreateItem_LimitReached_Returns409(t *testing.T) {
	svc := &mockTrackingService{
		createItemFn: func(ctx context.Context, userID string, input tracking.CreateItemInput) (*model.TrackedItem, error) {
			return nil, model.NewItemLimitError()
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items",
		`{"url":"https://example.com/product","selector":".price"}`)
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCreateItem_Unauthenticated_Returns401(t *testing.T) {
	h := NewItemHandler(&mockTrackingService{}, &mockCheckRunner{}, &mockReadingLister{})

	req := httptest.NewRequest(http.MethodPost, "/api/items",
		strings.NewReader(`{"url":"https://example.com/product","selector":".price"}`))
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestGetItem_Returns200WithPrice(t *testing.T) {
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return sampleItem(), nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodGet, "/api/items/item-1", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp itemResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.CurrentPrice == nil || *resp.CurrentPrice != "1980.00" {
		t.Errorf("current_price = %v, want 1980.00", resp.CurrentPrice)
	}
	if resp.Currency != "¥" {
		t.Errorf("currency = %q, want ¥", resp.Currency)
	}
}

func TestGetItem_NotFound_Returns404(t *testing.T) {
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return nil, model.NewItemNotFoundError(itemID)
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodGet, "/api/items/missing", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListItems_PassesFilters(t *testing.T) {
	var gotStatus model.ItemStatus
	var gotCategory string
	svc := &mockTrackingService{
		listItemsFn: func(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error) {
			gotStatus = status
			gotCategory = categoryID
			return []*model.TrackedItem{sampleItem()}, nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodGet, "/api/items?status=active&category_id=cat-1", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotStatus != model.ItemStatusActive {
		t.Errorf("status = %q, want active", gotStatus)
	}
	if gotCategory != "cat-1" {
		t.Errorf("category_id = %q, want cat-1", gotCategory)
	}

	var resp itemListResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Items) != 1 {
		t.Errorf("items数 = %d, want 1", len(resp.Items))
	}
}

func TestUpdateItem_PartialBody(t *testing.T) {
	svc := &mockTrackingService{
		updateItemFn: func(ctx context.Context, userID, itemID string, input tracking.UpdateItemInput) (*model.TrackedItem, error) {
			if input.Name == nil || *input.Name != "新名称" {
				t.Errorf("input.Name = %v, want 新名称", input.Name)
			}
			if input.URL != nil {
				t.Error("省略フィールドはnilであるべき")
			}
			item := sampleItem()
			item.Name = *input.Name
			return item, nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodPatch, "/api/items/item-1", `{"name":"新名称"}`)
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestDeleteItem_Returns204(t *testing.T) {
	svc := &mockTrackingService{
		deleteItemFn: func(ctx context.Context, userID, itemID string) error {
			return nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodDelete, "/api/items/item-1", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestResumeItem_NotPaused_Returns409(t *testing.T) {
	svc := &mockTrackingService{
		resumeItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return nil, model.NewItemNotPausedError()
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items/item-1/resume", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var resp apiErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != model.ErrCodeItemNotPaused {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeItemNotPaused)
	}
}

func TestCheckNow_RunsAndReturnsUpdatedItem(t *testing.T) {
	calls := 0
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			calls++
			item := sampleItem()
			if calls > 1 {
				// チェック後の再取得では更新済みの価格を返す
				price := model.Money(175000)
				item.CurrentPrice = &price
			}
			return item, nil
		},
	}
	runner := &mockCheckRunner{
		runItemFn: func(ctx context.Context, item *model.TrackedItem) error {
			return nil
		},
	}
	h := NewItemHandler(svc, runner, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items/item-1/check", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if runner.calls != 1 {
		t.Errorf("チェック実行回数 = %d, want 1", runner.calls)
	}

	var resp itemResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.CurrentPrice == nil || *resp.CurrentPrice != "1750.00" {
		t.Errorf("current_price = %v, want 1750.00（チェック後の最新値）", resp.CurrentPrice)
	}
}

func TestCheckNow_InProgress_Returns409(t *testing.T) {
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return sampleItem(), nil
		},
	}
	runner := &mockCheckRunner{
		runItemFn: func(ctx context.Context, item *model.TrackedItem) error {
			return scan.ErrCheckInProgress
		},
	}
	h := NewItemHandler(svc, runner, &mockReadingLister{})

	req := authedRequest(http.MethodPost, "/api/items/item-1/check", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var resp apiErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != model.ErrCodeCheckInProgress {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeCheckInProgress)
	}
}

func TestListReadings_ReturnsHistory(t *testing.T) {
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return sampleItem(), nil
		},
	}
	lister := &mockReadingLister{
		listFn: func(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error) {
			if itemID != "item-1" {
				t.Errorf("itemID = %q, want item-1", itemID)
			}
			return []*model.PriceReading{
				{
					ID:        "reading-1",
					ItemID:    "item-1",
					Price:     model.Money(198000),
					Currency:  "¥",
					RawText:   "¥1,980",
					CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, lister)

	req := authedRequest(http.MethodGet, "/api/items/item-1/readings", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp readingListResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Readings) != 1 {
		t.Fatalf("readings数 = %d, want 1", len(resp.Readings))
	}
	if resp.Readings[0].Price != "1980.00" {
		t.Errorf("price = %q, want 1980.00", resp.Readings[0].Price)
	}
	if resp.NextCursor != "" {
		t.Error("1ページに収まる場合next_cursorは空であるべき")
	}
}

func TestListReadings_InvalidCursor_Returns400(t *testing.T) {
	svc := &mockTrackingService{
		getItemFn: func(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
			return sampleItem(), nil
		},
	}
	h := NewItemHandler(svc, &mockCheckRunner{}, &mockReadingLister{})

	req := authedRequest(http.MethodGet, "/api/items/item-1/readings?cursor=not-a-time", "")
	w := httptest.NewRecorder()
	newItemRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
