package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/model"
)

// defaultNotificationsPerPage は通知履歴一覧の1回の取得件数（デフォルト）。
const defaultNotificationsPerPage = 50

// NotificationListerInterface は通知履歴の取得インターフェース。
type NotificationListerInterface interface {
	// ListByUserID はユーザーの通知履歴をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string, cursor time.Time, limit int) ([]*model.NotificationEvent, error)
}

// NotificationHandler は通知履歴のHTTPハンドラー。
type NotificationHandler struct {
	lister NotificationListerInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(lister NotificationListerInterface) *NotificationHandler {
	return &NotificationHandler{lister: lister}
}

// notificationResponse は通知イベント1件のレスポンス。
type notificationResponse struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"item_id"`
	Type         string    `json:"type"`
	OldPrice     *string   `json:"old_price"`
	NewPrice     *string   `json:"new_price"`
	PctChange    *string   `json:"pct_change"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// notificationListResponse は通知履歴一覧のレスポンス。
type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

// ListNotifications は通知履歴を取得する。
// GET /api/notifications?cursor=RFC3339&limit=50
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
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

	events, err := h.lister.ListByUserID(r.Context(), userID, cursor, defaultNotificationsPerPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := notificationListResponse{Notifications: make([]notificationResponse, len(events))}
	for i, event := range events {
		resp.Notifications[i] = toNotificationResponse(event)
	}
	if len(events) == defaultNotificationsPerPage {
		resp.NextCursor = events[len(events)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	writeJSON(w, http.StatusOK, resp)
}

// toNotificationResponse はmodel.NotificationEventからAPIレスポンスに変換する。
func toNotificationResponse(event *model.NotificationEvent) notificationResponse {
	resp := notificationResponse{
		ID:           event.ID,
		ItemID:       event.ItemID,
		Type:         string(event.Type),
		ErrorMessage: event.ErrorMessage,
		CreatedAt:    event.CreatedAt,
	}
	if event.OldPrice != nil {
		s := event.OldPrice.String()
		resp.OldPrice = &s
	}
	if event.NewPrice != nil {
		s := event.NewPrice.String()
		resp.NewPrice = &s
	}
	if event.PctChange != nil {
		s := event.PctChange.String()
		resp.PctChange = &s
	}
	return resp
}
