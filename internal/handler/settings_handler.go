package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	// GetSchedule はユーザーのチェック時刻設定を返す。
	GetSchedule(ctx context.Context, userID string) (*model.SchedulePreference, error)
	// UpdateSchedule はチェック時刻設定を検証して保存する。
	UpdateSchedule(ctx context.Context, userID, checkTime, timezone string) (*model.SchedulePreference, error)
}

// SettingsHandler はユーザー設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// scheduleRequest はチェック時刻設定更新リクエストのボディ。
type scheduleRequest struct {
	CheckTime string `json:"check_time"`
	Timezone  string `json:"timezone"`
}

// scheduleResponse はチェック時刻設定のレスポンス。
type scheduleResponse struct {
	CheckTime string `json:"check_time"`
	Timezone  string `json:"timezone"`
}

// GetSchedule はチェック時刻設定を取得する。
// 未設定の場合はデフォルト値（09:00 UTC）を返す。
// GET /api/settings/schedule
func (h *SettingsHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	pref, err := h.service.GetSchedule(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		CheckTime: pref.CheckTime,
		Timezone:  pref.Timezone,
	})
}

// UpdateSchedule はチェック時刻設定を更新する。
// PUT /api/settings/schedule
func (h *SettingsHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	pref, err := h.service.UpdateSchedule(r.Context(), userID, req.CheckTime, req.Timezone)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		CheckTime: pref.CheckTime,
		Timezone:  pref.Timezone,
	})
}
