package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/repository"
	"github.com/hitoshi/pricewatch/internal/schedule"
)

// SettingsService はユーザーごとのチェック時刻設定を管理する。
type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService はSettingsServiceの新しいインスタンスを生成する。
func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// GetSchedule はユーザーのチェック時刻設定を返す。
// 未登録の場合はデフォルト値（09:00 UTC）が返る。
func (s *SettingsService) GetSchedule(ctx context.Context, userID string) (*model.SchedulePreference, error) {
	pref, err := s.settingsRepo.FindScheduleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("チェック時刻設定の取得に失敗しました: %w", err)
	}
	return pref, nil
}

// UpdateSchedule はチェック時刻設定を検証して保存する。
// チェック時刻は"HH:MM"形式、タイムゾーンはIANA名である必要がある。
func (s *SettingsService) UpdateSchedule(ctx context.Context, userID, checkTime, timezone string) (*model.SchedulePreference, error) {
	if _, _, err := schedule.ParseCheckTime(checkTime); err != nil {
		return nil, model.NewInvalidCheckTimeError(checkTime)
	}
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return nil, model.NewInvalidTimezoneError(timezone)
	}

	pref := &model.SchedulePreference{
		UserID:    userID,
		CheckTime: checkTime,
		Timezone:  timezone,
	}
	if err := s.settingsRepo.UpsertSchedule(ctx, pref); err != nil {
		return nil, fmt.Errorf("チェック時刻設定の保存に失敗しました: %w", err)
	}

	return pref, nil
}
