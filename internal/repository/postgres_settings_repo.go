package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pricewatch/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用したチェック時刻設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// FindScheduleByUserID は指定ユーザーの設定を取得する。
// 未登録の場合はデフォルト値（09:00 UTC）を持つ設定を返す。
func (r *PostgresSettingsRepo) FindScheduleByUserID(ctx context.Context, userID string) (*model.SchedulePreference, error) {
	pref := &model.SchedulePreference{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, check_time, timezone, updated_at
		 FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&pref.UserID, &pref.CheckTime, &pref.Timezone, &pref.UpdatedAt)

	if err == sql.ErrNoRows {
		return &model.SchedulePreference{
			UserID:    userID,
			CheckTime: model.DefaultCheckTime,
			Timezone:  model.DefaultTimezone,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チェック時刻設定の取得に失敗しました: %w", err)
	}

	return pref, nil
}

// UpsertSchedule はチェック時刻設定を冪等に保存する。
func (r *PostgresSettingsRepo) UpsertSchedule(ctx context.Context, pref *model.SchedulePreference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, check_time, timezone, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET check_time = EXCLUDED.check_time,
		               timezone = EXCLUDED.timezone,
		               updated_at = now()`,
		pref.UserID, pref.CheckTime, pref.Timezone,
	)
	if err != nil {
		return fmt.Errorf("チェック時刻設定の保存に失敗しました: %w", err)
	}
	return nil
}

// ListSchedulePreferences は検証済みユーザー全員の設定を返す。
// 設定未登録のユーザーにはデフォルト値をCOALESCEで補完する。
func (r *PostgresSettingsRepo) ListSchedulePreferences(ctx context.Context) ([]*model.SchedulePreference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id,
		        COALESCE(s.check_time, $1),
		        COALESCE(s.timezone, $2),
		        COALESCE(s.updated_at, u.created_at)
		 FROM users u
		 LEFT JOIN user_settings s ON u.id = s.user_id
		 WHERE u.verified = true`,
		model.DefaultCheckTime, model.DefaultTimezone,
	)
	if err != nil {
		return nil, fmt.Errorf("チェック時刻設定一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var prefs []*model.SchedulePreference
	for rows.Next() {
		pref := &model.SchedulePreference{}
		if err := rows.Scan(&pref.UserID, &pref.CheckTime, &pref.Timezone, &pref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("チェック時刻設定の読み取りに失敗しました: %w", err)
		}
		prefs = append(prefs, pref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チェック時刻設定一覧の走査に失敗しました: %w", err)
	}

	return prefs, nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
