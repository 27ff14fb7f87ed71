// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションの発行は認証サービス（スコープ外）が行い、
// 本システムはCookieからの照合のみを行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SchedulePreference はユーザーごとの自動チェック時刻設定を表す。
// CheckTimeはユーザーのローカル時刻（"HH:MM"）、TimezoneはIANA名。
type SchedulePreference struct {
	UserID    string
	CheckTime string
	Timezone  string
	UpdatedAt time.Time
}

// DefaultCheckTime は設定未登録ユーザーのチェック時刻。
const DefaultCheckTime = "09:00"

// DefaultTimezone は設定未登録ユーザーのタイムゾーン。
const DefaultTimezone = "UTC"
