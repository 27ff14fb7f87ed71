// Package schedule はユーザーごとのチェック時刻設定に基づく
// 実行タイミングの判定を提供する。壁時計の計算のみを行い、
// ストレージやネットワークには依存しない。
package schedule

import (
	"fmt"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
)

// DefaultTolerance は希望時刻からの許容ずれ幅。
// スキャン周期が粗くても希望時刻の前後でチェックを拾えるようにする。
const DefaultTolerance = 30 * time.Minute

// ParseCheckTime は"HH:MM"形式のチェック時刻を検証して時・分に分解する。
func ParseCheckTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("チェック時刻の形式が不正です: %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// IsDue はユーザーの希望チェック時刻に対して現在時刻が
// 許容ウィンドウ内にあるかを判定する。nowはどのタイムゾーンでもよく、
// 設定されたIANAタイムゾーンの壁時計に変換して比較する。
// タイムゾーンまたは時刻の設定が不正な場合はエラーを返す。
func IsDue(pref model.SchedulePreference, now time.Time, tolerance time.Duration) (bool, error) {
	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil {
		return false, fmt.Errorf("タイムゾーンを解決できません: %q: %w", pref.Timezone, err)
	}

	hour, minute, err := ParseCheckTime(pref.CheckTime)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	diff := local.Sub(target)
	if diff < 0 {
		diff = -diff
	}

	// 日付境界をまたぐ近さ（23:55に対する00:10など）も拾う。
	const day = 24 * time.Hour
	if wrapped := day - diff; wrapped < diff {
		diff = wrapped
	}

	return diff <= tolerance, nil
}
