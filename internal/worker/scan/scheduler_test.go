package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/repository"
)

// mockSettingsRepo はSettingsRepositoryのテストダブル。
type mockSettingsRepo struct {
	prefs []*model.SchedulePreference
}

func (m *mockSettingsRepo) FindScheduleByUserID(_ context.Context, userID string) (*model.SchedulePreference, error) {
	return &model.SchedulePreference{UserID: userID, CheckTime: model.DefaultCheckTime, Timezone: model.DefaultTimezone}, nil
}

func (m *mockSettingsRepo) UpsertSchedule(context.Context, *model.SchedulePreference) error {
	return nil
}

func (m *mockSettingsRepo) ListSchedulePreferences(context.Context) ([]*model.SchedulePreference, error) {
	return m.prefs, nil
}

var _ repository.SettingsRepository = (*mockSettingsRepo)(nil)

// countingRunner はRunItemの呼び出しを記録するテスト用ItemRunner。
type countingRunner struct {
	mu      sync.Mutex
	itemIDs []string
	err     error
}

func (r *countingRunner) RunItem(_ context.Context, item *model.TrackedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.itemIDs = append(r.itemIDs, item.ID)
	return r.err
}

// 現在時刻のプリファレンスを生成するヘルパー
func duePref(userID string) *model.SchedulePreference {
	now := time.Now().UTC()
	return &model.SchedulePreference{
		UserID:    userID,
		CheckTime: now.Format("15:04"),
		Timezone:  "UTC",
	}
}

func notDuePref(userID string) *model.SchedulePreference {
	// 現在時刻から12時間ずらして確実にウィンドウ外にする
	shifted := time.Now().UTC().Add(12 * time.Hour)
	return &model.SchedulePreference{
		UserID:    userID,
		CheckTime: shifted.Format("15:04"),
		Timezone:  "UTC",
	}
}

// ウィンドウ内のユーザーの監視対象のみチェックされることを検証
func TestScheduler_RunOnce_ChecksDueUsers(t *testing.T) {
	settingsRepo := &mockSettingsRepo{prefs: []*model.SchedulePreference{
		duePref("user-due"),
		notDuePref("user-not-due"),
	}}
	itemRepo := &mockItemRepo{dueItems: []*model.TrackedItem{
		{ID: "item-1", UserID: "user-due", Status: model.ItemStatusActive},
		{ID: "item-2", UserID: "user-due", Status: model.ItemStatusActive},
	}}
	runner := &countingRunner{}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 4)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if len(runner.itemIDs) != 2 {
		t.Errorf("チェック実行回数 = %d, want 2", len(runner.itemIDs))
	}
	if itemRepo.listDueCalls != 1 {
		t.Errorf("ListDueForCheck呼び出し回数 = %d, want 1", itemRepo.listDueCalls)
	}
}

// ウィンドウ内のユーザーがいない場合は監視対象を取得しないことを検証
func TestScheduler_RunOnce_NoDueUsers(t *testing.T) {
	settingsRepo := &mockSettingsRepo{prefs: []*model.SchedulePreference{
		notDuePref("user-1"),
	}}
	itemRepo := &mockItemRepo{}
	runner := &countingRunner{}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 4)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if itemRepo.listDueCalls != 0 {
		t.Errorf("ListDueForCheck呼び出し回数 = %d, want 0", itemRepo.listDueCalls)
	}
	if len(runner.itemIDs) != 0 {
		t.Errorf("チェック実行回数 = %d, want 0", len(runner.itemIDs))
	}
}

// 不正なタイムゾーン設定のユーザーはスキップされ、残りの処理は継続することを検証
func TestScheduler_RunOnce_SkipsInvalidTimezone(t *testing.T) {
	settingsRepo := &mockSettingsRepo{prefs: []*model.SchedulePreference{
		{UserID: "user-broken", CheckTime: "09:00", Timezone: "Mars/Olympus"},
		duePref("user-ok"),
	}}
	itemRepo := &mockItemRepo{dueItems: []*model.TrackedItem{
		{ID: "item-1", UserID: "user-ok", Status: model.ItemStatusActive},
	}}
	runner := &countingRunner{}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 4)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if len(runner.itemIDs) != 1 {
		t.Errorf("チェック実行回数 = %d, want 1", len(runner.itemIDs))
	}
}

// 1件のチェック失敗が他の監視対象のチェックを妨げないことを検証
func TestScheduler_RunOnce_ContinuesAfterItemFailure(t *testing.T) {
	settingsRepo := &mockSettingsRepo{prefs: []*model.SchedulePreference{
		duePref("user-due"),
	}}
	itemRepo := &mockItemRepo{dueItems: []*model.TrackedItem{
		{ID: "item-1", UserID: "user-due", Status: model.ItemStatusActive},
		{ID: "item-2", UserID: "user-due", Status: model.ItemStatusActive},
		{ID: "item-3", UserID: "user-due", Status: model.ItemStatusActive},
	}}
	runner := &countingRunner{err: ErrCheckInProgress}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 2)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if len(runner.itemIDs) != 3 {
		t.Errorf("チェック実行回数 = %d, want 3（失敗しても全件試行）", len(runner.itemIDs))
	}
}

// panickingRunner は特定の監視対象でpanicするテスト用ItemRunner。
type panickingRunner struct {
	mu      sync.Mutex
	panicID string
	itemIDs []string
}

func (r *panickingRunner) RunItem(_ context.Context, item *model.TrackedItem) error {
	r.mu.Lock()
	r.itemIDs = append(r.itemIDs, item.ID)
	r.mu.Unlock()
	if item.ID == r.panicID {
		panic("unexpected fault in check")
	}
	return nil
}

// 1件のチェックがpanicしてもサイクルは巻き込まれず、残りの監視対象が
// チェックされることを検証
func TestScheduler_RunOnce_IsolatesPanickingItem(t *testing.T) {
	settingsRepo := &mockSettingsRepo{prefs: []*model.SchedulePreference{
		duePref("user-due"),
	}}
	itemRepo := &mockItemRepo{dueItems: []*model.TrackedItem{
		{ID: "item-1", UserID: "user-due", Status: model.ItemStatusActive},
		{ID: "item-2", UserID: "user-due", Status: model.ItemStatusActive},
		{ID: "item-3", UserID: "user-due", Status: model.ItemStatusActive},
	}}
	runner := &panickingRunner{panicID: "item-2"}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 1)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	if len(runner.itemIDs) != 3 {
		t.Errorf("チェック実行回数 = %d, want 3（panicしても全件試行）", len(runner.itemIDs))
	}
}

// Startがコンテキストキャンセルで停止することを検証
func TestScheduler_Start_StopsOnCancel(t *testing.T) {
	settingsRepo := &mockSettingsRepo{}
	itemRepo := &mockItemRepo{}
	runner := &countingRunner{}

	s := NewScheduler(settingsRepo, itemRepo, runner, newTestLogger(), 30*time.Minute, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Startがキャンセル後に停止しない")
	}
}
