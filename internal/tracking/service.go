// Package tracking は監視対象管理のドメインロジックを提供する。
package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/repository"
)

// maxItemsPerUser は1ユーザーあたりの監視対象の登録上限。
const maxItemsPerUser = 100

// URLValidator は登録URLのSSRF検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service は監視対象管理のサービス層。
// 登録、編集、削除、一時停止/再開のビジネスロジックを提供する。
type Service struct {
	itemRepo     repository.TrackedItemRepository
	categoryRepo repository.CategoryRepository
	ssrfGuard    URLValidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	itemRepo repository.TrackedItemRepository,
	categoryRepo repository.CategoryRepository,
	ssrfGuard URLValidator,
) *Service {
	return &Service{
		itemRepo:     itemRepo,
		categoryRepo: categoryRepo,
		ssrfGuard:    ssrfGuard,
	}
}

// CreateItemInput は監視対象の登録入力。
type CreateItemInput struct {
	Name       string
	URL        string
	Selector   string
	FetchMode  string
	CategoryID string
}

// UpdateItemInput は監視対象の編集入力。
// nilフィールドは変更しない部分更新を行う。
type UpdateItemInput struct {
	Name       *string
	URL        *string
	Selector   *string
	FetchMode  *string
	CategoryID *string
}

// CreateItem は監視対象を新規登録する。
// URLはスキーム検証とSSRF検証を通過する必要がある。
// 登録直後はactive状態で、価格は初回チェックまで未設定。
func (s *Service) CreateItem(ctx context.Context, userID string, input CreateItemInput) (*model.TrackedItem, error) {
	if err := s.validateURL(input.URL); err != nil {
		return nil, err
	}

	selector := strings.TrimSpace(input.Selector)
	if selector == "" {
		return nil, model.NewInvalidSelectorError("セレクタが指定されていません")
	}

	fetchMode, err := parseFetchMode(input.FetchMode)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != "" {
		if err := s.verifyCategoryOwnership(ctx, userID, input.CategoryID); err != nil {
			return nil, err
		}
	}

	count, err := s.itemRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("監視対象数の取得に失敗しました: %w", err)
	}
	if count >= maxItemsPerUser {
		return nil, model.NewItemLimitError()
	}

	now := time.Now()
	item := &model.TrackedItem{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: input.CategoryID,
		Name:       strings.TrimSpace(input.Name),
		URL:        input.URL,
		Selector:   selector,
		FetchMode:  fetchMode,
		Status:     model.ItemStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if item.Name == "" {
		item.Name = input.URL
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("監視対象の登録に失敗しました: %w", err)
	}

	return item, nil
}

// GetItem は所有権を検証して監視対象を取得する。
func (s *Service) GetItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("監視対象の取得に失敗しました: %w", err)
	}
	if item == nil || item.UserID != userID {
		return nil, model.NewItemNotFoundError(itemID)
	}
	return item, nil
}

// ListItems はユーザーの監視対象一覧を返す。
// statusとcategoryIDによる絞り込みが可能（空文字列は全件）。
func (s *Service) ListItems(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error) {
	switch status {
	case "", model.ItemStatusActive, model.ItemStatusError, model.ItemStatusPaused:
	default:
		return nil, fmt.Errorf("無効なstatus指定です: %q", status)
	}

	items, err := s.itemRepo.ListByUserID(ctx, userID, status, categoryID)
	if err != nil {
		return nil, fmt.Errorf("監視対象一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// UpdateItem は監視対象の編集可能フィールドを部分更新する。
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, input UpdateItemInput) (*model.TrackedItem, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if input.URL != nil {
		if err := s.validateURL(*input.URL); err != nil {
			return nil, err
		}
		item.URL = *input.URL
	}
	if input.Selector != nil {
		selector := strings.TrimSpace(*input.Selector)
		if selector == "" {
			return nil, model.NewInvalidSelectorError("セレクタが指定されていません")
		}
		item.Selector = selector
	}
	if input.FetchMode != nil {
		mode, err := parseFetchMode(*input.FetchMode)
		if err != nil {
			return nil, err
		}
		item.FetchMode = mode
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.CategoryID != nil {
		if *input.CategoryID != "" {
			if err := s.verifyCategoryOwnership(ctx, userID, *input.CategoryID); err != nil {
				return nil, err
			}
		}
		item.CategoryID = *input.CategoryID
	}

	item.UpdatedAt = time.Now()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("監視対象の更新に失敗しました: %w", err)
	}

	return item, nil
}

// DeleteItem は監視対象を削除する。価格履歴と通知イベントも削除される。
func (s *Service) DeleteItem(ctx context.Context, userID, itemID string) error {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if err := s.itemRepo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("監視対象の削除に失敗しました: %w", err)
	}
	return nil
}

// PauseItem は監視を一時停止する。自動チェックの対象から外れる。
func (s *Service) PauseItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemStatusPaused
	item.UpdatedAt = time.Now()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("監視対象の一時停止に失敗しました: %w", err)
	}

	return item, nil
}

// ResumeItem は一時停止中の監視を再開する。
// paused以外の状態からの再開は許可しない（error状態は手動チェックで復帰させる）。
func (s *Service) ResumeItem(ctx context.Context, userID, itemID string) (*model.TrackedItem, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status != model.ItemStatusPaused {
		return nil, model.NewItemNotPausedError()
	}

	item.Status = model.ItemStatusActive
	item.UpdatedAt = time.Now()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("監視対象の再開に失敗しました: %w", err)
	}

	return item, nil
}

// CreateCategory は分類を作成する。
func (s *Service) CreateCategory(ctx context.Context, userID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("分類名が指定されていません")
	}

	category := &model.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("分類の作成に失敗しました: %w", err)
	}

	return category, nil
}

// ListCategories はユーザーの分類一覧を返す。
func (s *Service) ListCategories(ctx context.Context, userID string) ([]*model.Category, error) {
	categories, err := s.categoryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("分類一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// DeleteCategory は所有権を検証して分類を削除する。
func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	if err := s.verifyCategoryOwnership(ctx, userID, categoryID); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(ctx, categoryID); err != nil {
		return fmt.Errorf("分類の削除に失敗しました: %w", err)
	}
	return nil
}

// validateURL はURL形式とSSRFポリシーを検証する。
func (s *Service) validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.NewInvalidURLError(rawURL)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return model.NewInvalidURLError(fmt.Sprintf("サポートされないスキームです: %s", scheme))
	}
	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		return model.NewSSRFBlockedError()
	}
	return nil
}

// verifyCategoryOwnership は分類の存在と所有権を検証する。
func (s *Service) verifyCategoryOwnership(ctx context.Context, userID, categoryID string) error {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("分類の取得に失敗しました: %w", err)
	}
	if category == nil || category.UserID != userID {
		return model.NewCategoryNotFoundError(categoryID)
	}
	return nil
}

// parseFetchMode は取得モード文字列を検証して返す。空文字列はstatic。
func parseFetchMode(mode string) (model.FetchMode, error) {
	switch mode {
	case "", string(model.FetchModeStatic):
		return model.FetchModeStatic, nil
	case string(model.FetchModeRendered):
		return model.FetchModeRendered, nil
	default:
		return "", fmt.Errorf("無効な取得モードです: %q", mode)
	}
}
