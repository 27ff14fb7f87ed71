package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/pricewatch/internal/model"
)

// PostgresTrackedItemRepo はPostgreSQLを使用した監視対象リポジトリ。
type PostgresTrackedItemRepo struct {
	db *sql.DB
}

// NewPostgresTrackedItemRepo はPostgresTrackedItemRepoを生成する。
func NewPostgresTrackedItemRepo(db *sql.DB) *PostgresTrackedItemRepo {
	return &PostgresTrackedItemRepo{db: db}
}

const trackedItemColumns = `id, user_id, category_id, name, url, selector, fetch_mode,
	        status, current_price, currency, error_message, last_checked_at,
	        created_at, updated_at`

// scanTrackedItem は1行を*model.TrackedItemに読み取る。
func scanTrackedItem(scan func(dest ...any) error) (*model.TrackedItem, error) {
	item := &model.TrackedItem{}
	var categoryID, currency, errorMessage sql.NullString
	var currentPrice sql.NullInt64
	var lastCheckedAt sql.NullTime

	if err := scan(
		&item.ID, &item.UserID, &categoryID, &item.Name, &item.URL,
		&item.Selector, &item.FetchMode, &item.Status,
		&currentPrice, &currency, &errorMessage, &lastCheckedAt,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.CategoryID = nullStringValue(categoryID)
	item.Currency = nullStringValue(currency)
	item.ErrorMessage = nullStringValue(errorMessage)
	if currentPrice.Valid {
		p := model.Money(currentPrice.Int64)
		item.CurrentPrice = &p
	}
	if lastCheckedAt.Valid {
		t := lastCheckedAt.Time
		item.LastCheckedAt = &t
	}

	return item, nil
}

// nullMoney は*model.Moneyをsql.NullInt64に変換する。
func nullMoney(m *model.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// FindByID は指定IDの監視対象を取得する。見つからない場合はnilを返す。
func (r *PostgresTrackedItemRepo) FindByID(ctx context.Context, id string) (*model.TrackedItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trackedItemColumns+` FROM tracked_items WHERE id = $1`,
		id,
	)

	item, err := scanTrackedItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("監視対象の取得に失敗しました: %w", err)
	}
	return item, nil
}

// ListByUserID はユーザーの監視対象一覧を返す。
// statusが空文字列の場合は全状態、categoryIDが空文字列の場合は全分類を対象とする。
func (r *PostgresTrackedItemRepo) ListByUserID(ctx context.Context, userID string, status model.ItemStatus, categoryID string) ([]*model.TrackedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trackedItemColumns+`
		 FROM tracked_items
		 WHERE user_id = $1
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR category_id = $3::uuid)
		 ORDER BY created_at DESC`,
		userID, string(status), categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("監視対象一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("監視対象の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("監視対象一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// CountByUserID はユーザーの監視対象数を返す。
func (r *PostgresTrackedItemRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tracked_items WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("監視対象数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Create は監視対象を作成する。
func (r *PostgresTrackedItemRepo) Create(ctx context.Context, item *model.TrackedItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tracked_items (id, user_id, category_id, name, url, selector,
		                            fetch_mode, status, current_price, currency,
		                            error_message, last_checked_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		item.ID, item.UserID, nullString(item.CategoryID), item.Name, item.URL,
		item.Selector, item.FetchMode, item.Status,
		nullMoney(item.CurrentPrice), nullString(item.Currency),
		nullString(item.ErrorMessage), nullTime(item.LastCheckedAt),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("監視対象の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は監視対象の編集可能フィールドを更新する。
func (r *PostgresTrackedItemRepo) Update(ctx context.Context, item *model.TrackedItem) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracked_items SET
		    category_id = $2, name = $3, url = $4, selector = $5,
		    fetch_mode = $6, status = $7, updated_at = $8
		 WHERE id = $1`,
		item.ID, nullString(item.CategoryID), item.Name, item.URL,
		item.Selector, item.FetchMode, item.Status, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("監視対象の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの監視対象を削除する。
// 価格履歴と通知イベントはCASCADE削除される。
func (r *PostgresTrackedItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tracked_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("監視対象の削除に失敗しました: %w", err)
	}
	return nil
}

// UpdateCheckState はチェック結果の状態を更新する。
func (r *PostgresTrackedItemRepo) UpdateCheckState(ctx context.Context, item *model.TrackedItem) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracked_items SET
		    status = $2,
		    current_price = $3,
		    currency = $4,
		    error_message = $5,
		    last_checked_at = $6,
		    updated_at = now()
		 WHERE id = $1`,
		item.ID,
		item.Status,
		nullMoney(item.CurrentPrice),
		nullString(item.Currency),
		nullString(item.ErrorMessage),
		nullTime(item.LastCheckedAt),
	)
	if err != nil {
		return fmt.Errorf("チェック状態の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateCheckStateWithReading はチェック状態の更新と価格履歴の追記を
// 同一トランザクションで行う。どちらかが失敗した場合は両方ロールバック
// され、current_priceと最新履歴の不整合を残さない。
func (r *PostgresTrackedItemRepo) UpdateCheckStateWithReading(ctx context.Context, item *model.TrackedItem, reading *model.PriceReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE tracked_items SET
		    status = $2,
		    current_price = $3,
		    currency = $4,
		    error_message = $5,
		    last_checked_at = $6,
		    updated_at = now()
		 WHERE id = $1`,
		item.ID,
		item.Status,
		nullMoney(item.CurrentPrice),
		nullString(item.Currency),
		nullString(item.ErrorMessage),
		nullTime(item.LastCheckedAt),
	)
	if err != nil {
		return fmt.Errorf("チェック状態の更新に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO price_readings (id, item_id, price, currency, raw_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reading.ID, reading.ItemID, int64(reading.Price),
		nullString(reading.Currency), nullString(reading.RawText),
		reading.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("価格履歴の追記に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// ClaimForCheck はチェック実行権を条件付きUPDATEで取得する。
// check_started_atがNULLまたはstaleAfterより古い場合のみ現在時刻を書き込み、
// 行が更新されたかどうかで取得の成否を判定する。
func (r *PostgresTrackedItemRepo) ClaimForCheck(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))

	result, err := r.db.ExecContext(ctx,
		`UPDATE tracked_items SET check_started_at = now()
		 WHERE id = $1
		   AND (check_started_at IS NULL OR check_started_at < now() - $2::interval)`,
		id, interval,
	)
	if err != nil {
		return false, fmt.Errorf("チェック実行権の取得に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("チェック実行権の取得結果の確認に失敗しました: %w", err)
	}

	return affected == 1, nil
}

// ReleaseCheck はチェック実行権を解放する。
func (r *PostgresTrackedItemRepo) ReleaseCheck(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracked_items SET check_started_at = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("チェック実行権の解放に失敗しました: %w", err)
	}
	return nil
}

// ListDueForCheck は指定ユーザー群のチェック対象を返す。
// errorとpausedの監視対象、および既に今回のウィンドウ内で
// チェック済みの監視対象は除外する。
func (r *PostgresTrackedItemRepo) ListDueForCheck(ctx context.Context, userIDs []string, checkedBefore time.Time) ([]*model.TrackedItem, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trackedItemColumns+`
		 FROM tracked_items
		 WHERE user_id = ANY($1)
		   AND status = 'active'
		   AND (last_checked_at IS NULL OR last_checked_at < $2)
		 ORDER BY last_checked_at ASC NULLS FIRST`,
		pq.Array(userIDs), checkedBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("チェック対象の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("チェック対象の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チェック対象の走査に失敗しました: %w", err)
	}

	return items, nil
}

// compile-time interface check
var _ TrackedItemRepository = (*PostgresTrackedItemRepo)(nil)
